// Command orderdesk accepts paid orders posted by kiosks.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/DroHadTo/Solanashop/config"
	shophttp "github.com/DroHadTo/Solanashop/http"
	"github.com/DroHadTo/Solanashop/logging"
	"github.com/DroHadTo/Solanashop/orderdesk"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store orderdesk.Store = orderdesk.NewMemoryStore()
	if cfg.Database.DSN != "" {
		db, err := orderdesk.OpenPostgres(ctx, cfg.Database.DSN)
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if err := orderdesk.Migrate(ctx, db); err != nil {
			log.Fatal("Failed to run migrations", zap.Error(err))
		}
		go orderdesk.CollectPoolStats(ctx, db, 30*time.Second)
		store = orderdesk.NewPostgresStore(db)
		log.Info("Using PostgreSQL order store")
	} else {
		log.Warn("No database configured, orders are kept in memory")
	}

	service := orderdesk.NewService(store,
		shophttp.NewVerifierClient(cfg.VerifierURL, 15*time.Second),
		orderdesk.WithLogger(log),
	)
	e := orderdesk.NewServer(service, log)
	e.GET("/metrics", echoMetrics())

	httpServer := &http.Server{
		Addr:              cfg.Order.Addr,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		log.Info("Shutting down server...")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown error", zap.Error(err))
		}
	}()

	log.Info("Order desk starting", zap.String("address", cfg.Order.Addr), zap.String("verifier", cfg.VerifierURL))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("Server failed", zap.Error(err))
	}
	log.Info("Server stopped")
}
