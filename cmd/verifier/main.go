// Command verifier serves GET /verify for kiosks and the order desk.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	solanashop "github.com/DroHadTo/Solanashop"
	"github.com/DroHadTo/Solanashop/cache"
	"github.com/DroHadTo/Solanashop/config"
	shophttp "github.com/DroHadTo/Solanashop/http"
	"github.com/DroHadTo/Solanashop/ledger"
	"github.com/DroHadTo/Solanashop/logging"
	"github.com/DroHadTo/Solanashop/mcp"
	"github.com/DroHadTo/Solanashop/metrics"
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

	warnings, err := cfg.Validate()
	if err != nil {
		log.Fatal("Invalid configuration", zap.Error(err))
	}
	for _, w := range warnings {
		log.Warn("Configuration warning", zap.String("warning", w))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []solanashop.VerifierOption{
		solanashop.WithVerificationCache(solanashop.NewVerificationCache(cfg.Redis.TTL)),
		solanashop.WithVerifierLogger(log),
		solanashop.WithDecimals(cfg.Decimals()),
		solanashop.WithAfterVerifyHook(func(rc solanashop.VerifyResultContext) error {
			if rc.Cached {
				metrics.VerificationCacheHitsTotal.Inc()
			}
			return nil
		}),
	}

	if cfg.Redis.Addr != "" {
		client, err := cache.Connect(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer client.Close()
		opts = append(opts, solanashop.WithResultStore(cache.NewRedisStore(client, "", cfg.Redis.TTL)))
		log.Info("Using Redis result store", zap.String("addr", cfg.Redis.Addr))
	}

	verifier := solanashop.NewVerifier(
		ledger.NewFromURL(cfg.RPCURL, ledger.WithLogger(log)),
		solana.MustPublicKeyFromBase58(cfg.Merchant),
		solana.MustPublicKeyFromBase58(cfg.SPLToken),
		opts...,
	)

	mcpServer := mcp.NewServer(verifier, mcp.ServerConfig{Name: cfg.Label + " verifier", Logger: log})
	router := shophttp.NewRouter(verifier,
		shophttp.WithLogger(log),
		shophttp.WithHandler("/mcp", mcp.Handler(mcpServer)),
	)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
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

	log.Info("Verifier starting",
		zap.String("address", cfg.Server.Addr),
		zap.String("cluster", cfg.Cluster),
		zap.String("merchant", cfg.Merchant),
		zap.String("spl_token", cfg.SPLToken),
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("Server failed", zap.Error(err))
	}
	log.Info("Server stopped")
}
