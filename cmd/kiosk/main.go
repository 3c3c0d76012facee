// Command kiosk is a terminal storefront that takes USDC payments with
// Solana Pay.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	solana "github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/DroHadTo/Solanashop/cart"
	"github.com/DroHadTo/Solanashop/checkout"
	"github.com/DroHadTo/Solanashop/config"
	"github.com/DroHadTo/Solanashop/ledger"
	"github.com/DroHadTo/Solanashop/logging"
	"github.com/DroHadTo/Solanashop/order"
	"github.com/DroHadTo/Solanashop/pkg/pricefeed"
	"github.com/DroHadTo/Solanashop/poller"
	"github.com/DroHadTo/Solanashop/qr"
	"github.com/DroHadTo/Solanashop/solanapay"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	catalogPath := flag.String("catalog", "", "Path to YAML product catalog")
	showSOL := flag.Bool("sol", false, "Show an indicative SOL amount for the cart")
	flag.Parse()

	if err := run(*configPath, *catalogPath, *showSOL); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, catalogPath string, showSOL bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer log.Sync()

	warnings, err := cfg.Validate()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	for _, w := range warnings {
		log.Warn("Configuration warning", zap.String("warning", w))
	}

	catalog, err := loadCatalog(catalogPath)
	if err != nil {
		return err
	}

	builder, err := solanapay.NewBuilder(
		solana.MustPublicKeyFromBase58(cfg.Merchant),
		solana.MustPublicKeyFromBase58(cfg.SPLToken),
		solanapay.WithLabel(cfg.Label),
		solanapay.WithMessage(cfg.Message),
		solanapay.WithMemo(cfg.Memo),
	)
	if err != nil {
		return err
	}

	submitter, err := order.NewFormSubmitter(order.Config{Endpoint: cfg.Order.Endpoint, Timeout: cfg.Order.Timeout})
	if err != nil {
		return err
	}

	p := poller.New(ledger.NewFromURL(cfg.RPCURL, ledger.WithLogger(log)),
		poller.WithConfig(poller.Config{
			Interval:         cfg.Poll.Interval,
			MaxAttempts:      cfg.Poll.MaxAttempts,
			Deadline:         cfg.Poll.Deadline,
			AbortOnRejection: cfg.Poll.AbortOnRejection,
		}),
		poller.WithLogger(log),
	)

	k := &kiosk{catalog: catalog, out: os.Stdout}
	if showSOL {
		k.converter = pricefeed.NewConverter([]pricefeed.Source{
			pricefeed.PythSource(pricefeed.NewPythClient(pricefeed.Config{}), pricefeed.SOLUSDFeedID),
			pricefeed.JupiterSource(pricefeed.NewJupiterClient(pricefeed.Config{})),
		}, pricefeed.WithLogger(log))
	}

	k.session = checkout.New(cart.New(), builder, p, submitter,
		checkout.WithSubmitDelay(cfg.Order.Delay),
		checkout.WithDecimals(cfg.Decimals()),
		checkout.WithPresenter(qr.DefaultPresenter(log)),
		checkout.WithLogger(log),
		checkout.WithUpdateHook(k.printStatus),
	)
	k.watchCart()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("%s on %s. Type help for commands.\n", cfg.Label, cfg.Cluster)
	k.handle(ctx, "list")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			k.session.Cancel()
			return nil
		case line, ok := <-lines:
			if !ok || k.handle(ctx, line) {
				k.session.Cancel()
				return nil
			}
		}
	}
}
