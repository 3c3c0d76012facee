// Command feedid finds and checks Pyth price feed IDs and converts USD
// amounts to SOL.
//
//	feedid find [terms...]       list feeds whose symbol matches (default: sol usd)
//	feedid verify [ids...]       report the first id that resolves to a price
//	feedid convert <usd>         convert using Pyth, falling back to Jupiter
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DroHadTo/Solanashop/pkg/pricefeed"
)

func main() {
	hermesURL := flag.String("hermes", pricefeed.DefaultHermesURL, "Pyth Hermes base URL")
	jupiterURL := flag.String("jupiter", pricefeed.DefaultJupiterURL, "Jupiter price API base URL")
	feedID := flag.String("feed", pricefeed.SOLUSDFeedID, "Pyth SOL/USD feed ID used by convert")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pyth := pricefeed.NewPythClient(pricefeed.Config{BaseURL: *hermesURL})
	jupiter := pricefeed.NewJupiterClient(pricefeed.Config{BaseURL: *jupiterURL})

	if err := run(ctx, os.Stdout, pyth, jupiter, *feedID, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, pyth *pricefeed.PythClient, jupiter *pricefeed.JupiterClient, feedID string, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: feedid find|verify|convert [args]")
	}

	switch args[0] {
	case "find":
		terms := args[1:]
		if len(terms) == 0 {
			terms = []string{"sol", "usd"}
		}
		feeds, err := pyth.FindFeeds(ctx, terms...)
		if err != nil {
			return err
		}
		if len(feeds) == 0 {
			return fmt.Errorf("no feeds match %v", terms)
		}
		for i, feed := range feeds {
			price, _ := feed.Price.Decimal()
			fmt.Fprintf(out, "%d. %s\n   ID: %s\n   Price: $%s\n   Updated: %s\n",
				i+1, feed.Symbol(), feed.ID, price.StringFixed(4), feed.Price.Published().UTC().Format(time.RFC3339))
		}
		fmt.Fprintf(out, "\nSuggested feed ID: %s\n", feeds[0].ID)

	case "verify":
		candidates := args[1:]
		if len(candidates) == 0 {
			candidates = []string{feedID}
		}
		feed, err := pyth.VerifyFeedID(ctx, candidates...)
		if err != nil {
			return err
		}
		price, _ := feed.Price.Decimal()
		fmt.Fprintf(out, "Valid feed ID: %s\n   Price: $%s\n   Confidence: ±$%s\n   Updated: %s\n",
			feed.ID, price.StringFixed(2), feed.Price.Confidence().StringFixed(4),
			feed.Price.Published().UTC().Format(time.RFC3339))

	case "convert":
		if len(args) < 2 {
			return fmt.Errorf("usage: feedid convert <usd>")
		}
		usd, err := decimal.NewFromString(args[1])
		if err != nil {
			return fmt.Errorf("invalid usd amount %q", args[1])
		}
		converter := pricefeed.NewConverter([]pricefeed.Source{
			pricefeed.PythSource(pyth, feedID),
			pricefeed.JupiterSource(jupiter),
		})
		quote, err := converter.USDToSOL(ctx, usd)
		if err != nil {
			return err
		}
		source := "pyth"
		if quote.Source == 1 {
			source = "jupiter"
		}
		fmt.Fprintf(out, "$%s USD -> %s SOL (price %s via %s, %s%% slippage)\n",
			usd.StringFixed(2), quote.SOL.StringFixed(6), quote.Price.StringFixed(2), source,
			quote.Slippage.Shift(2).String())

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}
