package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/DroHadTo/Solanashop/cart"
	"github.com/DroHadTo/Solanashop/checkout"
	"github.com/DroHadTo/Solanashop/pkg/pricefeed"
)

const help = `commands:
  list          show the catalog
  add <n>       add catalog product n to the cart
  remove <i>    remove cart line i
  cart          show the cart
  checkout      show a payment QR code for the cart
  status        show the checkout state
  cancel        stop waiting for payment
  resubmit      retry a failed order submission
  quit          exit`

// kiosk is the terminal front end of a checkout session
type kiosk struct {
	catalog   []cart.LineItem
	session   *checkout.Session
	converter *pricefeed.Converter
	out       io.Writer
}

// handle runs one command line and reports whether the kiosk should exit
func (k *kiosk) handle(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch strings.ToLower(fields[0]) {
	case "help", "?":
		fmt.Fprintln(k.out, help)
	case "list":
		for i, item := range k.catalog {
			fmt.Fprintf(k.out, "%2d. %-20s %8s USDC\n", i+1, item.Name(), cart.FormatTotal(item.Price()))
		}
	case "add":
		n, ok := k.index(fields, len(k.catalog))
		if !ok {
			return false
		}
		k.session.Cart().Add(k.catalog[n])
	case "remove":
		i, ok := k.index(fields, k.session.Cart().Len())
		if !ok {
			return false
		}
		k.session.Cart().Remove(i)
	case "cart":
		k.printCart(ctx)
	case "checkout":
		k.checkout(ctx)
	case "status":
		status := k.session.Status()
		fmt.Fprintf(k.out, "%s: %s\n", status.State, status.Message)
	case "cancel":
		k.session.Cancel()
	case "resubmit":
		if err := k.session.Resubmit(ctx); err != nil {
			fmt.Fprintf(k.out, "error: %v\n", err)
		}
	case "quit", "exit":
		k.session.Cancel()
		return true
	default:
		fmt.Fprintf(k.out, "unknown command %q, type help\n", fields[0])
	}
	return false
}

// index parses a 1-based argument into a 0-based index below n
func (k *kiosk) index(fields []string, n int) (int, bool) {
	if len(fields) < 2 {
		fmt.Fprintf(k.out, "usage: %s <number>\n", fields[0])
		return 0, false
	}
	i, err := strconv.Atoi(fields[1])
	if err != nil || i < 1 || i > n {
		fmt.Fprintf(k.out, "no item %s\n", fields[1])
		return 0, false
	}
	return i - 1, true
}

func (k *kiosk) printCart(ctx context.Context) {
	c := k.session.Cart()
	if !k.drawCart() {
		return
	}

	if k.converter != nil {
		quote, err := k.converter.USDToSOL(ctx, c.Total())
		if err == nil {
			fmt.Fprintf(k.out, "    (about %s SOL at %s USD/SOL)\n", quote.SOL.StringFixed(6), quote.Price.StringFixed(2))
		}
	}
}

// drawCart prints the cart lines and total and reports whether there were any
func (k *kiosk) drawCart() bool {
	items := k.session.Cart().Items()
	if len(items) == 0 {
		fmt.Fprintln(k.out, "cart is empty")
		return false
	}
	for i, item := range items {
		fmt.Fprintf(k.out, "%2d. %-20s %8s USDC\n", i+1, item.Name(), cart.FormatTotal(item.Price()))
	}
	fmt.Fprintf(k.out, "    %-20s %8s USDC\n", "Total", cart.FormatTotal(cart.Sum(items)))
	return true
}

// watchCart prints a notification for every cart change
func (k *kiosk) watchCart() {
	k.session.Cart().OnChange(k.onCartChange)
}

func (k *kiosk) onCartChange(e cart.Event) {
	switch e.Type {
	case cart.EventAdded:
		fmt.Fprintf(k.out, "added %s (total %s USDC)\n", e.Item.Name(), cart.FormatTotal(e.Total))
	case cart.EventRemoved:
		fmt.Fprintf(k.out, "removed %s\n", e.Item.Name())
		k.drawCart()
	}
}

func (k *kiosk) checkout(ctx context.Context) {
	started, err := k.session.Checkout(ctx)
	if err != nil {
		if errors.Is(err, checkout.ErrEmptyCart) {
			fmt.Fprintln(k.out, "cart is empty")
			return
		}
		fmt.Fprintf(k.out, "error: %v\n", err)
		return
	}

	if started.Widget.Art != "" {
		fmt.Fprintln(k.out, started.Widget.Art)
	}
	fmt.Fprintf(k.out, "Scan to pay %s USDC\n%s\n", cart.FormatTotal(started.Request.Amount), started.Widget.Text)
}

// printStatus is the session update hook
func (k *kiosk) printStatus(status checkout.Status) {
	switch status.State {
	case checkout.StateAwaitingPayment:
		return
	case checkout.StateOrderPlaced:
		if status.Receipt != nil && status.Receipt.OrderID != "" {
			fmt.Fprintf(k.out, "\n%s (order %s)\n", status.Message, status.Receipt.OrderID)
			return
		}
	}
	fmt.Fprintf(k.out, "\n%s\n", status.Message)
}
