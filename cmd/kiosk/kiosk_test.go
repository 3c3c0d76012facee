package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DroHadTo/Solanashop/cart"
	"github.com/DroHadTo/Solanashop/checkout"
)

func newTestKiosk(t *testing.T) (*kiosk, *bytes.Buffer) {
	t.Helper()
	catalog, err := loadCatalog("")
	require.NoError(t, err)

	out := &bytes.Buffer{}
	k := &kiosk{catalog: catalog, out: out}
	k.session = checkout.New(cart.New(), nil, nil, nil)
	k.watchCart()
	return k, out
}

func TestKiosk_AddRemove(t *testing.T) {
	k, out := newTestKiosk(t)
	ctx := context.Background()

	k.handle(ctx, "add 1")
	assert.Contains(t, out.String(), "added Sticker (total 0.20 USDC)")
	k.handle(ctx, "add 2")
	assert.Equal(t, 2, k.session.Cart().Len())
	assert.Equal(t, "2.7", k.session.Cart().Total().String())

	out.Reset()
	k.handle(ctx, "cart")
	assert.Contains(t, out.String(), "Sticker")
	assert.Contains(t, out.String(), "2.70 USDC")

	out.Reset()
	k.handle(ctx, "remove 1")
	assert.Equal(t, 1, k.session.Cart().Len())
	assert.Equal(t, "Coffee", k.session.Cart().Items()[0].Name())
	assert.Contains(t, out.String(), "removed Sticker")
	assert.Contains(t, out.String(), " 1. Coffee")
	assert.Contains(t, out.String(), "2.50 USDC")
	assert.NotContains(t, out.String(), "Sticker  ")

	out.Reset()
	k.handle(ctx, "remove 1")
	assert.Contains(t, out.String(), "removed Coffee")
	assert.Contains(t, out.String(), "cart is empty")
}

func TestKiosk_BadInput(t *testing.T) {
	k, out := newTestKiosk(t)
	ctx := context.Background()

	k.handle(ctx, "add 9")
	assert.Contains(t, out.String(), "no item 9")

	out.Reset()
	k.handle(ctx, "remove")
	assert.Contains(t, out.String(), "usage: remove")

	out.Reset()
	k.handle(ctx, "dance")
	assert.Contains(t, out.String(), "unknown command")

	assert.Zero(t, k.session.Cart().Len())
}

func TestKiosk_CheckoutEmptyCart(t *testing.T) {
	k, out := newTestKiosk(t)

	k.handle(context.Background(), "checkout")
	assert.Contains(t, out.String(), "cart is empty")
	assert.Equal(t, checkout.StateBrowsing, k.session.Status().State)
}

func TestKiosk_Quit(t *testing.T) {
	k, _ := newTestKiosk(t)
	assert.False(t, k.handle(context.Background(), ""))
	assert.True(t, k.handle(context.Background(), "quit"))
}
