package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DroHadTo/Solanashop/pkg/pricefeed"
)

const solFeed = `[{
  "id": "ef0d8b6fda2ceba41da15d4095d1da392a0d2f8ed0c6c7bc0f4cfac8c280b56d",
  "price": {"price": "15000000000", "conf": "5000000", "expo": -8, "publish_time": 1700000000},
  "ema_price": {"price": "15000000000", "conf": "5000000", "expo": -8, "publish_time": 1700000000},
  "attributes": {"symbol": "Crypto.SOL/USD"}
}]`

func clients(t *testing.T, hermesUp bool) (*pricefeed.PythClient, *pricefeed.JupiterClient) {
	t.Helper()
	hermes := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !hermesUp {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(solFeed))
	}))
	t.Cleanup(hermes.Close)

	jupiter := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"SOL":{"price":100}}}`))
	}))
	t.Cleanup(jupiter.Close)

	return pricefeed.NewPythClient(pricefeed.Config{BaseURL: hermes.URL}),
		pricefeed.NewJupiterClient(pricefeed.Config{BaseURL: jupiter.URL})
}

func TestRun_Find(t *testing.T) {
	pyth, jupiter := clients(t, true)
	out := &bytes.Buffer{}

	require.NoError(t, run(context.Background(), out, pyth, jupiter, pricefeed.SOLUSDFeedID, []string{"find"}))
	assert.Contains(t, out.String(), "Crypto.SOL/USD")
	assert.Contains(t, out.String(), "Suggested feed ID: "+pricefeed.SOLUSDFeedID)
}

func TestRun_Verify(t *testing.T) {
	pyth, jupiter := clients(t, true)
	out := &bytes.Buffer{}

	require.NoError(t, run(context.Background(), out, pyth, jupiter, pricefeed.SOLUSDFeedID, []string{"verify"}))
	assert.Contains(t, out.String(), "Price: $150.00")
}

func TestRun_ConvertFallsBackToJupiter(t *testing.T) {
	pyth, jupiter := clients(t, false)
	out := &bytes.Buffer{}

	require.NoError(t, run(context.Background(), out, pyth, jupiter, pricefeed.SOLUSDFeedID, []string{"convert", "10"}))
	assert.Contains(t, out.String(), "0.099600 SOL")
	assert.Contains(t, out.String(), "via jupiter")
	assert.Contains(t, out.String(), "0.4% slippage")
}

func TestRun_Usage(t *testing.T) {
	pyth, jupiter := clients(t, true)
	out := &bytes.Buffer{}

	assert.Error(t, run(context.Background(), out, pyth, jupiter, "", nil))
	assert.Error(t, run(context.Background(), out, pyth, jupiter, "", []string{"convert"}))
	assert.Error(t, run(context.Background(), out, pyth, jupiter, "", []string{"convert", "x"}))
	assert.Error(t, run(context.Background(), out, pyth, jupiter, "", []string{"launch"}))
}
