package pricefeed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const solFeed = `{
    "id": "ef0d8b6fda2ceba41da15d4095d1da392a0d2f8ed0c6c7bc0f4cfac8c280b56d",
    "price": {"price": "15012345678", "conf": "5000000", "expo": -8, "publish_time": 1700000000},
    "ema_price": {"price": "15000000000", "conf": "4000000", "expo": -8, "publish_time": 1700000000},
    "attributes": {"symbol": "Crypto.SOL/USD", "asset_type": "Crypto"}
  }`

const btcFeed = `{
    "id": "e62df6c8b4a85fe1a67db44dc12de5db330f7ac66b72dc658afedf0f4a415b43",
    "price": {"price": "3500000000000", "conf": "1000000", "expo": -8, "publish_time": 1700000000},
    "ema_price": {"price": "3500000000000", "conf": "1000000", "expo": -8, "publish_time": 1700000000},
    "attributes": {"symbol": "Crypto.BTC/USD", "asset_type": "Crypto"}
  }`

func newHermes(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/latest_price_feeds" {
			http.NotFound(w, r)
			return
		}
		ids := r.URL.Query()["ids[]"]
		switch {
		case len(ids) == 0:
			if r.URL.Query().Get("verbose") != "true" {
				t.Errorf("Expected verbose listing, got %s", r.URL.RawQuery)
			}
			w.Write([]byte("[" + solFeed + "," + btcFeed + "]"))
		case ids[0] == SOLUSDFeedID:
			w.Write([]byte("[" + solFeed + "]"))
		default:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Price ids not found"))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestPythClient_FindFeeds(t *testing.T) {
	client := NewPythClient(Config{BaseURL: newHermes(t).URL})

	feeds, err := client.FindFeeds(context.Background(), "sol", "usd")
	require.NoError(t, err)
	require.Len(t, feeds, 1)
	assert.Equal(t, SOLUSDFeedID, feeds[0].ID)
	assert.Equal(t, "Crypto.SOL/USD", feeds[0].Symbol())

	price, err := feeds[0].Price.Decimal()
	require.NoError(t, err)
	assert.Equal(t, "150.12345678", price.String())
	assert.Equal(t, "0.05", feeds[0].Price.Confidence().String())
	assert.Equal(t, int64(1700000000), feeds[0].Price.Published().Unix())
}

func TestPythClient_VerifyFeedID(t *testing.T) {
	client := NewPythClient(Config{BaseURL: newHermes(t).URL})

	feed, err := client.VerifyFeedID(context.Background(), "deadbeef", "0x"+SOLUSDFeedID)
	require.NoError(t, err)
	assert.Equal(t, SOLUSDFeedID, feed.ID)

	_, err = client.VerifyFeedID(context.Background(), "deadbeef")
	assert.Error(t, err)
}

func TestPythClient_Price(t *testing.T) {
	client := NewPythClient(Config{BaseURL: newHermes(t).URL})

	price, err := client.Price(context.Background(), SOLUSDFeedID)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("150.12345678")))
}

func TestJupiterClient_Price(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/price" || r.URL.Query().Get("ids") != "SOL" {
			t.Errorf("Unexpected request %s", r.URL)
		}
		w.Write([]byte(`{"data":{"SOL":{"id":"So11111111111111111111111111111111111111112","mintSymbol":"SOL","vsToken":"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v","vsTokenSymbol":"USDC","price":148.5}},"timeTaken":0.001}`))
	}))
	defer server.Close()

	client := NewJupiterClient(Config{BaseURL: server.URL})
	price, err := client.Price(context.Background(), "SOL")
	require.NoError(t, err)
	assert.Equal(t, "148.5", price.String())

	_, err = client.Price(context.Background(), "BONK")
	assert.ErrorIs(t, err, ErrNoPrice)
}

func fixed(price string) Source {
	return SourceFunc(func(context.Context) (decimal.Decimal, error) {
		return decimal.RequireFromString(price), nil
	})
}

func failing(err error) Source {
	return SourceFunc(func(context.Context) (decimal.Decimal, error) {
		return decimal.Zero, err
	})
}

func TestConverter_USDToSOL(t *testing.T) {
	converter := NewConverter([]Source{fixed("150")})

	quote, err := converter.USDToSOL(context.Background(), decimal.NewFromInt(10))
	require.NoError(t, err)
	// 10 / 150 × 0.996
	assert.Equal(t, "0.0664", quote.SOL.String())
	assert.Equal(t, 0, quote.Source)
}

func TestConverter_Fallback(t *testing.T) {
	converter := NewConverter([]Source{failing(errors.New("hermes down")), fixed("100")},
		WithSlippage(decimal.Zero))

	quote, err := converter.USDToSOL(context.Background(), decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.Equal(t, 1, quote.Source)
	assert.Equal(t, "0.05", quote.SOL.String())
}

func TestConverter_AllFail(t *testing.T) {
	down := errors.New("down")
	converter := NewConverter([]Source{failing(down), fixed("0")})

	_, err := converter.USDToSOL(context.Background(), decimal.NewFromInt(5))
	assert.ErrorIs(t, err, down)
	assert.ErrorIs(t, err, ErrNoPrice)

	_, err = converter.USDToSOL(context.Background(), decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidUSD)
}

func TestConverter_WithClients(t *testing.T) {
	pyth := NewPythClient(Config{BaseURL: newHermes(t).URL})
	converter := NewConverter([]Source{PythSource(pyth, SOLUSDFeedID)}, WithSlippage(decimal.Zero))

	quote, err := converter.USDToSOL(context.Background(), decimal.RequireFromString("150.12345678"))
	require.NoError(t, err)
	assert.Equal(t, "1", quote.SOL.String())
}
