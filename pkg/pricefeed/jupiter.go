package pricefeed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/DroHadTo/Solanashop/metrics"
)

// DefaultJupiterURL is the Jupiter price API
const DefaultJupiterURL = "https://price.jup.ag/v4"

type jupiterResponse struct {
	Data map[string]struct {
		ID            string          `json:"id"`
		MintSymbol    string          `json:"mintSymbol"`
		VsTokenSymbol string          `json:"vsTokenSymbol"`
		Price         decimal.Decimal `json:"price"`
	} `json:"data"`
}

// JupiterClient reads token prices from the Jupiter price API
type JupiterClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewJupiterClient creates a Jupiter client
func NewJupiterClient(config Config) *JupiterClient {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultJupiterURL
	}
	return &JupiterClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: newHTTPClient(config.Timeout),
	}
}

// Price returns the USD price of the token with the given symbol
func (c *JupiterClient) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("ids", symbol)

	var resp jupiterResponse
	if err := getJSON(ctx, c.httpClient, c.baseURL+"/price?"+params.Encode(), &resp); err != nil {
		metrics.PriceFeedRequestsTotal.WithLabelValues("jupiter", "error").Inc()
		return decimal.Zero, err
	}

	entry, ok := resp.Data[symbol]
	if !ok || !entry.Price.IsPositive() {
		metrics.PriceFeedRequestsTotal.WithLabelValues("jupiter", "error").Inc()
		return decimal.Zero, fmt.Errorf("%w for %s", ErrNoPrice, symbol)
	}
	metrics.PriceFeedRequestsTotal.WithLabelValues("jupiter", "ok").Inc()
	return entry.Price, nil
}
