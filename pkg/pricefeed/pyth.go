// Package pricefeed fetches SOL/USD prices from Pyth Hermes, with Jupiter as a
// fallback, and converts USD totals into an indicative SOL amount.
package pricefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DroHadTo/Solanashop/metrics"
)

const (
	// DefaultHermesURL is the public Pyth Hermes endpoint
	DefaultHermesURL = "https://hermes.pyth.network"

	// SOLUSDFeedID is the Pyth SOL/USD price feed
	SOLUSDFeedID = "ef0d8b6fda2ceba41da15d4095d1da392a0d2f8ed0c6c7bc0f4cfac8c280b56d"

	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 10 * time.Second
)

var (
	ErrFeedNotFound = errors.New("price feed not found")
	ErrNoPrice      = errors.New("no price returned")
)

// PriceFeed is one entry of Hermes' latest_price_feeds
type PriceFeed struct {
	ID         string            `json:"id"`
	Price      Price             `json:"price"`
	EMAPrice   Price             `json:"ema_price"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Symbol returns the feed's symbol attribute, e.g. "Crypto.SOL/USD"
func (f PriceFeed) Symbol() string {
	return f.Attributes["symbol"]
}

// Price is a fixed-point price: Value × 10^Expo
type Price struct {
	Value       string `json:"price"`
	Conf        string `json:"conf"`
	Expo        int32  `json:"expo"`
	PublishTime int64  `json:"publish_time"`
}

// Decimal returns the price as a decimal
func (p Price) Decimal() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(p.Value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q: %w", p.Value, err)
	}
	return d.Shift(p.Expo), nil
}

// Confidence returns the confidence interval as a decimal
func (p Price) Confidence() decimal.Decimal {
	d, err := decimal.NewFromString(p.Conf)
	if err != nil {
		return decimal.Zero
	}
	return d.Shift(p.Expo)
}

// Published returns the publish time
func (p Price) Published() time.Time {
	return time.Unix(p.PublishTime, 0)
}

// Config contains configuration for the price clients
type Config struct {
	// BaseURL of the API; each client has its own default
	BaseURL string
	// Timeout is the HTTP client timeout; defaults to 10 seconds
	Timeout time.Duration
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// PythClient is an HTTP client for the Pyth Hermes API
type PythClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewPythClient creates a Hermes client
func NewPythClient(config Config) *PythClient {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultHermesURL
	}
	return &PythClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: newHTTPClient(config.Timeout),
	}
}

// LatestFeeds fetches the latest price of the given feeds. With no ids it
// fetches every feed with its attributes.
func (c *PythClient) LatestFeeds(ctx context.Context, ids ...string) ([]PriceFeed, error) {
	params := url.Values{}
	if len(ids) == 0 {
		params.Set("verbose", "true")
	}
	for _, id := range ids {
		params.Add("ids[]", strings.TrimPrefix(id, "0x"))
	}

	var feeds []PriceFeed
	if err := getJSON(ctx, c.httpClient, c.baseURL+"/api/latest_price_feeds?"+params.Encode(), &feeds); err != nil {
		metrics.PriceFeedRequestsTotal.WithLabelValues("pyth", "error").Inc()
		return nil, err
	}
	metrics.PriceFeedRequestsTotal.WithLabelValues("pyth", "ok").Inc()
	return feeds, nil
}

// FindFeeds returns the feeds whose symbol contains every term, ignoring case
func (c *PythClient) FindFeeds(ctx context.Context, terms ...string) ([]PriceFeed, error) {
	feeds, err := c.LatestFeeds(ctx)
	if err != nil {
		return nil, err
	}

	var matches []PriceFeed
	for _, feed := range feeds {
		symbol := strings.ToLower(feed.Symbol())
		if symbol == "" {
			continue
		}
		matched := true
		for _, term := range terms {
			if !strings.Contains(symbol, strings.ToLower(term)) {
				matched = false
				break
			}
		}
		if matched {
			matches = append(matches, feed)
		}
	}
	return matches, nil
}

// VerifyFeedID tries each candidate in order and returns the first that
// resolves to a price feed.
func (c *PythClient) VerifyFeedID(ctx context.Context, candidates ...string) (*PriceFeed, error) {
	var lastErr error = ErrFeedNotFound
	for _, id := range candidates {
		feeds, err := c.LatestFeeds(ctx, id)
		if err != nil {
			lastErr = fmt.Errorf("feed %s: %w", id, err)
			continue
		}
		if len(feeds) == 0 {
			lastErr = fmt.Errorf("feed %s: %w", id, ErrNoPrice)
			continue
		}
		return &feeds[0], nil
	}
	return nil, lastErr
}

// Price returns the latest price of a single feed
func (c *PythClient) Price(ctx context.Context, feedID string) (decimal.Decimal, error) {
	feeds, err := c.LatestFeeds(ctx, feedID)
	if err != nil {
		return decimal.Zero, err
	}
	if len(feeds) == 0 {
		return decimal.Zero, ErrNoPrice
	}
	return feeds[0].Price.Decimal()
}

func getJSON(ctx context.Context, client *http.Client, target string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrFeedNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("price API returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode prices: %w", err)
	}
	return nil
}
