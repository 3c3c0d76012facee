// Package order hands a paid cart to the order-processing backend.
package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DroHadTo/Solanashop/cart"
)

const (
	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 10 * time.Second

	// Form field names
	FieldOrderData = "order-data"
	FieldReference = "reference"
	FieldSignature = "signature"
	FieldTotal     = "total"

	headerContentType  = "Content-Type"
	mimeFormURLEncoded = "application/x-www-form-urlencoded"
)

var (
	ErrMissingEndpoint = errors.New("order endpoint is required")
	ErrRejected        = errors.New("order rejected")
)

// Order is a paid cart ready for fulfilment
type Order struct {
	Items     []cart.LineItem
	Total     decimal.Decimal
	Reference string
	Signature string
}

// Receipt is returned by the order backend
type Receipt struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status,omitempty"`
}

// Submitter delivers orders
type Submitter interface {
	Submit(ctx context.Context, order Order) (*Receipt, error)
}

// EncodeItems renders the items sent in the order-data field
func EncodeItems(items []cart.LineItem) (string, error) {
	data, err := cart.MarshalItems(items)
	if err != nil {
		return "", fmt.Errorf("failed to encode order items: %w", err)
	}
	return string(data), nil
}

// Config contains configuration for the form submitter
type Config struct {
	// Endpoint is the URL the form is posted to
	Endpoint string
	// Timeout is the HTTP client timeout
	// Defaults to 10 seconds if not set
	Timeout time.Duration
}

// FormSubmitter posts orders as an HTML form would
type FormSubmitter struct {
	endpoint   string
	httpClient *http.Client
}

// NewFormSubmitter creates a form submitter
func NewFormSubmitter(config Config) (*FormSubmitter, error) {
	if config.Endpoint == "" {
		return nil, ErrMissingEndpoint
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &FormSubmitter{
		endpoint:   config.Endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Submit posts the order. Any non-2xx response is an ErrRejected error.
func (s *FormSubmitter) Submit(ctx context.Context, order Order) (*Receipt, error) {
	data, err := EncodeItems(order.Items)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set(FieldOrderData, data)
	form.Set(FieldReference, order.Reference)
	form.Set(FieldSignature, order.Signature)
	form.Set(FieldTotal, cart.FormatTotal(order.Total))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(headerContentType, mimeFormURLEncoded)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to submit order: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s: %s", ErrRejected, resp.Status, strings.TrimSpace(string(body)))
	}

	receipt := &Receipt{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, receipt); err != nil {
			// A plain confirmation page is still an accepted order
			return &Receipt{Status: resp.Status}, nil
		}
	}
	return receipt, nil
}
