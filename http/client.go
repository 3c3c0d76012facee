package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	solanashop "github.com/DroHadTo/Solanashop"
)

const (
	headerAccept        = "Accept"
	mimeApplicationJSON = "application/json"
)

// VerifierClient calls a remote verifier's GET /verify
type VerifierClient struct {
	URL        string
	HTTPClient *http.Client
}

// NewVerifierClient creates a client for the verifier at baseURL
func NewVerifierClient(baseURL string, timeout time.Duration) *VerifierClient {
	httpCli := &http.Client{}
	if timeout > 0 {
		httpCli.Timeout = timeout
	}
	return &VerifierClient{
		URL:        strings.TrimRight(baseURL, "/"),
		HTTPClient: httpCli,
	}
}

// Verify asks the verifier whether a payment for reference and amount has
// landed. A 404 is returned as a reference_not_found PaymentError, a 400 as
// invalid_request.
func (c *VerifierClient) Verify(ctx context.Context, query solanashop.VerifyQuery) (*solanashop.VerifyResult, error) {
	params := url.Values{}
	params.Set("reference", query.Reference)
	params.Set("amount", query.Amount)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/verify?%s", c.URL, params.Encode()), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(headerAccept, mimeApplicationJSON)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, solanashop.WrapPaymentError(solanashop.ErrCodeLedgerUnavailable,
			fmt.Errorf("failed to send verify request: %w", err), nil)
	}
	defer resp.Body.Close()

	var result solanashop.VerifyResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, solanashop.WrapPaymentError(solanashop.ErrCodeLedgerUnavailable,
			fmt.Errorf("failed to decode verify response (%s): %w", resp.Status, err), nil)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		if !result.OK || result.Signature == "" {
			return &result, solanashop.NewPaymentError(solanashop.ErrCodeLedgerUnavailable, "verifier returned no signature", nil)
		}
		return &result, nil
	case http.StatusBadRequest:
		return &result, solanashop.NewPaymentError(solanashop.ErrCodeInvalidRequest, result.Error, nil)
	case http.StatusNotFound:
		return &result, solanashop.NewPaymentError(solanashop.ErrCodeReferenceNotFound, result.Error, nil)
	default:
		return &result, solanashop.NewPaymentError(solanashop.ErrCodeLedgerUnavailable,
			fmt.Sprintf("failed to verify payment: %s", resp.Status), nil)
	}
}
