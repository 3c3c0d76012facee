package solanapay

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	solana "github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// Scheme is the Solana Pay URL scheme
const Scheme = "solana"

var ErrInvalidURL = errors.New("invalid Solana Pay URL")

// EncodeURL renders a transfer request URL. Parameters keep a fixed order and
// empty optional fields are omitted.
func EncodeURL(r *PaymentRequest) string {
	var params []string
	add := func(key, value string) {
		if value != "" {
			params = append(params, key+"="+escape(value))
		}
	}

	if !r.Amount.IsZero() {
		add("amount", r.Amount.String())
	}
	if !r.SPLToken.IsZero() {
		add("spl-token", r.SPLToken.String())
	}
	if !r.Reference.IsZero() {
		add("reference", r.Reference.String())
	}
	add("label", r.Label)
	add("message", r.Message)
	add("memo", r.Memo)

	u := Scheme + ":" + r.Recipient.String()
	if len(params) > 0 {
		u += "?" + strings.Join(params, "&")
	}
	return u
}

// escape percent-encodes a parameter value, spaces as %20
func escape(value string) string {
	return strings.ReplaceAll(url.QueryEscape(value), "+", "%20")
}

// ParseURL decodes a transfer request URL
func ParseURL(raw string) (*PaymentRequest, error) {
	prefix := Scheme + ":"
	if !strings.HasPrefix(raw, prefix) {
		return nil, fmt.Errorf("%w: protocol must be %s", ErrInvalidURL, prefix)
	}

	rest := strings.TrimPrefix(raw, prefix)
	pathPart, queryPart, _ := strings.Cut(rest, "?")

	recipient, err := solana.PublicKeyFromBase58(pathPart)
	if err != nil {
		return nil, fmt.Errorf("%w: recipient: %v", ErrInvalidURL, err)
	}

	query, err := url.ParseQuery(queryPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	req := &PaymentRequest{
		Recipient: recipient,
		Label:     query.Get("label"),
		Message:   query.Get("message"),
		Memo:      query.Get("memo"),
	}

	if amount := query.Get("amount"); amount != "" {
		req.Amount, err = decimal.NewFromString(amount)
		if err != nil || req.Amount.IsNegative() {
			return nil, fmt.Errorf("%w: amount %q", ErrInvalidURL, amount)
		}
	}

	if token := query.Get("spl-token"); token != "" {
		req.SPLToken, err = solana.PublicKeyFromBase58(token)
		if err != nil {
			return nil, fmt.Errorf("%w: spl-token: %v", ErrInvalidURL, err)
		}
	}

	if reference := query.Get("reference"); reference != "" {
		req.Reference, err = solana.PublicKeyFromBase58(reference)
		if err != nil {
			return nil, fmt.Errorf("%w: reference: %v", ErrInvalidURL, err)
		}
	}

	return req, nil
}
