// Package solanapay builds Solana Pay transfer requests: a payment URL naming
// the merchant, the amount, the token and a fresh one-time reference key the
// shop later searches the chain for.
package solanapay

import (
	"errors"
	"fmt"

	solana "github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	solanashop "github.com/DroHadTo/Solanashop"
)

var (
	ErrInvalidTotal     = errors.New("total must be greater than zero")
	ErrMissingRecipient = errors.New("recipient is required")
)

// PaymentRequest is an immutable Solana Pay transfer request
type PaymentRequest struct {
	Recipient solana.PublicKey
	Amount    decimal.Decimal
	SPLToken  solana.PublicKey
	Reference solana.PublicKey
	Label     string
	Message   string
	Memo      string
}

// URL returns the solana: URL for the request
func (r *PaymentRequest) URL() string {
	return EncodeURL(r)
}

// Transfer returns the on-chain transfer this request expects
func (r *PaymentRequest) Transfer(decimals int) solanashop.Transfer {
	return solanashop.Transfer{
		Recipient: r.Recipient,
		Amount:    r.Amount,
		SPLToken:  r.SPLToken,
		Decimals:  decimals,
		Reference: r.Reference,
		Memo:      r.Memo,
	}
}

// ReferenceFunc produces a new reference key
type ReferenceFunc func() (solana.PublicKey, error)

// RandomReference returns the public half of a freshly generated keypair
func RandomReference() (solana.PublicKey, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to generate reference: %w", err)
	}
	return key.PublicKey(), nil
}

// Builder creates payment requests for one merchant and token
type Builder struct {
	recipient solana.PublicKey
	splToken  solana.PublicKey
	label     string
	message   string
	memo      string
	reference ReferenceFunc
}

// Option configures a Builder
type Option func(*Builder)

// WithLabel sets the label shown by the wallet (usually the shop name)
func WithLabel(label string) Option {
	return func(b *Builder) {
		b.label = label
	}
}

// WithMessage sets the message shown by the wallet
func WithMessage(message string) Option {
	return func(b *Builder) {
		b.message = message
	}
}

// WithMemo sets the memo recorded on-chain with the payment
func WithMemo(memo string) Option {
	return func(b *Builder) {
		b.memo = memo
	}
}

// WithReferenceFunc replaces the reference generator
func WithReferenceFunc(fn ReferenceFunc) Option {
	return func(b *Builder) {
		b.reference = fn
	}
}

// NewBuilder creates a builder paying recipient in splToken
func NewBuilder(recipient, splToken solana.PublicKey, opts ...Option) (*Builder, error) {
	if recipient.IsZero() {
		return nil, ErrMissingRecipient
	}
	b := &Builder{
		recipient: recipient,
		splToken:  splToken,
		reference: RandomReference,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Build creates a request for total with a reference never handed out before
func (b *Builder) Build(total decimal.Decimal) (*PaymentRequest, error) {
	if !total.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTotal, total)
	}

	reference, err := b.reference()
	if err != nil {
		return nil, err
	}

	return &PaymentRequest{
		Recipient: b.recipient,
		Amount:    total,
		SPLToken:  b.splToken,
		Reference: reference,
		Label:     b.label,
		Message:   b.message,
		Memo:      b.memo,
	}, nil
}
