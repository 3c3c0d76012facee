// Package orderdesk receives paid orders from kiosks. Each order is checked
// against a JSON schema, its payment is re-verified with the verifier, and
// it is stored once per payment reference.
package orderdesk

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrDuplicateReference  = errors.New("an order already exists for this reference")
	ErrInvalidOrder        = errors.New("invalid order")
	ErrPaymentNotVerified  = errors.New("payment not verified")
	ErrVerifierUnavailable = errors.New("payment verifier unavailable")
)

// Status values of a stored order
const (
	StatusReceived = "received"
)

// Item is one purchased product
type Item struct {
	Product string          `json:"product"`
	Price   decimal.Decimal `json:"price"`
}

// Order is a stored order
type Order struct {
	ID        string          `json:"order_id"`
	Reference string          `json:"reference"`
	Signature string          `json:"signature"`
	Total     decimal.Decimal `json:"total"`
	Items     []Item          `json:"items"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store persists orders. Create must fail with ErrDuplicateReference when an
// order with the same reference exists.
type Store interface {
	Create(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	GetByReference(ctx context.Context, reference string) (*Order, error)
}
