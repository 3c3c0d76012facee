package orderdesk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	solanashop "github.com/DroHadTo/Solanashop"
)

// PaymentVerifier confirms that a reference was paid
type PaymentVerifier interface {
	Verify(ctx context.Context, query solanashop.VerifyQuery) (*solanashop.VerifyResult, error)
}

// Submission is an order as posted by a kiosk
type Submission struct {
	OrderData string
	Reference string
	Signature string
	Total     string
}

// Service accepts orders
type Service struct {
	store    Store
	verifier PaymentVerifier
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates an order service
func NewService(store Store, verifier PaymentVerifier, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		verifier: verifier,
		logger:   zap.NewNop(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates, verifies and stores an order
func (s *Service) Submit(ctx context.Context, sub Submission) (*Order, error) {
	reference := strings.TrimSpace(sub.Reference)
	if reference == "" || strings.TrimSpace(sub.Total) == "" {
		return nil, &ValidationError{Errors: []string{"reference and total are required"}}
	}

	items, err := ParseItems(sub.OrderData)
	if err != nil {
		return nil, err
	}

	total, err := decimal.NewFromString(strings.TrimSpace(sub.Total))
	if err != nil {
		return nil, &ValidationError{Errors: []string{fmt.Sprintf("total: %v", err)}}
	}
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Price)
	}
	if !sum.Round(2).Equal(total.Round(2)) {
		return nil, &ValidationError{Errors: []string{
			fmt.Sprintf("total %s does not match items %s", total.StringFixed(2), sum.StringFixed(2)),
		}}
	}

	if _, err := s.store.GetByReference(ctx, reference); err == nil {
		return nil, ErrDuplicateReference
	} else if !errors.Is(err, ErrOrderNotFound) {
		return nil, err
	}

	result, err := s.verifier.Verify(ctx, solanashop.VerifyQuery{Reference: reference, Amount: total.String()})
	if errors.Is(err, solanashop.ErrLedgerUnavailable) {
		s.logger.Warn("payment verifier unavailable", zap.String("reference", reference), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrVerifierUnavailable, err)
	}
	if err != nil {
		s.logger.Info("order payment not verified", zap.String("reference", reference), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPaymentNotVerified, err)
	}
	if sub.Signature != "" && sub.Signature != result.Signature {
		s.logger.Warn("order signature differs from ledger",
			zap.String("reference", reference),
			zap.String("submitted", sub.Signature),
			zap.String("verified", result.Signature),
		)
		return nil, fmt.Errorf("%w: signature mismatch", ErrPaymentNotVerified)
	}

	order := &Order{
		ID:        s.newID(),
		Reference: reference,
		Signature: result.Signature,
		Total:     total,
		Items:     items,
		Status:    StatusReceived,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Create(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("order received",
		zap.String("order_id", order.ID),
		zap.String("reference", reference),
		zap.String("total", total.StringFixed(2)),
		zap.Int("items", len(items)),
	)
	return order, nil
}

// Get returns a stored order
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.store.Get(ctx, id)
}
