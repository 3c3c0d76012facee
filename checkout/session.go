// Package checkout drives one storefront's payment flow: build a payment
// request for the cart, show it, watch the ledger, and submit the order once
// the payment is confirmed. A session owns at most one running poll.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DroHadTo/Solanashop/cart"
	"github.com/DroHadTo/Solanashop/metrics"
	"github.com/DroHadTo/Solanashop/order"
	"github.com/DroHadTo/Solanashop/poller"
	"github.com/DroHadTo/Solanashop/qr"
	"github.com/DroHadTo/Solanashop/solanapay"
)

// DefaultSubmitDelay is the pause between confirmation and order submission,
// long enough for the customer to read the confirmation
const DefaultSubmitDelay = time.Second

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrNothingToResubmit = errors.New("no failed order to resubmit")
)

// State is the session's position in the checkout flow
type State string

const (
	StateBrowsing        State = "browsing"
	StateAwaitingPayment State = "awaiting_payment"
	StatePaid            State = "paid"
	StateOrderPlaced     State = "order_placed"
	StateOrderFailed     State = "order_failed"
	StateCancelled       State = "cancelled"
	StateExpired         State = "expired"
	StateRejected        State = "rejected"
)

// Settled reports whether the checkout has reached a resting state
func (s State) Settled() bool {
	switch s {
	case StateAwaitingPayment, StatePaid:
		return false
	default:
		return true
	}
}

// Checkout is what the customer is shown after starting a checkout
type Checkout struct {
	Request *solanapay.PaymentRequest
	Widget  qr.Widget
}

// Status is a snapshot of the session
type Status struct {
	SessionID string
	State     State
	Request   *solanapay.PaymentRequest
	Signature solana.Signature
	Receipt   *order.Receipt
	Err       error
	Message   string
}

// UpdateHook is called after every state change
type UpdateHook func(Status)

// Session owns a cart, the in-flight payment request and its poll
type Session struct {
	id        string
	cart      *cart.Cart
	builder   *solanapay.Builder
	presenter qr.Presenter
	poller    *poller.Poller
	submitter order.Submitter
	decimals  int
	delay     time.Duration
	logger    *zap.Logger

	active atomic.Int32
	flow   sync.Mutex

	mu      sync.Mutex
	gen     uint64
	state   State
	request *solanapay.PaymentRequest
	items   []cart.LineItem
	run     *poller.Run
	settled chan struct{}
	sig     solana.Signature
	receipt *order.Receipt
	err     error
	message string
	hooks   []UpdateHook
}

// Option configures a Session
type Option func(*Session)

// WithSubmitDelay sets the pause between confirmation and submission
func WithSubmitDelay(d time.Duration) Option {
	return func(s *Session) {
		s.delay = d
	}
}

// WithPresenter replaces the QR presenter
func WithPresenter(p qr.Presenter) Option {
	return func(s *Session) {
		s.presenter = p
	}
}

// WithDecimals sets the token precision (USDC uses 6)
func WithDecimals(decimals int) Option {
	return func(s *Session) {
		s.decimals = decimals
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithUpdateHook registers a hook called after each state change
func WithUpdateHook(hook UpdateHook) Option {
	return func(s *Session) {
		s.hooks = append(s.hooks, hook)
	}
}

// New creates a session
func New(c *cart.Cart, builder *solanapay.Builder, p *poller.Poller, submitter order.Submitter, opts ...Option) *Session {
	s := &Session{
		id:        uuid.NewString(),
		cart:      c,
		builder:   builder,
		poller:    p,
		submitter: submitter,
		decimals:  6,
		delay:     DefaultSubmitDelay,
		logger:    zap.NewNop(),
		state:     StateBrowsing,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.presenter == nil {
		s.presenter = qr.DefaultPresenter(s.logger)
	}
	s.logger = s.logger.With(zap.String("session", s.id))
	return s
}

// ID returns the session identifier
func (s *Session) ID() string { return s.id }

// Cart returns the session's cart
func (s *Session) Cart() *cart.Cart { return s.cart }

// ActivePolls returns the number of poll loops still running
func (s *Session) ActivePolls() int { return int(s.active.Load()) }

// Checkout starts a payment for the current cart. A poll already running
// for an earlier checkout is cancelled, and has exited, before the new one
// starts. A paid checkout is allowed to finish its order submission first,
// which may leave the cart empty.
func (s *Session) Checkout(ctx context.Context) (*Checkout, error) {
	s.flow.Lock()
	defer s.flow.Unlock()

	if s.cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	s.stopCurrent()

	items := s.cart.Items()
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	req, err := s.builder.Build(cart.Sum(items))
	if err != nil {
		return nil, fmt.Errorf("failed to build payment request: %w", err)
	}

	widget := s.presenter.Present(req.URL())
	metrics.QRRendersTotal.WithLabelValues(widget.Renderer).Inc()

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.request = req
	s.items = items
	s.sig = solana.Signature{}
	s.receipt = nil
	s.err = nil
	settled := make(chan struct{})
	s.settled = settled
	s.active.Add(1)
	run := s.poller.Start(ctx, req.Transfer(s.decimals))
	s.run = run
	s.setStateLocked(StateAwaitingPayment, "Waiting for payment...")
	status := s.statusLocked()
	s.mu.Unlock()

	s.notify(status)
	s.logger.Info("checkout started",
		zap.String("reference", req.Reference.String()),
		zap.String("amount", req.Amount.String()),
		zap.String("qr", widget.Renderer),
	)

	go s.await(ctx, gen, run, settled)

	return &Checkout{Request: req, Widget: widget}, nil
}

// Cancel stops the running poll, if any, and waits for it to exit
func (s *Session) Cancel() {
	s.flow.Lock()
	defer s.flow.Unlock()
	s.stopCurrent()
}

// stopCurrent cancels the current poll and blocks until its loop has exited
func (s *Session) stopCurrent() {
	s.mu.Lock()
	run := s.run
	settled := s.settled
	s.mu.Unlock()

	if run == nil {
		return
	}
	run.Cancel()
	run.Wait()
	if settled != nil {
		<-settled
	}
}

func (s *Session) await(ctx context.Context, gen uint64, run *poller.Run, settled chan struct{}) {
	defer close(settled)

	result := run.Wait()
	s.active.Add(-1)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.sig = result.Signature

	switch result.State {
	case poller.StateConfirmed:
		s.setStateLocked(StatePaid, result.Message())
	case poller.StateExpired:
		s.err = result.Err
		s.setStateLocked(StateExpired, result.Message())
	case poller.StateRejected:
		s.err = result.Err
		s.setStateLocked(StateRejected, result.Message())
	default:
		s.setStateLocked(StateCancelled, result.Message())
	}
	status := s.statusLocked()
	s.mu.Unlock()
	s.notify(status)

	if result.State == poller.StateConfirmed {
		s.waitDelay(ctx)
		s.submit(ctx, gen)
	}
}

func (s *Session) waitDelay(ctx context.Context) {
	if s.delay <= 0 {
		return
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (s *Session) submit(ctx context.Context, gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	o := order.Order{
		Items:     s.items,
		Total:     s.request.Amount,
		Reference: s.request.Reference.String(),
		Signature: s.sig.String(),
	}
	s.mu.Unlock()

	receipt, err := s.submitter.Submit(ctx, o)

	s.mu.Lock()
	if err != nil {
		metrics.OrderSubmissionsTotal.WithLabelValues("failed").Inc()
		s.err = err
		s.setStateLocked(StateOrderFailed, "Payment received but the order could not be submitted. Please retry.")
		s.logger.Error("order submission failed", zap.String("reference", o.Reference), zap.Error(err))
	} else {
		metrics.OrderSubmissionsTotal.WithLabelValues("ok").Inc()
		s.receipt = receipt
		s.err = nil
		s.setStateLocked(StateOrderPlaced, "Thank you! Your order has been placed.")
		s.logger.Info("order submitted", zap.String("reference", o.Reference), zap.String("signature", o.Signature))
	}
	status := s.statusLocked()
	s.mu.Unlock()

	if err == nil {
		s.cart.Clear()
	}
	s.notify(status)
}

// Resubmit retries a failed order submission. The payment is not polled again.
func (s *Session) Resubmit(ctx context.Context) error {
	s.flow.Lock()
	defer s.flow.Unlock()

	s.mu.Lock()
	if s.state != StateOrderFailed {
		s.mu.Unlock()
		return ErrNothingToResubmit
	}
	gen := s.gen
	s.mu.Unlock()

	s.submit(ctx, gen)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Wait blocks until the current checkout settles or ctx is done
func (s *Session) Wait(ctx context.Context) (Status, error) {
	s.mu.Lock()
	settled := s.settled
	s.mu.Unlock()

	if settled != nil {
		select {
		case <-settled:
		case <-ctx.Done():
			return s.Status(), ctx.Err()
		}
	}
	return s.Status(), nil
}

// Status returns a snapshot of the session
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Session) setStateLocked(state State, message string) {
	s.state = state
	s.message = message
}

func (s *Session) statusLocked() Status {
	return Status{
		SessionID: s.id,
		State:     s.state,
		Request:   s.request,
		Signature: s.sig,
		Receipt:   s.receipt,
		Err:       s.err,
		Message:   s.message,
	}
}

func (s *Session) notify(status Status) {
	for _, hook := range s.hooks {
		hook(status)
	}
}
