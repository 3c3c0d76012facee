// Package poller watches the ledger for the payment of a checkout. It polls
// at a fixed interval until the payment is confirmed, the poll is cancelled,
// or a configured attempt or time budget runs out.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	solanashop "github.com/DroHadTo/Solanashop"
	"github.com/DroHadTo/Solanashop/metrics"
	"github.com/DroHadTo/Solanashop/pkg/clock"
)

// DefaultInterval is the fixed wait between ledger queries
const DefaultInterval = 1200 * time.Millisecond

// Config controls how long and how often a poll runs
type Config struct {
	// Interval between attempts
	Interval time.Duration
	// MaxAttempts caps the number of ledger queries; 0 means unlimited
	MaxAttempts int
	// Deadline caps the wall time of the poll; 0 means unlimited
	Deadline time.Duration
	// AbortOnRejection ends the poll when a found transaction fails
	// validation instead of continuing to look for a valid one
	AbortOnRejection bool
}

// AttemptHook is called after every attempt
type AttemptHook func(Attempt)

// StateHook is called on every state transition
type StateHook func(State)

// Poller runs confirmation polls against a ledger
type Poller struct {
	ledger       solanashop.Ledger
	config       Config
	clock        clock.Clock
	logger       *zap.Logger
	attemptHooks []AttemptHook
	stateHooks   []StateHook
}

// Option configures a Poller
type Option func(*Poller)

// WithConfig sets the poll configuration
func WithConfig(config Config) Option {
	return func(p *Poller) {
		p.config = config
	}
}

// WithClock replaces the clock used for waits and deadlines
func WithClock(c clock.Clock) Option {
	return func(p *Poller) {
		p.clock = c
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(p *Poller) {
		p.logger = logger
	}
}

// WithAttemptHook registers a hook called after each attempt
func WithAttemptHook(hook AttemptHook) Option {
	return func(p *Poller) {
		p.attemptHooks = append(p.attemptHooks, hook)
	}
}

// WithStateHook registers a hook called on each state transition
func WithStateHook(hook StateHook) Option {
	return func(p *Poller) {
		p.stateHooks = append(p.stateHooks, hook)
	}
}

// New creates a poller
func New(ledger solanashop.Ledger, opts ...Option) *Poller {
	p := &Poller{
		ledger: ledger,
		config: Config{Interval: DefaultInterval},
		clock:  clock.NewRealClock(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.config.Interval <= 0 {
		p.config.Interval = DefaultInterval
	}
	return p
}

// Run is a poll running in the background
type Run struct {
	state  atomic.Int32
	cancel context.CancelFunc
	done   chan struct{}
	result Result
}

// State returns the current state
func (r *Run) State() State {
	return State(r.state.Load())
}

// Cancel asks the poll to stop. It returns immediately; use Wait to block
// until the loop has exited.
func (r *Run) Cancel() {
	r.cancel()
}

// Done is closed when the poll has finished
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the poll finishes and returns its result
func (r *Run) Wait() Result {
	<-r.done
	return r.result
}

// Start begins polling for transfer in a new goroutine
func (p *Poller) Start(ctx context.Context, transfer solanashop.Transfer) *Run {
	ctx, cancel := context.WithCancel(ctx)
	run := &Run{cancel: cancel, done: make(chan struct{})}

	metrics.ActivePollers.Inc()
	go func() {
		defer metrics.ActivePollers.Dec()
		defer close(run.done)
		defer cancel()
		run.result = p.poll(ctx, transfer, run)
	}()
	return run
}

// Poll runs the loop in the calling goroutine and returns its result
func (p *Poller) Poll(ctx context.Context, transfer solanashop.Transfer) Result {
	return p.poll(ctx, transfer, &Run{})
}

func (p *Poller) poll(ctx context.Context, transfer solanashop.Transfer, run *Run) Result {
	logger := p.logger.With(zap.String("reference", transfer.Reference.String()))
	start := p.clock.Now()
	p.transition(run, StatePolling)

	var lastRejection error
	attempts := 0

	for {
		// Cancellation is checked before each query so a cancelled poll
		// never issues another request.
		if err := ctx.Err(); err != nil {
			return p.end(run, logger, Result{State: StateCancelled, Attempts: attempts, Err: err})
		}

		attempts++
		attempt := p.attempt(ctx, attempts, transfer)

		// A result that arrives after cancellation is discarded.
		if err := ctx.Err(); err != nil {
			return p.end(run, logger, Result{State: StateCancelled, Attempts: attempts, Err: err})
		}

		p.record(logger, attempt)

		switch attempt.Outcome {
		case OutcomeConfirmed:
			return p.end(run, logger, Result{State: StateConfirmed, Signature: attempt.Signature, Attempts: attempts})
		case OutcomeRejected:
			lastRejection = attempt.Err
			if p.config.AbortOnRejection {
				return p.end(run, logger, Result{State: StateRejected, Signature: attempt.Signature, Attempts: attempts, Err: attempt.Err})
			}
		}

		if p.budgetSpent(attempts, start) {
			err := solanashop.NewPaymentError(solanashop.ErrCodePollExpired, solanashop.ErrPollExpired.Error(), map[string]interface{}{
				"attempts": attempts,
			})
			if lastRejection != nil {
				err.Err = lastRejection
			}
			return p.end(run, logger, Result{State: StateExpired, Attempts: attempts, Err: err})
		}

		select {
		case <-ctx.Done():
			return p.end(run, logger, Result{State: StateCancelled, Attempts: attempts, Err: ctx.Err()})
		case <-p.clock.After(p.config.Interval):
		}
	}
}

func (p *Poller) attempt(ctx context.Context, number int, transfer solanashop.Transfer) Attempt {
	attempt := Attempt{Number: number, At: p.clock.Now()}

	sig, found, err := p.ledger.FindReference(ctx, transfer.Reference)
	if err != nil {
		attempt.Outcome, attempt.Err = OutcomeFailed, err
		return attempt
	}
	if !found {
		attempt.Outcome = OutcomeNotFound
		return attempt
	}
	attempt.Signature = sig

	if err := p.ledger.ValidateTransfer(ctx, sig, transfer); err != nil {
		attempt.Err = err
		if errors.Is(err, solanashop.ErrTransferInvalid) {
			attempt.Outcome = OutcomeRejected
		} else {
			attempt.Outcome = OutcomeFailed
		}
		return attempt
	}

	attempt.Outcome = OutcomeConfirmed
	return attempt
}

func (p *Poller) budgetSpent(attempts int, start time.Time) bool {
	if p.config.MaxAttempts > 0 && attempts >= p.config.MaxAttempts {
		return true
	}
	if p.config.Deadline > 0 && p.clock.Since(start)+p.config.Interval >= p.config.Deadline {
		return true
	}
	return false
}

func (p *Poller) record(logger *zap.Logger, attempt Attempt) {
	metrics.PollAttemptsTotal.WithLabelValues(attempt.Outcome.String()).Inc()

	switch attempt.Outcome {
	case OutcomeRejected:
		logger.Warn("found transaction does not match transfer",
			zap.Int("attempt", attempt.Number),
			zap.String("signature", attempt.Signature.String()),
			zap.Error(attempt.Err),
		)
	case OutcomeFailed:
		logger.Warn("ledger query failed", zap.Int("attempt", attempt.Number), zap.Error(attempt.Err))
	default:
		logger.Debug("poll attempt", zap.Int("attempt", attempt.Number), zap.Stringer("outcome", attempt.Outcome))
	}

	for _, hook := range p.attemptHooks {
		hook(attempt)
	}
}

func (p *Poller) end(run *Run, logger *zap.Logger, result Result) Result {
	p.transition(run, result.State)
	metrics.PollSessionsTotal.WithLabelValues(result.State.String()).Inc()

	fields := []zap.Field{zap.Stringer("state", result.State), zap.Int("attempts", result.Attempts)}
	if !result.Signature.IsZero() {
		fields = append(fields, zap.String("signature", result.Signature.String()))
	}
	if result.Err != nil {
		fields = append(fields, zap.Error(result.Err))
	}
	logger.Info("poll finished", fields...)
	return result
}

func (p *Poller) transition(run *Run, state State) {
	run.state.Store(int32(state))
	for _, hook := range p.stateHooks {
		hook(state)
	}
}

// String describes the configuration for logs
func (c Config) String() string {
	return fmt.Sprintf("interval=%s max_attempts=%d deadline=%s abort_on_rejection=%t",
		c.Interval, c.MaxAttempts, c.Deadline, c.AbortOnRejection)
}
