package poller

import (
	"fmt"
	"time"

	solana "github.com/gagliardetto/solana-go"
)

// State is the lifecycle of one confirmation poll
type State int32

const (
	StateIdle State = iota
	StatePolling
	StateConfirmed
	StateCancelled
	StateRejected
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateConfirmed:
		return "confirmed"
	case StateCancelled:
		return "cancelled"
	case StateRejected:
		return "rejected"
	case StateExpired:
		return "expired"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Terminal reports whether the poll has finished
func (s State) Terminal() bool {
	return s >= StateConfirmed
}

// Outcome classifies a single ledger query
type Outcome int

const (
	// OutcomeNotFound means no transaction carries the reference yet
	OutcomeNotFound Outcome = iota
	// OutcomeConfirmed means a transaction was found and pays the transfer
	OutcomeConfirmed
	// OutcomeRejected means a transaction was found but does not pay the transfer
	OutcomeRejected
	// OutcomeFailed means the ledger could not be queried
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNotFound:
		return "not_found"
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Attempt records one iteration of the poll loop
type Attempt struct {
	Number    int
	Outcome   Outcome
	Signature solana.Signature
	Err       error
	At        time.Time
}

// Result is the final state of a poll
type Result struct {
	State     State
	Signature solana.Signature
	Attempts  int
	Err       error
}

// Message is the text shown to the customer for a finished poll
func (r Result) Message() string {
	switch r.State {
	case StateConfirmed:
		return "Payment confirmed! Submitting your order..."
	case StateExpired:
		return "Payment not detected in time. Please try again."
	case StateRejected:
		return "Payment found but it does not match the order."
	case StateCancelled:
		return "Checkout cancelled."
	default:
		return "Waiting for payment..."
	}
}
