package solanashop

import (
	"context"
	"time"
)

// ============================================================================
// Verifier Hook Context Types
// ============================================================================

// VerifyContext contains information passed to verify hooks
type VerifyContext struct {
	Ctx       context.Context
	Query     VerifyQuery
	Transfer  Transfer
	Timestamp time.Time
}

// VerifyResultContext contains a successful verification and its context
type VerifyResultContext struct {
	VerifyContext
	Result   VerifyResult
	Cached   bool
	Duration time.Duration
}

// VerifyFailureContext contains a failed verification and its context
type VerifyFailureContext struct {
	VerifyContext
	Error    error
	Duration time.Duration
}

// ============================================================================
// Verifier Hook Result Types
// ============================================================================

// BeforeVerifyHookResult represents the result of a "before" hook
// If Abort is true, the verification is skipped and fails with the given Reason
type BeforeVerifyHookResult struct {
	Abort  bool
	Reason string
}

// ============================================================================
// Verifier Hook Function Types
// ============================================================================

// BeforeVerifyHook is called before the ledger is queried
type BeforeVerifyHook func(VerifyContext) (*BeforeVerifyHookResult, error)

// AfterVerifyHook is called after a successful verification
// Any error returned will be logged but will not affect the result
type AfterVerifyHook func(VerifyResultContext) error

// OnVerifyFailureHook is called when a verification fails
type OnVerifyFailureHook func(VerifyFailureContext)
