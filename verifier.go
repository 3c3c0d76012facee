package solanashop

import (
	"context"
	"errors"
	"strings"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Verifier performs single-shot payment verification: find the transaction
// carrying a reference, then check it pays the merchant the expected amount.
type Verifier struct {
	ledger    Ledger
	recipient solana.PublicKey
	splToken  solana.PublicKey
	decimals  int

	cache  *VerificationCache
	store  ResultStore
	logger *zap.Logger

	beforeVerifyHooks    []BeforeVerifyHook
	afterVerifyHooks     []AfterVerifyHook
	onVerifyFailureHooks []OnVerifyFailureHook
}

// VerifierOption configures a Verifier
type VerifierOption func(*Verifier)

// WithVerificationCache fronts the ledger with an in-memory cache
func WithVerificationCache(cache *VerificationCache) VerifierOption {
	return func(v *Verifier) {
		v.cache = cache
	}
}

// WithResultStore adds a shared store consulted before the ledger
func WithResultStore(store ResultStore) VerifierOption {
	return func(v *Verifier) {
		v.store = store
	}
}

// WithVerifierLogger sets the logger
func WithVerifierLogger(logger *zap.Logger) VerifierOption {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// WithDecimals overrides the token precision (USDC uses 6)
func WithDecimals(decimals int) VerifierOption {
	return func(v *Verifier) {
		v.decimals = decimals
	}
}

// WithBeforeVerifyHook registers a hook run before each verification
func WithBeforeVerifyHook(hook BeforeVerifyHook) VerifierOption {
	return func(v *Verifier) {
		v.beforeVerifyHooks = append(v.beforeVerifyHooks, hook)
	}
}

// WithAfterVerifyHook registers a hook run after each successful verification
func WithAfterVerifyHook(hook AfterVerifyHook) VerifierOption {
	return func(v *Verifier) {
		v.afterVerifyHooks = append(v.afterVerifyHooks, hook)
	}
}

// WithOnVerifyFailureHook registers a hook run after each failed verification
func WithOnVerifyFailureHook(hook OnVerifyFailureHook) VerifierOption {
	return func(v *Verifier) {
		v.onVerifyFailureHooks = append(v.onVerifyFailureHooks, hook)
	}
}

// NewVerifier creates a verifier for payments to recipient in splToken
func NewVerifier(ledger Ledger, recipient, splToken solana.PublicKey, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		ledger:    ledger,
		recipient: recipient,
		splToken:  splToken,
		decimals:  6,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ParseQuery validates a query and turns it into the expected transfer.
// Missing or malformed parameters return an ErrCodeInvalidRequest error.
func (v *Verifier) ParseQuery(query VerifyQuery) (Transfer, error) {
	reference := strings.TrimSpace(query.Reference)
	amount := strings.TrimSpace(query.Amount)
	if reference == "" || amount == "" {
		return Transfer{}, NewPaymentError(ErrCodeInvalidRequest, "Missing params", map[string]interface{}{
			"reference": reference != "",
			"amount":    amount != "",
		})
	}

	ref, err := solana.PublicKeyFromBase58(reference)
	if err != nil {
		return Transfer{}, NewPaymentError(ErrCodeInvalidRequest, "invalid reference: "+err.Error(), nil)
	}

	value, err := decimal.NewFromString(amount)
	if err != nil {
		return Transfer{}, NewPaymentError(ErrCodeInvalidRequest, "invalid amount: "+amount, nil)
	}
	if !value.IsPositive() {
		return Transfer{}, NewPaymentError(ErrCodeInvalidRequest, "amount must be positive", nil)
	}

	return Transfer{
		Recipient: v.recipient,
		Amount:    value,
		SPLToken:  v.splToken,
		Decimals:  v.decimals,
		Reference: ref,
	}, nil
}

// Verify performs one find+validate attempt. On success the result carries
// the transaction signature. Every failure returns a *PaymentError alongside
// a result with OK=false.
func (v *Verifier) Verify(ctx context.Context, query VerifyQuery) (*VerifyResult, error) {
	start := time.Now()

	transfer, err := v.ParseQuery(query)
	hookCtx := VerifyContext{Ctx: ctx, Query: query, Transfer: transfer, Timestamp: start}
	if err != nil {
		return v.fail(hookCtx, err)
	}

	for _, hook := range v.beforeVerifyHooks {
		result, err := hook(hookCtx)
		if err != nil {
			return v.fail(hookCtx, WrapPaymentError(ErrCodeInvalidRequest, err, nil))
		}
		if result != nil && result.Abort {
			return v.fail(hookCtx, NewPaymentError(ErrCodeInvalidRequest, result.Reason, nil))
		}
	}

	key := VerificationKey(transfer.Reference.String(), transfer.Amount.String())

	var done chan struct{}
	if v.cache != nil {
		status, cached, ch := v.cache.CheckAndMark(key)
		switch status {
		case StatusCached:
			return v.succeed(hookCtx, *cached, true), nil
		case StatusInFlight:
			shared, err := v.cache.WaitForResult(ctx, key, ch)
			if err != nil {
				return v.fail(hookCtx, WrapPaymentError(ErrCodeLedgerUnavailable, err, nil))
			}
			if shared != nil {
				return v.succeed(hookCtx, *shared, true), nil
			}
			// The other request failed; run our own attempt without marking.
		default:
			done = ch
		}
	}

	result, err := v.verifyTransfer(ctx, key, transfer)
	if err != nil {
		if done != nil {
			v.cache.Fail(key, done)
		}
		return v.fail(hookCtx, err)
	}

	if done != nil {
		v.cache.Complete(key, result, done)
	}
	return v.succeed(hookCtx, *result, false), nil
}

func (v *Verifier) verifyTransfer(ctx context.Context, key string, transfer Transfer) (*VerifyResult, error) {
	if v.store != nil {
		sig, found, err := v.store.Get(ctx, key)
		if err != nil {
			v.logger.Warn("result store lookup failed", zap.String("key", key), zap.Error(err))
		} else if found {
			return &VerifyResult{OK: true, Signature: sig}, nil
		}
	}

	sig, found, err := v.ledger.FindReference(ctx, transfer.Reference)
	if err != nil {
		if ErrorCode(err) == "" {
			err = WrapPaymentError(ErrCodeLedgerUnavailable, err, nil)
		}
		return nil, err
	}
	if !found {
		return nil, NewPaymentError(ErrCodeReferenceNotFound, "Not found", map[string]interface{}{
			"reference": transfer.Reference.String(),
		})
	}

	if err := v.ledger.ValidateTransfer(ctx, sig, transfer); err != nil {
		if ErrorCode(err) == "" {
			err = WrapPaymentError(ErrCodeLedgerUnavailable, err, nil)
		}
		return nil, err
	}

	if v.store != nil {
		if err := v.store.Set(ctx, key, sig.String()); err != nil {
			v.logger.Warn("result store write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return &VerifyResult{OK: true, Signature: sig.String()}, nil
}

func (v *Verifier) succeed(hookCtx VerifyContext, result VerifyResult, cached bool) *VerifyResult {
	resultCtx := VerifyResultContext{
		VerifyContext: hookCtx,
		Result:        result,
		Cached:        cached,
		Duration:      time.Since(hookCtx.Timestamp),
	}
	for _, hook := range v.afterVerifyHooks {
		if err := hook(resultCtx); err != nil {
			v.logger.Warn("after verify hook failed", zap.Error(err))
		}
	}

	v.logger.Info("payment verified",
		zap.String("reference", hookCtx.Query.Reference),
		zap.String("signature", result.Signature),
		zap.Bool("cached", cached),
	)
	return &result
}

func (v *Verifier) fail(hookCtx VerifyContext, err error) (*VerifyResult, error) {
	var pe *PaymentError
	if !errors.As(err, &pe) {
		pe = WrapPaymentError(ErrCodeLedgerUnavailable, err, nil)
	}

	failureCtx := VerifyFailureContext{
		VerifyContext: hookCtx,
		Error:         pe,
		Duration:      time.Since(hookCtx.Timestamp),
	}
	for _, hook := range v.onVerifyFailureHooks {
		hook(failureCtx)
	}

	v.logger.Debug("payment not verified",
		zap.String("reference", hookCtx.Query.Reference),
		zap.String("code", pe.Code),
		zap.Error(err),
	)
	return &VerifyResult{OK: false, Error: pe.Message}, pe
}
