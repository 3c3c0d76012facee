package solanashop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	mu          sync.Mutex
	signature   solana.Signature
	found       bool
	findErr     error
	validateErr error
	findCalls   int32
	delay       time.Duration
	lastAmount  string
}

func (l *fakeLedger) FindReference(ctx context.Context, reference solana.PublicKey) (solana.Signature, bool, error) {
	atomic.AddInt32(&l.findCalls, 1)
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	return l.signature, l.found, l.findErr
}

func (l *fakeLedger) ValidateTransfer(ctx context.Context, sig solana.Signature, transfer Transfer) error {
	l.mu.Lock()
	l.lastAmount = transfer.Amount.String()
	l.mu.Unlock()
	return l.validateErr
}

type mapStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (s *mapStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sig, ok := s.data[key]
	return sig, ok, nil
}

func (s *mapStore) Set(ctx context.Context, key string, sig string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = sig
	return nil
}

func newTestVerifier(ledger Ledger, opts ...VerifierOption) *Verifier {
	return NewVerifier(ledger, solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), opts...)
}

func testSignature() solana.Signature {
	var sig solana.Signature
	for i := range sig {
		sig[i] = byte(i + 1)
	}
	return sig
}

func TestVerifier_Success(t *testing.T) {
	ledger := &fakeLedger{signature: testSignature(), found: true}
	v := newTestVerifier(ledger)

	result, err := v.Verify(context.Background(), VerifyQuery{
		Reference: solana.NewWallet().PublicKey().String(),
		Amount:    "0.20",
	})
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Equal(t, testSignature().String(), result.Signature)
	assert.Equal(t, "0.2", ledger.lastAmount)
}

func TestVerifier_NotFound(t *testing.T) {
	v := newTestVerifier(&fakeLedger{})

	result, err := v.Verify(context.Background(), VerifyQuery{
		Reference: solana.NewWallet().PublicKey().String(),
		Amount:    "0.20",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReferenceNotFound))
	assert.False(t, result.OK)
	assert.Equal(t, "Not found", result.Error)
}

func TestVerifier_ValidationFailed(t *testing.T) {
	ledger := &fakeLedger{
		signature:   testSignature(),
		found:       true,
		validateErr: NewPaymentError(ErrCodeTransferInvalid, "amount not transferred", nil),
	}
	v := newTestVerifier(ledger)

	result, err := v.Verify(context.Background(), VerifyQuery{
		Reference: solana.NewWallet().PublicKey().String(),
		Amount:    "0.20",
	})
	assert.True(t, errors.Is(err, ErrTransferInvalid))
	assert.False(t, result.OK)
}

func TestVerifier_LedgerErrorIsUnavailable(t *testing.T) {
	v := newTestVerifier(&fakeLedger{findErr: errors.New("429 too many requests")})

	_, err := v.Verify(context.Background(), VerifyQuery{
		Reference: solana.NewWallet().PublicKey().String(),
		Amount:    "1",
	})
	assert.True(t, errors.Is(err, ErrLedgerUnavailable))
}

func TestVerifier_InvalidQuery(t *testing.T) {
	ledger := &fakeLedger{}
	v := newTestVerifier(ledger)
	ref := solana.NewWallet().PublicKey().String()

	tests := []struct {
		name  string
		query VerifyQuery
	}{
		{"missing amount", VerifyQuery{Reference: ref}},
		{"missing reference", VerifyQuery{Amount: "0.20"}},
		{"bad reference", VerifyQuery{Reference: "R1", Amount: "0.20"}},
		{"bad amount", VerifyQuery{Reference: ref, Amount: "abc"}},
		{"zero amount", VerifyQuery{Reference: ref, Amount: "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tt.query)
			assert.True(t, errors.Is(err, ErrInvalidRequest), "got %v", err)
		})
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&ledger.findCalls))
}

func TestVerifier_CacheDedupesConcurrentQueries(t *testing.T) {
	ledger := &fakeLedger{signature: testSignature(), found: true, delay: 20 * time.Millisecond}
	v := newTestVerifier(ledger, WithVerificationCache(NewVerificationCache(time.Minute)))
	query := VerifyQuery{Reference: solana.NewWallet().PublicKey().String(), Amount: "0.20"}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := v.Verify(context.Background(), query)
			assert.NoError(t, err)
			assert.True(t, result.OK)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&ledger.findCalls))

	_, err := v.Verify(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&ledger.findCalls))
}

func TestVerifier_FailuresAreNotCached(t *testing.T) {
	ledger := &fakeLedger{}
	v := newTestVerifier(ledger, WithVerificationCache(NewVerificationCache(time.Minute)))
	query := VerifyQuery{Reference: solana.NewWallet().PublicKey().String(), Amount: "0.20"}

	_, err := v.Verify(context.Background(), query)
	require.Error(t, err)

	ledger.signature, ledger.found = testSignature(), true
	result, err := v.Verify(context.Background(), query)
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Equal(t, int32(2), atomic.LoadInt32(&ledger.findCalls))
}

func TestVerifier_ResultStore(t *testing.T) {
	store := &mapStore{data: map[string]string{}}
	ledger := &fakeLedger{signature: testSignature(), found: true}
	v := newTestVerifier(ledger, WithResultStore(store))
	query := VerifyQuery{Reference: solana.NewWallet().PublicKey().String(), Amount: "0.20"}

	_, err := v.Verify(context.Background(), query)
	require.NoError(t, err)
	assert.Len(t, store.data, 1)

	ledger.found = false
	result, err := v.Verify(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, testSignature().String(), result.Signature)
	assert.Equal(t, int32(1), atomic.LoadInt32(&ledger.findCalls))
}

func TestVerifier_Hooks(t *testing.T) {
	var after, failed int
	v := newTestVerifier(&fakeLedger{signature: testSignature(), found: true},
		WithAfterVerifyHook(func(ctx VerifyResultContext) error {
			after++
			return errors.New("ignored")
		}),
		WithOnVerifyFailureHook(func(ctx VerifyFailureContext) {
			failed++
		}),
	)

	_, err := v.Verify(context.Background(), VerifyQuery{Reference: solana.NewWallet().PublicKey().String(), Amount: "1"})
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), VerifyQuery{Reference: "bad", Amount: "1"})
	require.Error(t, err)

	assert.Equal(t, 1, after)
	assert.Equal(t, 1, failed)
}

func TestVerifier_BeforeHookAbort(t *testing.T) {
	ledger := &fakeLedger{signature: testSignature(), found: true}
	v := newTestVerifier(ledger, WithBeforeVerifyHook(func(ctx VerifyContext) (*BeforeVerifyHookResult, error) {
		return &BeforeVerifyHookResult{Abort: true, Reason: "blocked"}, nil
	}))

	result, err := v.Verify(context.Background(), VerifyQuery{Reference: solana.NewWallet().PublicKey().String(), Amount: "1"})
	assert.True(t, errors.Is(err, ErrInvalidRequest))
	assert.Equal(t, "blocked", result.Error)
	assert.Equal(t, int32(0), atomic.LoadInt32(&ledger.findCalls))
}
