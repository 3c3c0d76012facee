package orderdesk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	solanashop "github.com/DroHadTo/Solanashop"
	"github.com/DroHadTo/Solanashop/cart"
	"github.com/DroHadTo/Solanashop/order"
)

const itemsJSON = `[
  {
    "product": "Sticker",
    "price": 0.2
  },
  {
    "product": "Mug",
    "price": 1.5
  }
]`

type fakeVerifier struct {
	paid  map[string]string
	down  bool
	calls int
}

func (f *fakeVerifier) Verify(_ context.Context, q solanashop.VerifyQuery) (*solanashop.VerifyResult, error) {
	f.calls++
	if f.down {
		err := solanashop.WrapPaymentError(solanashop.ErrCodeLedgerUnavailable, errors.New("connection refused"), nil)
		return &solanashop.VerifyResult{OK: false, Error: err.Message}, err
	}
	if sig, ok := f.paid[solanashop.VerificationKey(q.Reference, q.Amount)]; ok {
		return &solanashop.VerifyResult{OK: true, Signature: sig}, nil
	}
	return &solanashop.VerifyResult{OK: false, Error: "Not found"},
		solanashop.NewPaymentError(solanashop.ErrCodeReferenceNotFound, "Not found", nil)
}

func newTestService(paid map[string]string) (*Service, *MemoryStore, *fakeVerifier) {
	store := NewMemoryStore()
	verifier := &fakeVerifier{paid: paid}
	service := NewService(store, verifier, WithLogger(zap.NewNop()))
	service.now = func() time.Time { return time.Unix(1700000000, 0) }
	n := 0
	service.newID = func() string {
		n++
		return fmt.Sprintf("order-%d", n)
	}
	return service, store, verifier
}

func TestParseItems(t *testing.T) {
	items, err := ParseItems(itemsJSON)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Sticker", items[0].Product)
	assert.True(t, items[1].Price.Equal(decimal.RequireFromString("1.5")))

	tests := []struct {
		name string
		data string
	}{
		{"empty array", `[]`},
		{"not json", `{oops`},
		{"missing price", `[{"product":"Mug"}]`},
		{"zero price", `[{"product":"Mug","price":0}]`},
		{"empty name", `[{"product":"","price":1}]`},
		{"object", `{"product":"Mug","price":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseItems(tt.data)
			assert.ErrorIs(t, err, ErrInvalidOrder)
		})
	}
}

func TestService_Submit(t *testing.T) {
	service, store, verifier := newTestService(map[string]string{"R1:1.7": "sig-1"})

	created, err := service.Submit(context.Background(), Submission{
		OrderData: itemsJSON,
		Reference: "R1",
		Signature: "sig-1",
		Total:     "1.70",
	})
	require.NoError(t, err)
	assert.Equal(t, "order-1", created.ID)
	assert.Equal(t, StatusReceived, created.Status)
	assert.Equal(t, "sig-1", created.Signature)
	assert.Equal(t, 1, verifier.calls)

	stored, err := store.GetByReference(context.Background(), "R1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, stored.ID)
	assert.Len(t, stored.Items, 2)
}

func TestService_SubmitFailures(t *testing.T) {
	tests := []struct {
		name string
		sub  Submission
		want error
	}{
		{"total mismatch", Submission{OrderData: itemsJSON, Reference: "R1", Total: "2.00"}, ErrInvalidOrder},
		{"missing reference", Submission{OrderData: itemsJSON, Total: "1.70"}, ErrInvalidOrder},
		{"bad total", Submission{OrderData: itemsJSON, Reference: "R1", Total: "lots"}, ErrInvalidOrder},
		{"unpaid", Submission{OrderData: itemsJSON, Reference: "R2", Total: "1.70"}, ErrPaymentNotVerified},
		{"signature mismatch", Submission{OrderData: itemsJSON, Reference: "R1", Signature: "other", Total: "1.70"}, ErrPaymentNotVerified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, store, _ := newTestService(map[string]string{"R1:1.7": "sig-1"})
			_, err := service.Submit(context.Background(), tt.sub)
			assert.ErrorIs(t, err, tt.want)

			_, err = store.GetByReference(context.Background(), tt.sub.Reference)
			assert.ErrorIs(t, err, ErrOrderNotFound)
		})
	}
}

func TestService_DuplicateReference(t *testing.T) {
	service, _, verifier := newTestService(map[string]string{"R1:1.7": "sig-1"})
	sub := Submission{OrderData: itemsJSON, Reference: "R1", Total: "1.70"}

	_, err := service.Submit(context.Background(), sub)
	require.NoError(t, err)

	_, err = service.Submit(context.Background(), sub)
	assert.ErrorIs(t, err, ErrDuplicateReference)
	assert.Equal(t, 1, verifier.calls)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &Order{ID: "a", Reference: "R1"}))
	assert.ErrorIs(t, store.Create(ctx, &Order{ID: "b", Reference: "R1"}), ErrDuplicateReference)

	_, err := store.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "R1", got.Reference)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
	assert.False(t, isUniqueViolation(nil))
}

func TestServer_FormSubmitterRoundTrip(t *testing.T) {
	service, _, _ := newTestService(map[string]string{"R1:0.2": "sig-1"})
	server := httptest.NewServer(NewServer(service, zap.NewNop()))
	defer server.Close()

	submitter, err := order.NewFormSubmitter(order.Config{Endpoint: server.URL + "/orders"})
	require.NoError(t, err)

	sticker, err := cart.NewLineItem("Sticker", decimal.RequireFromString("0.20"))
	require.NoError(t, err)

	paid := order.Order{
		Items:     []cart.LineItem{sticker},
		Total:     decimal.RequireFromString("0.20"),
		Reference: "R1",
		Signature: "sig-1",
	}
	receipt, err := submitter.Submit(context.Background(), paid)
	require.NoError(t, err)
	assert.Equal(t, "order-1", receipt.OrderID)
	assert.Equal(t, StatusReceived, receipt.Status)

	_, err = submitter.Submit(context.Background(), paid)
	assert.ErrorIs(t, err, order.ErrRejected)
	assert.Contains(t, err.Error(), "409")

	resp, err := http.Get(server.URL + "/orders/order-1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_StatusCodes(t *testing.T) {
	service, _, _ := newTestService(nil)
	e := NewServer(service, zap.NewNop())

	post := func(form url.Values) int {
		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusBadRequest, post(url.Values{"reference": {"R1"}, "total": {"1"}, "order-data": {"[]"}}))
	assert.Equal(t, http.StatusPaymentRequired, post(url.Values{
		"reference": {"R1"}, "total": {"1.70"}, "order-data": {itemsJSON},
	}))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_VerifierUnavailable(t *testing.T) {
	service, store, verifier := newTestService(nil)
	verifier.down = true
	e := NewServer(service, zap.NewNop())

	form := url.Values{"reference": {"R1"}, "total": {"1.70"}, "order-data": {itemsJSON}}
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, 1, verifier.calls)

	_, err := store.GetByReference(context.Background(), "R1")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = service.Submit(context.Background(), Submission{
		OrderData: itemsJSON,
		Reference: "R1",
		Total:     "1.70",
	})
	assert.ErrorIs(t, err, ErrVerifierUnavailable)
	assert.False(t, errors.Is(err, ErrPaymentNotVerified))
}
