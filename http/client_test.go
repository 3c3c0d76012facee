package http_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	solanashop "github.com/DroHadTo/Solanashop"
	shophttp "github.com/DroHadTo/Solanashop/http"
)

func TestVerifierClient_Verify(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/verify" {
			t.Errorf("Expected to request '/verify', got: %s", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET request, got: %s", r.Method)
		}
		if r.URL.Query().Get("reference") != "R1" || r.URL.Query().Get("amount") != "0.20" {
			t.Errorf("Unexpected query: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"signature":"5sig"}`))
	}))
	defer server.Close()

	client := shophttp.NewVerifierClient(server.URL+"/", time.Second)
	result, err := client.Verify(context.Background(), solanashop.VerifyQuery{Reference: "R1", Amount: "0.20"})
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Equal(t, "5sig", result.Signature)
}

func TestVerifierClient_StatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{"not found", http.StatusNotFound, `{"ok":false,"error":"Not found"}`, solanashop.ErrReferenceNotFound},
		{"bad request", http.StatusBadRequest, `{"ok":false,"error":"Missing params"}`, solanashop.ErrInvalidRequest},
		{"server error", http.StatusInternalServerError, `{"ok":false}`, solanashop.ErrLedgerUnavailable},
		{"not json", http.StatusOK, `<html>`, solanashop.ErrLedgerUnavailable},
		{"ok without signature", http.StatusOK, `{"ok":true}`, solanashop.ErrLedgerUnavailable},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := shophttp.NewVerifierClient(server.URL, time.Second)
			_, err := client.Verify(context.Background(), solanashop.VerifyQuery{Reference: "R1", Amount: "0.20"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)
		})
	}
}

func TestVerifierClient_AgainstRouter(t *testing.T) {
	t.Parallel()

	verifier := verifierFunc(func(ctx context.Context, q solanashop.VerifyQuery) (*solanashop.VerifyResult, error) {
		if q.Reference == "paid" {
			return &solanashop.VerifyResult{OK: true, Signature: "sig-paid"}, nil
		}
		return &solanashop.VerifyResult{OK: false, Error: "Not found"},
			solanashop.NewPaymentError(solanashop.ErrCodeReferenceNotFound, "Not found", nil)
	})
	server := httptest.NewServer(shophttp.NewRouter(verifier))
	defer server.Close()

	client := shophttp.NewVerifierClient(server.URL, time.Second)

	result, err := client.Verify(context.Background(), solanashop.VerifyQuery{Reference: "paid", Amount: "1"})
	require.NoError(t, err)
	assert.Equal(t, "sig-paid", result.Signature)

	_, err = client.Verify(context.Background(), solanashop.VerifyQuery{Reference: "unpaid", Amount: "1"})
	assert.ErrorIs(t, err, solanashop.ErrReferenceNotFound)
}

type verifierFunc func(context.Context, solanashop.VerifyQuery) (*solanashop.VerifyResult, error)

func (f verifierFunc) Verify(ctx context.Context, q solanashop.VerifyQuery) (*solanashop.VerifyResult, error) {
	return f(ctx, q)
}
