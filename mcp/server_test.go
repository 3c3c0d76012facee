package mcp

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	solanashop "github.com/DroHadTo/Solanashop"
)

type mapVerifier map[string]string

func (m mapVerifier) Verify(_ context.Context, q solanashop.VerifyQuery) (*solanashop.VerifyResult, error) {
	if q.Reference == "" || q.Amount == "" {
		return &solanashop.VerifyResult{OK: false, Error: "Missing params"},
			solanashop.NewPaymentError(solanashop.ErrCodeInvalidRequest, "Missing params", nil)
	}
	if sig, ok := m[solanashop.VerificationKey(q.Reference, q.Amount)]; ok {
		return &solanashop.VerifyResult{OK: true, Signature: sig}, nil
	}
	return &solanashop.VerifyResult{OK: false, Error: "Not found"},
		solanashop.NewPaymentError(solanashop.ErrCodeReferenceNotFound, "Not found", nil)
}

func connect(t *testing.T, verifier Verifier) *mcpsdk.ClientSession {
	t.Helper()

	httpServer := httptest.NewServer(Handler(NewServer(verifier, ServerConfig{})))
	t.Cleanup(httpServer.Close)

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "1.0.0"}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	session, err := client.Connect(ctx, &mcpsdk.SSEClientTransport{Endpoint: httpServer.URL}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

func TestVerifyPaymentTool_Listed(t *testing.T) {
	session := connect(t, mapVerifier{})

	tools, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, tools.Tools, 1)
	assert.Equal(t, ToolVerifyPayment, tools.Tools[0].Name)
}

func TestVerifyPaymentTool_Confirmed(t *testing.T) {
	session := connect(t, mapVerifier{"R1:0.20": "5sig"})

	result, err := VerifyPayment(context.Background(), session, solanashop.VerifyQuery{Reference: "R1", Amount: "0.20"})
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Equal(t, "5sig", result.Signature)
}

func TestVerifyPaymentTool_NotFound(t *testing.T) {
	session := connect(t, mapVerifier{})

	raw, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name:      ToolVerifyPayment,
		Arguments: map[string]any{"reference": "R1", "amount": "0.20"},
	})
	require.NoError(t, err)
	assert.True(t, raw.IsError)

	result, err := VerifyPayment(context.Background(), session, solanashop.VerifyQuery{Reference: "R1", Amount: "0.20"})
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, "Not found", result.Error)
}
