// Package mcp exposes payment verification as a Model Context Protocol tool
// so agents can check whether a checkout has been paid.
package mcp

import (
	"context"
	"encoding/json"
	"net/http"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	solanashop "github.com/DroHadTo/Solanashop"
)

// ToolVerifyPayment is the name of the verification tool
const ToolVerifyPayment = "verify_payment"

// Verifier performs a single verification attempt
type Verifier interface {
	Verify(ctx context.Context, query solanashop.VerifyQuery) (*solanashop.VerifyResult, error)
}

// ServerConfig names the MCP server
type ServerConfig struct {
	Name    string
	Version string
	Logger  *zap.Logger
}

// NewServer creates an MCP server with the verify_payment tool registered
func NewServer(verifier Verifier, config ServerConfig) *mcpsdk.Server {
	if config.Name == "" {
		config.Name = "solanashop verifier"
	}
	if config.Version == "" {
		config.Version = "1.0.0"
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    config.Name,
		Version: config.Version,
	}, nil)

	server.AddTool(&mcpsdk.Tool{
		Name:        ToolVerifyPayment,
		Description: "Check whether a Solana Pay payment with the given reference and amount has been confirmed.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"reference": map[string]interface{}{"type": "string", "description": "Base58 reference public key from the payment request"},
				"amount":    map[string]interface{}{"type": "string", "description": "Expected amount in whole tokens, e.g. 0.20"},
			},
			"required": []string{"reference", "amount"},
		},
	}, verifyPaymentHandler(verifier, config.Logger))

	return server
}

func verifyPaymentHandler(verifier Verifier, logger *zap.Logger) mcpsdk.ToolHandler {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		var query solanashop.VerifyQuery
		if req.Params.Arguments != nil {
			if err := json.Unmarshal(req.Params.Arguments, &query); err != nil {
				return toolResult(solanashop.VerifyResult{OK: false, Error: "Missing params"}, true), nil
			}
		}

		result, err := verifier.Verify(ctx, query)
		if err != nil {
			logger.Debug("verify_payment failed", zap.String("reference", query.Reference), zap.Error(err))
			failed := solanashop.VerifyResult{OK: false, Error: "Not found"}
			if result != nil && result.Error != "" {
				failed.Error = result.Error
			}
			return toolResult(failed, true), nil
		}
		return toolResult(*result, false), nil
	}
}

func toolResult(result solanashop.VerifyResult, isError bool) *mcpsdk.CallToolResult {
	body, _ := json.Marshal(result)
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(body)}},
		IsError: isError,
	}
}

// Handler serves the server over the SSE transport. The same handler answers
// the event stream and the message posts.
func Handler(server *mcpsdk.Server) http.Handler {
	return mcpsdk.NewSSEHandler(func(*http.Request) *mcpsdk.Server {
		return server
	}, nil)
}
