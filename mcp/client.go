package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	solanashop "github.com/DroHadTo/Solanashop"
)

// ErrEmptyToolResult is returned when a tool call carries no text content
var ErrEmptyToolResult = errors.New("tool returned no text content")

// VerifyPayment calls verify_payment over a connected session. A tool-level
// failure is returned as the decoded result with OK=false and a nil error.
func VerifyPayment(ctx context.Context, session *mcpsdk.ClientSession, query solanashop.VerifyQuery) (*solanashop.VerifyResult, error) {
	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name: ToolVerifyPayment,
		Arguments: map[string]interface{}{
			"reference": query.Reference,
			"amount":    query.Amount,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", ToolVerifyPayment, err)
	}

	for _, item := range result.Content {
		text, ok := item.(*mcpsdk.TextContent)
		if !ok {
			continue
		}
		var verify solanashop.VerifyResult
		if err := json.Unmarshal([]byte(text.Text), &verify); err != nil {
			return nil, fmt.Errorf("failed to decode %s result: %w", ToolVerifyPayment, err)
		}
		return &verify, nil
	}
	return nil, ErrEmptyToolResult
}
