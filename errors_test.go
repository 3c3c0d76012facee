package solanashop

import (
	"errors"
	"fmt"
	"testing"
)

func TestPaymentErrorIs(t *testing.T) {
	err := NewPaymentError(ErrCodeTransferInvalid, "amount too low", nil)

	if !errors.Is(err, ErrTransferInvalid) {
		t.Error("Expected error to match ErrTransferInvalid")
	}
	if errors.Is(err, ErrReferenceNotFound) {
		t.Error("Did not expect error to match ErrReferenceNotFound")
	}

	wrapped := fmt.Errorf("verify: %w", err)
	if !errors.Is(wrapped, ErrTransferInvalid) {
		t.Error("Expected wrapped error to match ErrTransferInvalid")
	}
	if ErrorCode(wrapped) != ErrCodeTransferInvalid {
		t.Errorf("Expected code %s, got %s", ErrCodeTransferInvalid, ErrorCode(wrapped))
	}
}

func TestWrapPaymentError(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapPaymentError(ErrCodeLedgerUnavailable, cause, map[string]interface{}{"attempt": 2})

	if !errors.Is(err, cause) {
		t.Error("Expected wrapped cause to be reachable")
	}
	if !errors.Is(err, ErrLedgerUnavailable) {
		t.Error("Expected error to match ErrLedgerUnavailable")
	}
	if err.Error() != "ledger_unavailable: connection refused" {
		t.Errorf("Unexpected message %q", err.Error())
	}
}

func TestErrorCodeWithoutPaymentError(t *testing.T) {
	if code := ErrorCode(errors.New("plain")); code != "" {
		t.Errorf("Expected empty code, got %q", code)
	}
}
