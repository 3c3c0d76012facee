package solanashop

import (
	"errors"
	"fmt"
)

// PaymentError represents a payment-specific error
type PaymentError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

// Is matches a PaymentError against the sentinel registered for its code
func (e *PaymentError) Is(target error) bool {
	sentinel, ok := codeSentinels[e.Code]
	return ok && sentinel == target
}

// Common error codes
const (
	ErrCodeReferenceNotFound = "reference_not_found"
	ErrCodeTransferInvalid   = "transfer_invalid"
	ErrCodeLedgerUnavailable = "ledger_unavailable"
	ErrCodeInvalidRequest    = "invalid_request"
	ErrCodePollExpired       = "poll_expired"
)

var (
	// ErrReferenceNotFound means no transaction carrying the reference has been confirmed yet
	ErrReferenceNotFound = errors.New("reference not found")
	// ErrTransferInvalid means a transaction was found but does not pay what was asked
	ErrTransferInvalid = errors.New("transfer invalid")
	// ErrLedgerUnavailable means the ledger could not be queried
	ErrLedgerUnavailable = errors.New("ledger unavailable")
	// ErrInvalidRequest means the request is missing or has malformed parameters
	ErrInvalidRequest = errors.New("invalid request")
	// ErrPollExpired means the poller gave up before the payment was detected
	ErrPollExpired = errors.New("payment not detected in time")
)

var codeSentinels = map[string]error{
	ErrCodeReferenceNotFound: ErrReferenceNotFound,
	ErrCodeTransferInvalid:   ErrTransferInvalid,
	ErrCodeLedgerUnavailable: ErrLedgerUnavailable,
	ErrCodeInvalidRequest:    ErrInvalidRequest,
	ErrCodePollExpired:       ErrPollExpired,
}

// NewPaymentError creates a new payment error
func NewPaymentError(code, message string, details map[string]interface{}) *PaymentError {
	return &PaymentError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// WrapPaymentError creates a payment error carrying the underlying cause
func WrapPaymentError(code string, err error, details map[string]interface{}) *PaymentError {
	return &PaymentError{
		Code:    code,
		Message: err.Error(),
		Details: details,
		Err:     err,
	}
}

// ErrorCode returns the PaymentError code in err's chain, or "" if there is none
func ErrorCode(err error) string {
	var pe *PaymentError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
