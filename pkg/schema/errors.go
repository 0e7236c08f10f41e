package schema

import "fmt"

// Error codes for structured error reporting.
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeExecution         = "EXECUTION_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeStore             = "STORE_ERROR"
)

// TxlensError is the structured error type for all txlens operations.
type TxlensError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	TxHash  string         `json:"tx_hash,omitempty"`
	Cause   error          `json:"-"`
}

func (e *TxlensError) Error() string {
	if e.TxHash != "" {
		return fmt.Sprintf("[%s] tx %s: %s", e.Code, e.TxHash, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *TxlensError) Unwrap() error {
	return e.Cause
}

// NewError creates a new TxlensError.
func NewError(code, message string) *TxlensError {
	return &TxlensError{Code: code, Message: message}
}

// NewErrorf creates a new TxlensError with a formatted message.
func NewErrorf(code, format string, args ...any) *TxlensError {
	return &TxlensError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithTx attaches a transaction hash to the error.
func (e *TxlensError) WithTx(hash string) *TxlensError {
	e.TxHash = hash
	return e
}

// WithCause attaches an underlying cause.
func (e *TxlensError) WithCause(err error) *TxlensError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *TxlensError) WithDetails(details map[string]any) *TxlensError {
	e.Details = details
	return e
}
