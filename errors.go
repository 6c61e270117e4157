package aqmint

import "fmt"

// RevertError is the terminal, non-retryable failure of a settlement
// attempt. Reason carries the contract-style message surfaced to callers
// verbatim; Code is the machine-readable classification indexers and UIs
// branch on.
type RevertError struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

// Error codes, grouped by the taxonomy every engine follows:
// configuration and zero-value errors are caller bugs, authorization and
// market errors need a fresh attempt with new inputs.
const (
	ErrCodeConfiguration    = "configuration_error"
	ErrCodeZeroAddress      = "zero_address"
	ErrCodeZeroValue        = "zero_value"
	ErrCodeLengthMismatch   = "length_mismatch"
	ErrCodeTokenUnknown     = "token_unknown"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodePermitExpired    = "permit_expired"
	ErrCodeInvalidSignature = "invalid_signature"
	ErrCodeNoPool           = "no_pool"
	ErrCodeQuoteTooLow      = "quote_too_low"
	ErrCodeInsufficient     = "insufficient_balance"
	ErrCodeSettlement       = "settlement_failed"
)

// Revert builds a RevertError with the given code and reason.
func Revert(code, reason string) *RevertError {
	return &RevertError{Code: code, Reason: reason}
}

// Revertf builds a RevertError with a formatted reason.
func Revertf(code, format string, args ...interface{}) *RevertError {
	return &RevertError{Code: code, Reason: fmt.Sprintf(format, args...)}
}
