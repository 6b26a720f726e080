package analysis

import (
	"errors"
	"fmt"
)

// ErrorCode is a stable identifier for a failure mode. Codes travel in
// envelopes and logs; the string form never changes once shipped.
type ErrorCode string

const (
	// CodeInput marks malformed or oversized caller input. It is the only
	// code surfaced to callers as a rejected request.
	CodeInput ErrorCode = "INPUT_ERROR"
	// CodeProviderUnavailable marks an unreachable embedding/model/store.
	CodeProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	// CodeTimeout marks a call that exceeded its wall-clock budget.
	// Exhausted retries reclassify it as PROVIDER_UNAVAILABLE.
	CodeTimeout ErrorCode = "TIMEOUT"
	// CodePeerValidation marks a 4xx rejection from a remote party, peer
	// or provider; never retried and never counted against its health.
	CodePeerValidation ErrorCode = "PEER_VALIDATION"
	// CodeInternalInconsistency marks invariant breakage such as an
	// embedding dimension mismatch; the affected source is skipped.
	CodeInternalInconsistency ErrorCode = "INTERNAL_INCONSISTENCY"
)

// Error carries a code plus an underlying cause.
type Error struct {
	Code    ErrorCode
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// NewError builds a coded error. cause may be nil.
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// CodeOf extracts the code from err, or empty when err carries none.
func CodeOf(err error) ErrorCode {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// IsInputError reports whether err rejects the caller's input.
func IsInputError(err error) bool { return CodeOf(err) == CodeInput }
