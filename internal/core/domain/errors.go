package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain error with a structured error code.
//
// Codes have the form TS-<AREA>-<NNNN>; the last four digits loosely follow
// HTTP status semantics (4xxx caller error, 5xxx daemon error).
type DomainError struct {
	Code    string // Error code (e.g., "TS-KV-4090")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches any DomainError carrying the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap is shorthand for WithCause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Seed Errors (SEED)
// ============================================================================

var (
	// ErrUninitialized indicates the daemon seed has not been established.
	ErrUninitialized = NewDomainError("TS-SEED-5030", "seed not initialized")

	// ErrSeedInvalid indicates seed material could not be decoded.
	ErrSeedInvalid = NewDomainError("TS-SEED-4000", "invalid seed material")
)

// ============================================================================
// Keygen Errors (KEYG)
// ============================================================================

var (
	// ErrDerivation indicates the key derivation primitive rejected its inputs.
	ErrDerivation = NewDomainError("TS-KEYG-4000", "key derivation failed")

	// ErrSerialization indicates a signing key could not be encoded.
	ErrSerialization = NewDomainError("TS-KEYG-5000", "signing key serialization failed")
)

// ============================================================================
// Key Store Errors (KV)
// ============================================================================

var (
	// ErrKeyNotFound indicates no committed value exists for the key.
	ErrKeyNotFound = NewDomainError("TS-KV-4040", "key not found")

	// ErrDuplicateKey indicates the key is already reserved or committed.
	ErrDuplicateKey = NewDomainError("TS-KV-4090", "key already reserved")

	// ErrInvalidReservation indicates the reservation does not match a held slot.
	ErrInvalidReservation = NewDomainError("TS-KV-4091", "invalid reservation")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternal indicates an internal daemon error.
	ErrInternal = NewDomainError("TS-SYS-5000", "internal error")

	// ErrStorage indicates a storage layer error.
	ErrStorage = NewDomainError("TS-SYS-5001", "storage error")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = NewDomainError("TS-SYS-4290", "too many requests")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrParse indicates a startup argument could not be parsed.
	ErrParse = NewDomainError("TS-ARG-1000", "parse error")

	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("TS-ARG-1001", "invalid argument")
)
