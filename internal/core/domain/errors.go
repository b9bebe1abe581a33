package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a replication error with a structured error code.
//
// Codes follow the format TL-<AREA>-<NNNN>. Two errors are considered equal
// by errors.Is when their codes match, so sentinel values below can be
// compared against wrapped copies carrying details or causes.
type DomainError struct {
	Code    string // Error code (e.g., "TL-META-4100")
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

// Is implements errors.Is() support for error comparison.
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

// Wrap returns a copy of the error wrapping the given cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
// The outermost DomainError in the chain wins.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Transport Errors (BIND, CONN)
// ============================================================================

var (
	// ErrBind indicates the listener could not bind its address or load credentials.
	ErrBind = NewDomainError("TL-BIND-5000", "bind failed")

	// ErrUnreachable indicates the peer could not be reached.
	ErrUnreachable = NewDomainError("TL-CONN-5030", "peer unreachable")

	// ErrHandshakeFailed indicates the TLS/QUIC handshake was rejected.
	ErrHandshakeFailed = NewDomainError("TL-CONN-5031", "handshake failed")

	// ErrTimeout indicates a dial or store request exceeded its deadline.
	ErrTimeout = NewDomainError("TL-CONN-5040", "timeout")
)

// ============================================================================
// Push Protocol Errors (PUSH)
// ============================================================================

var (
	// ErrTransferFailed indicates a mid-stream I/O fault or a corrupt frame.
	ErrTransferFailed = NewDomainError("TL-PUSH-5001", "transfer failed")

	// ErrAckMissing indicates the receiver did not acknowledge persistence.
	// It is logged, never escalated.
	ErrAckMissing = NewDomainError("TL-PUSH-4080", "acknowledgment missing")
)

// ============================================================================
// Store Errors (STOR)
// ============================================================================

var (
	// ErrStoreNotFound indicates the key does not exist in the durable store.
	ErrStoreNotFound = NewDomainError("TL-STOR-4040", "store key not found")

	// ErrStoreUnreachable indicates the durable store could not be contacted.
	ErrStoreUnreachable = NewDomainError("TL-STOR-5030", "store unreachable")

	// ErrStoreWriteFailed indicates the durable store rejected a write.
	ErrStoreWriteFailed = NewDomainError("TL-STOR-5001", "store write failed")
)

// ============================================================================
// Fallback Errors (META, FETCH, FAIL)
// ============================================================================

var (
	// ErrMetadataFormat indicates a freshness record exists but cannot be decoded.
	ErrMetadataFormat = NewDomainError("TL-META-4000", "malformed freshness metadata")

	// ErrStaleData indicates the replicated snapshot is older than the staleness bound.
	// This is an expected outcome, not a fault.
	ErrStaleData = NewDomainError("TL-META-4100", "replicated data too stale")

	// ErrFetchFailed indicates the blob could not be retrieved or verified.
	ErrFetchFailed = NewDomainError("TL-FETCH-5002", "fetch failed")

	// ErrNoSourceAvailable indicates every delivery path failed for one failover attempt.
	ErrNoSourceAvailable = NewDomainError("TL-FAIL-5030", "no source available")
)
