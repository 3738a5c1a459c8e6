// Package fault defines the closed error taxonomy for job failures and the
// classifier that maps raw errors (exec failures, HTTP statuses, timeouts)
// into it. Every terminal job failure carries exactly one Code.
package fault

import (
	"errors"
	"fmt"
)

// Code identifies a failure class. The set is closed: stores and webhooks
// only ever see these values.
type Code string

const (
	// FailedInput means the source encoding is malformed or invalid.
	FailedInput Code = "FAILED_INPUT"
	// FailedLimits means the source exceeds size or duration limits.
	FailedLimits Code = "FAILED_LIMITS"
	// FailedCodec means the media is unreadable or has no video stream.
	FailedCodec Code = "FAILED_CODEC"
	// FailedProvider means the remote inpainting service errored (5xx).
	FailedProvider Code = "FAILED_PROVIDER"
	// FailedTimeout means an operation exceeded its deadline.
	FailedTimeout Code = "FAILED_TIMEOUT"
	// FailedRateLimit means the remote service returned 429.
	FailedRateLimit Code = "FAILED_RATE_LIMIT"
	// FailedStorage means the artifact upload failed.
	FailedStorage Code = "FAILED_STORAGE"
	// FailedDownload means the source fetch failed.
	FailedDownload Code = "FAILED_DOWNLOAD"
	// FailedUnknown is the cautious default for unclassified failures.
	FailedUnknown Code = "FAILED_UNKNOWN"
)

// retryable is the canonical retryable verdict per code. Input-class
// failures never retry; infrastructure-class failures do.
var retryable = map[Code]bool{
	FailedInput:     false,
	FailedLimits:    false,
	FailedCodec:     false,
	FailedProvider:  true,
	FailedTimeout:   true,
	FailedRateLimit: true,
	FailedStorage:   true,
	FailedDownload:  true,
	FailedUnknown:   true,
}

// Retryable reports whether failures of this class may be retried.
func (c Code) Retryable() bool { return retryable[c] }

// Valid reports whether c is a member of the taxonomy.
func (c Code) Valid() bool {
	_, ok := retryable[c]
	return ok
}

// Error is a classified job failure: a taxonomy code, a human-readable
// message, and the wrapped cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

// New creates a classified failure with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a classified failure with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error. The message defaults to the cause's
// text when empty.
func Wrap(code Code, cause error, message string) *Error {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &Error{Code: code, Message: message, cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.cause }

// Retryable reports the verdict for this failure's code.
func (e *Error) Retryable() bool { return e.Code.Retryable() }

// CodeOf extracts the taxonomy code from err. Unclassified errors map to
// FailedUnknown.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return FailedUnknown
}

// MessageOf extracts the human-readable message from err.
func MessageOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
