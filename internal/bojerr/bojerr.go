// Package bojerr defines the error taxonomy shared by the query builders,
// decoders, retry policy and client: validation, decode, transport and API
// errors. Only transport errors and API 500/503 responses are transient.
package bojerr

import (
	"errors"
	"fmt"
)

// Kind identifies which of the four error families an error belongs to.
type Kind string

const (
	KindNone       Kind = ""
	KindValidation Kind = "validation"
	KindDecode     Kind = "decode"
	KindTransport  Kind = "transport"
	KindAPI        Kind = "api"
)

// ─── Error types ──────────────────────────────────────────────────────────────

// ValidationError reports a request parameter rejected before any network
// activity.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Message
}

// DecodeError reports a payload that does not match the documented shape.
type DecodeError struct {
	Message string
}

func (e *DecodeError) Error() string {
	return "decode error: " + e.Message
}

// TransportError reports a network or connection failure.
type TransportError struct {
	Message string
	Cause   error
}

func (e *TransportError) Error() string {
	return "transport error: " + e.Message
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// APIError reports a decoded response whose STATUS is not 200.
type APIError struct {
	Status    uint16
	MessageID string
	Message   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d, message_id=%s, message=%s", e.Status, e.MessageID, e.Message)
}

// ─── Constructors ─────────────────────────────────────────────────────────────

// Validation returns a *ValidationError with a formatted message.
func Validation(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Decode returns a *DecodeError with a formatted message.
func Decode(format string, args ...any) error {
	return &DecodeError{Message: fmt.Sprintf(format, args...)}
}

// Transport returns a *TransportError wrapping cause.
func Transport(cause error, format string, args ...any) error {
	return &TransportError{Message: fmt.Sprintf(format, args...), Cause: cause}
}

// API returns an *APIError.
func API(status uint16, messageID, message string) error {
	return &APIError{Status: status, MessageID: messageID, Message: message}
}

// ─── Classification ───────────────────────────────────────────────────────────

// KindOf reports the family of err, looking through wrapped errors.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var (
		ve *ValidationError
		de *DecodeError
		te *TransportError
		ae *APIError
	)
	switch {
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &de):
		return KindDecode
	case errors.As(err, &te):
		return KindTransport
	case errors.As(err, &ae):
		return KindAPI
	}
	return KindNone
}

// ShouldRetry reports whether err is worth another attempt. Transport errors
// always are; API errors only for status 500 and 503; validation and decode
// errors never are.
func ShouldRetry(err error) bool {
	switch KindOf(err) {
	case KindTransport:
		return true
	case KindAPI:
		var ae *APIError
		errors.As(err, &ae)
		return ae.Status == 500 || ae.Status == 503
	}
	return false
}
