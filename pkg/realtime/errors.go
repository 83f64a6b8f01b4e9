package realtime

import (
	"fmt"
)

// Error represents a session-level error.
type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    string    `json:"code,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorType categorizes errors.
type ErrorType string

const (
	ErrNegotiation ErrorType = "negotiation_error"
	ErrTransport   ErrorType = "transport_error"
	ErrProtocol    ErrorType = "protocol_error"
	ErrClosed      ErrorType = "closed_error"
	ErrPeer        ErrorType = "peer_error"
)

// NewNegotiationError creates a session negotiation error.
func NewNegotiationError(message string, cause error) *Error {
	return &Error{
		Type:    ErrNegotiation,
		Message: message,
		Cause:   cause,
	}
}

// NewTransportError creates a transport-level error.
func NewTransportError(message string, cause error) *Error {
	return &Error{
		Type:    ErrTransport,
		Message: message,
		Cause:   cause,
	}
}

// NewProtocolError creates a frame encoding or decoding error.
func NewProtocolError(message string, cause error) *Error {
	return &Error{
		Type:    ErrProtocol,
		Message: message,
		Cause:   cause,
	}
}

// NewClosedError creates an error for operations on a closed channel.
func NewClosedError(message string) *Error {
	return &Error{
		Type:    ErrClosed,
		Message: message,
	}
}

// NewPeerError wraps an error frame reported by the AI peer.
func NewPeerError(message, code string) *Error {
	return &Error{
		Type:    ErrPeer,
		Message: message,
		Code:    code,
	}
}

// IsRetryable returns true if the error is retryable.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrTransport:
		return true
	default:
		return false
	}
}

// Unwrap returns the underlying error for error wrapping.
func (e *Error) Unwrap() error {
	return e.Cause
}
