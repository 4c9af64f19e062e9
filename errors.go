package adnl

import (
	"errors"
	"fmt"
)

// ErrorCode identifies the type of error for programmatic handling.
type ErrorCode int

const (
	// ErrCodeUnknown indicates an unknown or unclassified error.
	ErrCodeUnknown ErrorCode = iota

	// ErrCodeConnectionFailed indicates a TCP connection attempt failed.
	ErrCodeConnectionFailed

	// ErrCodeHandshakeFailed indicates the encryption handshake failed.
	ErrCodeHandshakeFailed

	// ErrCodeHandshakeTimeout indicates the handshake did not complete in time.
	ErrCodeHandshakeTimeout

	// ErrCodeConnectionClosed indicates the connection has been closed.
	ErrCodeConnectionClosed

	// ErrCodeQueryTimeout indicates a query's answer did not arrive in time.
	ErrCodeQueryTimeout

	// ErrCodeIntegrityFailed indicates a frame checksum did not verify.
	ErrCodeIntegrityFailed

	// ErrCodeProtocolViolation indicates the peer broke the wire protocol.
	ErrCodeProtocolViolation

	// ErrCodeInvalidConfig indicates the configuration is invalid.
	ErrCodeInvalidConfig

	// ErrCodeClientClosed indicates the client has been shut down.
	ErrCodeClientClosed
)

// String returns a human-readable name for the error code.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeUnknown:
		return "Unknown"
	case ErrCodeConnectionFailed:
		return "ConnectionFailed"
	case ErrCodeHandshakeFailed:
		return "HandshakeFailed"
	case ErrCodeHandshakeTimeout:
		return "HandshakeTimeout"
	case ErrCodeConnectionClosed:
		return "ConnectionClosed"
	case ErrCodeQueryTimeout:
		return "QueryTimeout"
	case ErrCodeIntegrityFailed:
		return "IntegrityFailed"
	case ErrCodeProtocolViolation:
		return "ProtocolViolation"
	case ErrCodeInvalidConfig:
		return "InvalidConfig"
	case ErrCodeClientClosed:
		return "ClientClosed"
	default:
		return fmt.Sprintf("ErrorCode(%d)", c)
	}
}

// Error represents an ADNL error with rich context.
// It provides structured information for programmatic error handling.
type Error struct {
	// Code identifies the type of error.
	Code ErrorCode

	// Message is a human-readable description of the error.
	Message string

	// Server is the host:port of the server associated with the error,
	// if any.
	Server string

	// Cause is the underlying error, if any.
	Cause error

	// Retriable indicates whether the operation can be retried.
	Retriable bool
}

// Error returns a human-readable error message.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("adnl: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("adnl: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// Two ADNL errors are considered equal if they have the same error code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// IsRetriable returns true if the error indicates a retriable operation.
func IsRetriable(err error) bool {
	var aErr *Error
	if errors.As(err, &aErr) {
		return aErr.Retriable
	}
	return false
}

// IsPermanent returns true if the error indicates a permanent failure.
// Permanent failures should not be retried.
func IsPermanent(err error) bool {
	var aErr *Error
	if errors.As(err, &aErr) {
		switch aErr.Code {
		case ErrCodeInvalidConfig, ErrCodeClientClosed:
			return true
		}
	}
	return false
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// NewErrorWithCause creates a new Error with the given code, message, and cause.
func NewErrorWithCause(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewServerError creates a new Error associated with a specific server.
func NewServerError(code ErrorCode, message string, server string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Server:  server,
		Cause:   cause,
	}
}

// Sentinel errors for client operations.
var (
	// ErrClientClosed indicates the client has been shut down.
	ErrClientClosed = errors.New("client is closed")

	// ErrQueryTimeout indicates a query's answer did not arrive in time.
	ErrQueryTimeout = errors.New("query timeout")

	// ErrConnectionLost indicates the connection dropped while queries
	// were in flight.
	ErrConnectionLost = errors.New("connection lost")

	// ErrNoServers indicates the configuration names no servers.
	ErrNoServers = errors.New("no servers configured")
)

// Sentinel errors for configuration.
var (
	// ErrInvalidConfig indicates the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidPublicKey indicates a server's public key is malformed.
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrInvalidAddress indicates a server address is malformed.
	ErrInvalidAddress = errors.New("invalid server address")
)
