package helpers

import (
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type GatewayError struct {
	Message string
	Cause   error
}

func (e *GatewayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// -----------------------------------------------------------------------------

// UnsupportedSourceError marks a request for an unknown provider id.
// Permanent: never retried.
type UnsupportedSourceError struct {
	Source string
}

func (e *UnsupportedSourceError) Error() string {
	return fmt.Sprintf("unknown or unsupported exchange: %s", e.Source)
}

// -----------------------------------------------------------------------------

// UnsupportedCapabilityError marks a request for a data kind the provider
// cannot serve. Permanent: never retried.
type UnsupportedCapabilityError struct {
	Source     string
	Capability string
}

func (e *UnsupportedCapabilityError) Error() string {
	return fmt.Sprintf("exchange %s does not support %s data", e.Source, e.Capability)
}

// -----------------------------------------------------------------------------

// TransientProviderError marks upstream failures worth retrying: network
// errors, timeouts and upstream throttling.
type TransientProviderError struct {
	GatewayError
}

func NewTransientError(message string, cause error) *TransientProviderError {
	return &TransientProviderError{GatewayError{Message: message, Cause: cause}}
}

// -----------------------------------------------------------------------------

// RateLimitError marks a request rejected by the gateway's own admission
// control. User-visible, never retried internally.
type RateLimitError struct{}

func (e *RateLimitError) Error() string {
	return "rate limit exceeded"
}

// -----------------------------------------------------------------------------
// Classification
// -----------------------------------------------------------------------------

// IsTransient reports whether the error is a retryable upstream failure.
func IsTransient(err error) bool {
	var transient *TransientProviderError
	return errors.As(err, &transient)
}

// -----------------------------------------------------------------------------

// IsPermanent reports whether the error is a client-addressable failure
// (unknown source, missing capability) that must not be retried.
func IsPermanent(err error) bool {
	var src *UnsupportedSourceError
	var cap *UnsupportedCapabilityError
	return errors.As(err, &src) || errors.As(err, &cap)
}
