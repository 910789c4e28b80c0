package llm

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a provider failure. Callers apply different retry
// policy per kind, so every backend-specific error must map onto one of
// these before it leaves the provider.
type ErrorKind string

const (
	ErrAuthentication  ErrorKind = "authentication"
	ErrRateLimit       ErrorKind = "rate_limit"
	ErrInvalidResponse ErrorKind = "invalid_response"
	ErrTimeout         ErrorKind = "timeout"
	ErrNetwork         ErrorKind = "network"
)

// ProviderError is the canonical error for any provider failure.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%s): %v", e.Provider, e.Message, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Kind)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError builds a canonical provider error wrapping the backend cause.
func NewProviderError(provider string, kind ErrorKind, message string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Message: message, Err: err}
}

// IsKind reports whether err is a ProviderError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == kind
}

// IsAuthentication reports whether err is an authentication failure.
func IsAuthentication(err error) bool {
	return IsKind(err, ErrAuthentication)
}

// IsRetryable reports whether the retry loop should consume an attempt on
// this error rather than give up immediately.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind != ErrAuthentication
	}
	var je *JSONParseError
	return errors.As(err, &je)
}

// JSONParseError is returned when every extraction strategy fails on a
// provider response.
type JSONParseError struct {
	Message string
}

func (e *JSONParseError) Error() string {
	return e.Message
}
