package provider

import (
	"errors"
	"fmt"
)

// Error codes carried by ProviderError.
const (
	CodeFetchFailed = "FETCH_FAILED"
	CodeTimeout     = "TIMEOUT"
	CodeAuthFailed  = "AUTH_FAILED"
	CodeNotFound    = "NOT_FOUND"
	CodeRateLimited = "RATE_LIMITED"
	CodeUnavailable = "UNAVAILABLE"
	CodeUnsupported = "UNSUPPORTED"
)

// ProviderError represents an error from a provider
type ProviderError struct {
	Provider   string
	Code       string
	Message    string
	Retry      bool
	RetryAfter int // Seconds to wait before retry
	Err        error
}

func (e *ProviderError) Error() string {
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewError builds a non-retryable ProviderError.
func NewError(providerName, code string, err error, format string, args ...any) *ProviderError {
	return &ProviderError{
		Provider: providerName,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Err:      err,
	}
}

// Code returns the ProviderError code found in err's chain, or "".
func Code(err error) string {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Code
	}
	return ""
}

// IsTimeout reports whether err is a backend timeout.
func IsTimeout(err error) bool {
	return Code(err) == CodeTimeout
}

// IsAuth reports whether err is an authentication failure. These need user
// action and are logged apart from transient failures.
func IsAuth(err error) bool {
	return Code(err) == CodeAuthFailed
}

// IsNotFound reports whether the backend could not find the identifier.
func IsNotFound(err error) bool {
	return Code(err) == CodeNotFound
}

// IsRetryable reports whether a later attempt may succeed.
func IsRetryable(err error) bool {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Retry
	}
	return false
}
