package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorType represents the category of error that occurred during a price lookup
type ErrorType string

const (
	// ErrorTypeInterrupted indicates the lookup was cancelled while waiting
	ErrorTypeInterrupted ErrorType = "interrupted"
	// ErrorTypeInvalidInput indicates the product identifier cannot be priced
	ErrorTypeInvalidInput ErrorType = "invalid_input"
	// ErrorTypeNetwork indicates a network-level error (connection refused, DNS, etc.)
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeRateLimit indicates the request was rejected due to rate limiting (HTTP 429)
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeServer indicates a server error (HTTP 5xx)
	ErrorTypeServer ErrorType = "server"
	// ErrorTypeClient indicates a client error (HTTP 4xx except 429)
	ErrorTypeClient ErrorType = "client"
	// ErrorTypeValidation indicates the response was received but could not be used
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeTimeout indicates the request timed out
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeUnknown indicates an error of unknown type
	ErrorTypeUnknown ErrorType = "unknown"
)

// StatusClientClosedRequest is the non-standard status a shop handler writes
// when the caller went away before the price was ready.
const StatusClientClosedRequest = 499

// FetchError represents a structured error from a price lookup
type FetchError struct {
	Type       ErrorType
	Retryable  bool
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Type, e.StatusCode, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// IsType reports whether err is a FetchError of type t anywhere in its chain.
func IsType(err error, t ErrorType) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Type == t
}

// NewInterruptedError creates an error for a wait that was cancelled before completion
func NewInterruptedError(cause error) *FetchError {
	return &FetchError{
		Type:      ErrorTypeInterrupted,
		Retryable: false,
		Message:   "wait interrupted",
		Cause:     cause,
	}
}

// NewInvalidInputError creates an error for a product that cannot be priced
func NewInvalidInputError(message string) *FetchError {
	return &FetchError{
		Type:      ErrorTypeInvalidInput,
		Retryable: false,
		Message:   message,
	}
}

// NewNetworkError creates a network error
func NewNetworkError(cause error) *FetchError {
	return &FetchError{
		Type:      ErrorTypeNetwork,
		Retryable: true,
		Message:   "network request failed",
		Cause:     cause,
	}
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(statusCode int) *FetchError {
	return &FetchError{
		Type:       ErrorTypeRateLimit,
		Retryable:  true,
		StatusCode: statusCode,
		Message:    "rate limit exceeded",
	}
}

// NewServerError creates a server error
func NewServerError(statusCode int) *FetchError {
	return &FetchError{
		Type:       ErrorTypeServer,
		Retryable:  true,
		StatusCode: statusCode,
		Message:    "server returned an error",
	}
}

// NewClientError creates a client error
func NewClientError(statusCode int, message string) *FetchError {
	return &FetchError{
		Type:       ErrorTypeClient,
		Retryable:  false,
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string) *FetchError {
	return &FetchError{
		Type:      ErrorTypeValidation,
		Retryable: false,
		Message:   message,
	}
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(cause error) *FetchError {
	return &FetchError{
		Type:      ErrorTypeTimeout,
		Retryable: true,
		Message:   "request timed out",
		Cause:     cause,
	}
}

// ClassifyContextError maps a context error to an interrupted FetchError.
// It returns nil when err is not a context error.
func ClassifyContextError(err error) *FetchError {
	switch {
	case errors.Is(err, context.Canceled):
		return NewInterruptedError(err)
	case errors.Is(err, context.DeadlineExceeded):
		// A batch deadline is still an interruption from the source's point of view.
		return NewInterruptedError(err)
	default:
		return nil
	}
}

// ClassifyRequestError classifies a transport error from a request made with ctx.
// The caller's context decides between interruption and a client-side timeout:
// an HTTP client timeout also reports context.DeadlineExceeded.
func ClassifyRequestError(ctx context.Context, err error) *FetchError {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return NewInterruptedError(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() || errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(err)
	}
	if errors.Is(err, context.Canceled) {
		return NewInterruptedError(err)
	}
	return NewNetworkError(err)
}

// ClassifyHTTPError classifies an HTTP status code into an appropriate FetchError
func ClassifyHTTPError(statusCode int) *FetchError {
	switch {
	case statusCode == 429:
		return NewRateLimitError(statusCode)
	case statusCode == 408:
		return &FetchError{
			Type:       ErrorTypeTimeout,
			Retryable:  true,
			StatusCode: statusCode,
			Message:    "request timed out",
		}
	case statusCode == StatusClientClosedRequest:
		return &FetchError{
			Type:       ErrorTypeInterrupted,
			StatusCode: statusCode,
			Message:    "request cancelled by shop",
		}
	case statusCode >= 500:
		return NewServerError(statusCode)
	case statusCode >= 400:
		return NewClientError(statusCode, fmt.Sprintf("client error: HTTP %d", statusCode))
	default:
		return &FetchError{
			Type:       ErrorTypeUnknown,
			Retryable:  false,
			StatusCode: statusCode,
			Message:    fmt.Sprintf("unexpected status code: %d", statusCode),
		}
	}
}
