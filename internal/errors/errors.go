// Package errors defines the application error taxonomy and central
// handling for the engagement engine.
package errors

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

// NewValidationError flags malformed input from a caller.
func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:        "E100",
		Message:     msg,
		UserMessage: fmt.Sprintf("Invalid request. %s", msg),
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}

// NewRecordNotFoundError flags an absent user record. Not retried
// here; the caller owns the decision.
func NewRecordNotFoundError(what string) *AppError {
	return &AppError{
		Code:        "E110",
		Message:     fmt.Sprintf("%s not found", what),
		UserMessage: "Account not found",
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}

// NewPersistenceError wraps a failed database read or write. The
// update is dropped for this cycle; the next login or sweep reads
// fresh state and retries naturally.
func NewPersistenceError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        "E200",
		Message:     fmt.Sprintf("Persistence error: %s", underlyingMsg),
		UserMessage: "Temporary problem, please try again later",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

// NewDispatchError wraps a failed notification delivery. Tier state
// must not advance past an undelivered notice.
func NewDispatchError(channel string, cause error) *AppError {
	return &AppError{
		Code:        "E300",
		Message:     fmt.Sprintf("Dispatch failed via %s", channel),
		UserMessage: "Notification service is temporarily unavailable",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

// NewAuthError flags rejected credentials.
func NewAuthError(msg string) *AppError {
	return &AppError{
		Code:        "E400",
		Message:     msg,
		UserMessage: "Invalid email or password",
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}

// NewRateLimitError flags an exhausted rate limit.
func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Code:        "E500",
		Message:     fmt.Sprintf("Rate limit exceeded: retry after %d seconds", retryAfter),
		UserMessage: fmt.Sprintf("Too many attempts. Try again in %d seconds", retryAfter),
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}
