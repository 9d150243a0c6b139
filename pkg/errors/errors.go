package errors

import (
	"errors"
	"fmt"
)

// Severity is an observability hint attached to each error class.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

var (
	ErrNetwork     = NewError("NETWORK_ERROR", "network error", SeverityMedium).AsRetryable()
	ErrRateLimit   = NewError("RATE_LIMIT", "rate limited by downstream", SeverityLow).AsRetryable()
	ErrValidation  = NewError("VALIDATION_ERROR", "validation failed", SeverityHigh)
	ErrPermission  = NewError("PERMISSION_ERROR", "permission denied", SeverityHigh)
	ErrNotFound    = NewError("NOT_FOUND", "resource not found", SeverityMedium)
	ErrUnknown     = NewError("UNKNOWN_ERROR", "unknown error", SeverityMedium)
	ErrCircuitOpen = NewError("CIRCUIT_OPEN", "circuit breaker is open", SeverityMedium)
)

type RetryableError interface {
	error
	IsRetryable() bool
}

type FatalError interface {
	error
	IsFatal() bool
}

// Error is the coded error carried through the engine. Retryability defaults
// by code (network and rate-limit errors retry, everything else is terminal)
// and can be forced either way per instance.
type Error struct {
	Code      string
	Message   string
	Severity  Severity
	Details   map[string]interface{}
	Cause     error
	retryable *bool
}

func NewError(code, message string, severity Severity) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Severity: severity,
	}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) IsRetryable() bool {
	if e.retryable != nil {
		return *e.retryable
	}
	if e.Cause != nil {
		var retryableErr RetryableError
		if errors.As(e.Cause, &retryableErr) {
			return retryableErr.IsRetryable()
		}
	}
	return false
}

func (e *Error) IsFatal() bool {
	return !e.IsRetryable()
}

func (e *Error) WithCause(cause error) *Error {
	err := *e
	err.Cause = cause
	return &err
}

func (e *Error) WithMessage(message string) *Error {
	err := *e
	err.Message = message
	return &err
}

func (e *Error) WithMessagef(format string, args ...interface{}) *Error {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

func (e *Error) WithDetail(key string, value interface{}) *Error {
	err := *e
	if err.Details == nil {
		err.Details = make(map[string]interface{})
	} else {
		details := make(map[string]interface{}, len(e.Details)+1)
		for k, v := range e.Details {
			details[k] = v
		}
		err.Details = details
	}
	err.Details[key] = value
	return &err
}

func (e *Error) AsRetryable() *Error {
	err := *e
	retryable := true
	err.retryable = &retryable
	return &err
}

func (e *Error) AsFatal() *Error {
	err := *e
	retryable := false
	err.retryable = &retryable
	return &err
}

func Wrap(err error, appErr *Error) *Error {
	if err == nil {
		return nil
	}
	return appErr.WithCause(err)
}

// Message returns the human-readable message without the code prefix, for
// surfaces like per-action result entries.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func Code(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrUnknown.Code
}

func Is(err error, target *Error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == target.Code
	}
	return false
}

func IsNotFound(err error) bool   { return Is(err, ErrNotFound) }
func IsValidation(err error) bool { return Is(err, ErrValidation) }
func IsCircuitOpen(err error) bool {
	return Is(err, ErrCircuitOpen)
}

// IsRetryable reports whether err should be retried. Untagged errors are
// classified first.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var retryableErr RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.IsRetryable()
	}
	return Classify(err).IsRetryable()
}
