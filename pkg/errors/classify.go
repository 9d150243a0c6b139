package errors

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strings"
)

var (
	rateLimitPattern = regexp.MustCompile(`(?i)rate limit|too many requests`)
	retryablePattern = regexp.MustCompile(`(?i)timeout|network|connection|temporary|rate limit|too many requests`)
)

// Classify maps an arbitrary error from a downstream collaborator onto the
// engine taxonomy. Errors already carrying a code pass through unchanged.
// Untagged errors are matched by type first, then by message pattern; the
// conservative default is UNKNOWN_ERROR, which is not retried.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrNetwork.WithMessage("operation timed out").WithCause(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrNetwork.WithMessage("network timeout").WithCause(err)
		}
		return ErrNetwork.WithCause(err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrNetwork.WithMessage("dns lookup failed").WithCause(err)
	}

	msg := err.Error()
	switch {
	case rateLimitPattern.MatchString(msg):
		return ErrRateLimit.WithCause(err)
	case retryablePattern.MatchString(msg):
		return ErrNetwork.WithCause(err)
	case containsAny(msg, "not found", "no such"):
		return ErrNotFound.WithCause(err)
	case containsAny(msg, "permission", "forbidden", "unauthorized"):
		return ErrPermission.WithCause(err)
	case containsAny(msg, "invalid", "validation", "malformed"):
		return ErrValidation.WithCause(err)
	default:
		return ErrUnknown.WithCause(err)
	}
}

func containsAny(msg string, substrings ...string) bool {
	lower := strings.ToLower(msg)
	for _, s := range substrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
