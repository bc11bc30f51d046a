package fetch

import (
	"errors"
	"fmt"
)

// ChecksumMismatchError reports that downloaded content does not match the
// catalog hash. The destination file is left untouched.
type ChecksumMismatchError struct {
	File     string
	Expected string
	Actual   string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: expected %s, got %s", e.File, e.Expected, e.Actual)
}

// HTTPStatusError reports a non-200 response from an artifact URL.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// retryable reports whether a retry may succeed (5xx, 429).
func (e *HTTPStatusError) retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// transientError marks network failures that are worth another attempt.
type transientError struct{ err error }

func (e transientError) Error() string { return e.err.Error() }
func (e transientError) Unwrap() error { return e.err }

// IsChecksumMismatch reports whether err wraps a ChecksumMismatchError.
func IsChecksumMismatch(err error) bool {
	var e *ChecksumMismatchError
	return errors.As(err, &e)
}

func isRetryable(err error) bool {
	var te transientError
	if errors.As(err, &te) {
		return true
	}
	var he *HTTPStatusError
	if errors.As(err, &he) {
		return he.retryable()
	}
	return false
}
