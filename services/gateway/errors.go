package gateway

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an invocation failure. The classification is the
// contract the retry policy and fallback orchestrator depend on: only
// transient failures may be retried against the same model.
type ErrorKind string

const (
	// KindTransient marks network errors, timeouts, 429s and 5xx responses.
	// Safe to retry against the same model.
	KindTransient ErrorKind = "transient"

	// KindNonRetryable marks auth and validation failures (4xx). Never
	// retried, but another candidate model may still be tried.
	KindNonRetryable ErrorKind = "non_retryable"

	// KindExhausted marks a model whose retry budget ran out on transient
	// failures.
	KindExhausted ErrorKind = "exhausted"

	// KindAllExhausted marks the terminal failure after every candidate
	// model failed.
	KindAllExhausted ErrorKind = "all_models_exhausted"
)

// Error is a classified failure from one gateway exchange
type Error struct {
	Kind       ErrorKind
	Model      string
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if e.Model != "" {
		msg = fmt.Sprintf("model %s: %s", e.Model, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap implements error unwrapping
func (e *Error) Unwrap() error {
	return e.Cause
}

// ErrorKind returns the failure classification
func (e *Error) ErrorKind() ErrorKind {
	return e.Kind
}

// KindOf extracts the classification from any error in the chain. Errors
// that carry no classification are treated as non-retryable.
func KindOf(err error) ErrorKind {
	var kinder interface{ ErrorKind() ErrorKind }
	if errors.As(err, &kinder) {
		return kinder.ErrorKind()
	}
	return KindNonRetryable
}

// IsTransient reports whether the error may be retried against the same model
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}
