// Package apperr defines the error kinds used across the dispatch
// pipeline, per spec.md's error handling design: each kind maps to a
// specific propagation rule (surfaced to the client, retried, or
// dead-lettered).
package apperr

import "errors"

var (
	// ErrValidation marks a client input error; the ingestion handler
	// maps this to 422.
	ErrValidation = errors.New("validation error")

	// ErrStoreUnavailable marks a failure to reach the shared store.
	// Ingestion maps this to 503; workers retry with backoff.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrProcessorTransient marks a 5xx/timeout/connection error from a
	// processor; the worker requeues with backoff.
	ErrProcessorTransient = errors.New("processor transient failure")

	// ErrProcessorPermanent marks a non-422 4xx from a processor; the
	// worker dead-letters without retrying.
	ErrProcessorPermanent = errors.New("processor permanent failure")

	// ErrInternal marks a bug. Never returned to a client with detail.
	ErrInternal = errors.New("internal error")
)

// Validation returns an error that matches ErrValidation and carries a
// caller-supplied kind tag.
func Validation(kind string) error {
	return &kindError{kind: kind, sentinel: ErrValidation}
}

type kindError struct {
	kind     string
	sentinel error
}

func (e *kindError) Error() string { return e.kind }

func (e *kindError) Unwrap() error { return e.sentinel }

// Kind returns the short tag passed to Validation, or "" if err isn't one.
func Kind(err error) string {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return ""
}
