// Package result defines the tagged outcome type emitted by the mediator.
//
// A Result is one of two variants, consumed with a type switch:
//
//	switch r := r.(type) {
//	case result.Data[Address]:
//	    // r.Value may be nil: absence of data is valid, not an error
//	case result.Failure[Address]:
//	    // r.Kind, r.StatusCode, r.Err
//	}
package result

import "github.com/mrlokans/datakit/internal/faults"

// Result is the two-variant sum of Data and Failure. Values are immutable
// once emitted.
type Result[T any] interface {
	isResult()
}

// Data carries a successfully fetched value. A nil Value means the origin
// had nothing for the query, which is a valid outcome. Message carries
// optional status text from the origin.
type Data[T any] struct {
	Value   *T
	Message string
}

func (Data[T]) isResult() {}

// Failure carries one classified failure. Err holds the underlying cause
// with its captured stack trace; StatusCode is zero when no HTTP status was
// involved.
type Failure[T any] struct {
	Message    string
	Kind       faults.Kind
	StatusCode int
	Err        error
}

func (Failure[T]) isResult() {}

// FailureOf wraps a classified fault as a stream emission.
func FailureOf[T any](fe *faults.Error) Failure[T] {
	return Failure[T]{
		Message:    fe.Error(),
		Kind:       fe.Kind,
		StatusCode: fe.StatusCode,
		Err:        fe,
	}
}

// Retryable reports whether the failure is transient.
func (f Failure[T]) Retryable() bool { return faults.Retryable(f.Kind, f.StatusCode) }

// AuthError reports whether the failure is an auth rejection.
func (f Failure[T]) AuthError() bool { return faults.AuthError(f.Kind) }

// ShouldLogout reports whether the failure invalidates the session.
func (f Failure[T]) ShouldLogout() bool { return f.Kind == faults.KindUnauthorized }
