// Package datasource defines the local and remote source abstractions the
// mediator orchestrates.
//
// A source pairs an injected fetch closure with a pure mapper. Sources hold
// no mutable state: every Fetch call is independent, and side effects live
// entirely inside the injected closures. Fetch and mapper errors propagate
// to the caller unmodified; classification is the mediator's job.
package datasource

import (
	"context"
	"net/http"

	"github.com/mrlokans/datakit/internal/faults"
)

// Envelope wraps a remote response: the decoded value, the HTTP status and
// an optional message from the origin.
type Envelope[N any] struct {
	Value      *N
	StatusCode int
	Message    string
}

// Successful reports whether the status is in the 2xx range.
func (e Envelope[N]) Successful() bool {
	return e.StatusCode >= 200 && e.StatusCode < 300
}

// Created reports whether the origin answered 201 specifically, not any
// other 2xx status.
func (e Envelope[N]) Created() bool {
	return e.StatusCode == http.StatusCreated
}

// LocalFetchFunc loads the cached entity, returning nil when the store has
// no entry for the query.
type LocalFetchFunc[E any] func(ctx context.Context) (*E, error)

// RemoteFetchFunc performs the network call. It returns a non-2xx envelope
// when the caller should see the status, and an error only for transport
// faults.
type RemoteFetchFunc[N any] func(ctx context.Context) (Envelope[N], error)

// Local reads an entity from the cache and maps it into the model type.
type Local[E, R any] struct {
	fetch LocalFetchFunc[E]
	mapFn func(E) (R, error)
}

// NewLocal builds a local source from a fetch closure and a mapper.
func NewLocal[E, R any](fetch LocalFetchFunc[E], mapFn func(E) (R, error)) *Local[E, R] {
	return &Local[E, R]{fetch: fetch, mapFn: mapFn}
}

// Fetch returns the mapped cached value, or nil when the store has no entry.
// Storage errors propagate unmodified; mapper failures are tagged as mapper
// faults.
func (l *Local[E, R]) Fetch(ctx context.Context) (*R, error) {
	entity, err := l.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, nil
	}

	mapped, err := l.mapFn(*entity)
	if err != nil {
		return nil, faults.Mapper(err)
	}
	return &mapped, nil
}

// Remote fetches a response envelope from the network and maps it into the
// model type.
type Remote[N, R any] struct {
	fetch RemoteFetchFunc[N]
	mapFn func(Envelope[N]) (R, error)
}

// NewRemote builds a remote source from a fetch closure and a mapper.
func NewRemote[N, R any](fetch RemoteFetchFunc[N], mapFn func(Envelope[N]) (R, error)) *Remote[N, R] {
	return &Remote[N, R]{fetch: fetch, mapFn: mapFn}
}

// Fetch returns the bare mapped value.
func (r *Remote[N, R]) Fetch(ctx context.Context) (*R, error) {
	value, _, err := r.FetchWithEnvelope(ctx)
	return value, err
}

// FetchWithEnvelope returns the mapped value together with the original
// envelope, which callers need for the origin's status, message and for
// save-back. The mapper runs only on successful envelopes; a non-2xx
// envelope comes back as-is with a nil value so the caller can classify the
// status.
func (r *Remote[N, R]) FetchWithEnvelope(ctx context.Context) (*R, Envelope[N], error) {
	env, err := r.fetch(ctx)
	if err != nil {
		return nil, Envelope[N]{}, err
	}
	if !env.Successful() {
		return nil, env, nil
	}

	mapped, err := r.mapFn(env)
	if err != nil {
		return nil, env, faults.Mapper(err)
	}
	return &mapped, env, nil
}
