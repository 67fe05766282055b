// Package mediator merges a cached local source and a networked remote
// source into a single ordered stream of results.
//
// One Execute call runs the local phase, then the remote phase, strictly in
// that order and each to completion: a local failure never prevents the
// remote fetch, and a remote failure never retracts an already-emitted
// cached value. After a successful remote fetch the optional save-back
// callback persists the fresh value; what happens when save-back fails is
// governed by SaveErrorPolicy.
package mediator

import (
	"context"
	"log"

	"github.com/mrlokans/datakit/internal/datasource"
	"github.com/mrlokans/datakit/internal/faults"
	"github.com/mrlokans/datakit/internal/result"
)

// SaveErrorPolicy controls what happens when the save-back callback fails
// after a successful remote fetch.
type SaveErrorPolicy int

const (
	// SurfaceSaveErrors emits the save failure into the stream, after the
	// remote Data result. This is the default: silently dropping
	// persistence failures hides real operational problems.
	SurfaceSaveErrors SaveErrorPolicy = iota
	// LogSaveErrors writes the failure to the logger and emits nothing.
	LogSaveErrors
	// IgnoreSaveErrors discards the failure entirely.
	IgnoreSaveErrors
)

// Logger is the minimal logging surface the mediator needs. *log.Logger
// satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

// SaveFunc persists the remote envelope back into local storage.
type SaveFunc[N any] func(ctx context.Context, env datasource.Envelope[N]) error

// Config assembles a mediator. Local and Remote are both optional; with
// neither configured Execute produces an empty stream.
type Config[E, N, R any] struct {
	Local       *datasource.Local[E, R]
	Remote      *datasource.Remote[N, R]
	Save        SaveFunc[N]
	OnSaveError SaveErrorPolicy
	Logger      Logger
}

// Mediator orchestrates up to two data sources for one logical query. It
// holds no mutable state across Execute calls.
type Mediator[E, N, R any] struct {
	local  *datasource.Local[E, R]
	remote *datasource.Remote[N, R]
	save   SaveFunc[N]
	policy SaveErrorPolicy
	logger Logger
}

// New builds a mediator from its configuration.
func New[E, N, R any](cfg Config[E, N, R]) *Mediator[E, N, R] {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Mediator[E, N, R]{
		local:  cfg.Local,
		remote: cfg.Remote,
		save:   cfg.Save,
		policy: cfg.OnSaveError,
		logger: logger,
	}
}

// Per phase at most one Data and one Failure for the primary fetch, plus at
// most one Failure for a failed save-back.
const maxEmissions = 3

// Execute runs both phases and returns the produced stream. It never
// returns an error: every failure becomes a Failure emission. Each call
// performs fresh fetches and produces an independent, single-consumer
// stream.
func (m *Mediator[E, N, R]) Execute(ctx context.Context) *Stream[R] {
	s := newStream[R](maxEmissions)
	go func() {
		defer close(s.ch)
		m.runLocalPhase(ctx, s.ch)
		m.runRemotePhase(ctx, s.ch)
	}()
	return s
}

func (m *Mediator[E, N, R]) runLocalPhase(ctx context.Context, out chan<- result.Result[R]) {
	if m.local == nil {
		return
	}

	value, err := m.local.Fetch(ctx)
	if err != nil {
		out <- result.FailureOf[R](faults.ClassifyStorage(err))
		return
	}
	// A nil value is a valid emission: the cache simply had nothing.
	out <- result.Data[R]{Value: value}
}

func (m *Mediator[E, N, R]) runRemotePhase(ctx context.Context, out chan<- result.Result[R]) {
	if m.remote == nil {
		return
	}

	value, env, err := m.remote.FetchWithEnvelope(ctx)
	if err != nil {
		out <- result.FailureOf[R](faults.ClassifyTransport(err))
		return
	}
	if !env.Successful() {
		out <- result.FailureOf[R](faults.FromStatus(env.StatusCode, env.Message))
		return
	}

	out <- result.Data[R]{Value: value, Message: env.Message}

	if m.save == nil {
		return
	}
	if err := m.save(ctx, env); err != nil {
		fe := faults.ClassifySave(err)
		switch m.policy {
		case SurfaceSaveErrors:
			out <- result.FailureOf[R](fe)
		case LogSaveErrors:
			m.logger.Printf("save after remote fetch failed: %v", fe)
		case IgnoreSaveErrors:
		}
	}
}
