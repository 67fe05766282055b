package mediator

import (
	"iter"
	"sync/atomic"

	"github.com/cockroachdb/errors"

	"github.com/mrlokans/datakit/internal/result"
)

// ErrStreamConsumed is the panic value raised when one produced stream is
// consumed a second time. Re-consuming is a contract violation by the
// caller, not a data failure, so it fails loudly instead of silently
// duplicating or dropping emissions.
var ErrStreamConsumed = errors.New("mediator: result stream already consumed")

// Stream is the ordered emission sequence produced by one Execute call.
// It is single-consumer: exactly one call to Collect or All may drain it.
//
// The producer writes into a buffer sized for the maximum emission count,
// so abandoning a stream never blocks in-flight fetches; they run to
// completion in the background.
type Stream[R any] struct {
	ch       chan result.Result[R]
	consumed atomic.Bool
}

func newStream[R any](capacity int) *Stream[R] {
	return &Stream[R]{ch: make(chan result.Result[R], capacity)}
}

func (s *Stream[R]) claim() {
	if s.consumed.Swap(true) {
		panic(ErrStreamConsumed)
	}
}

// Collect drains the stream and returns every emission in order.
func (s *Stream[R]) Collect() []result.Result[R] {
	s.claim()
	var out []result.Result[R]
	for r := range s.ch {
		out = append(out, r)
	}
	return out
}

// All returns a one-shot iterator over the emissions in order. Breaking out
// of the range early abandons the remaining emissions.
func (s *Stream[R]) All() iter.Seq[result.Result[R]] {
	s.claim()
	return func(yield func(result.Result[R]) bool) {
		for r := range s.ch {
			if !yield(r) {
				return
			}
		}
	}
}
