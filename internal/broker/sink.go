package broker

import (
	"context"
	"errors"
	"time"
)

var errWaitExpired = errors.New("broker: wait expired")

// Sink receives the results of one caller's requests.
type Sink[K comparable, V any] struct {
	ch chan Result[K, V]
}

// NewSink creates a sink.
func NewSink[K comparable, V any]() *Sink[K, V] {
	return &Sink[K, V]{ch: make(chan Result[K, V], 4)}
}

// send never blocks the owner: a sink whose buffer is full has stopped
// listening.
func (s *Sink[K, V]) send(r Result[K, V]) {
	select {
	case s.ch <- r:
	default:
	}
}

// poll returns a result that is already waiting, without blocking.
func (s *Sink[K, V]) poll() (Result[K, V], bool) {
	select {
	case r := <-s.ch:
		return r, true
	default:
		return Result[K, V]{}, false
	}
}

// Wait returns the next result, or an error when timeout passes, ctx is done
// or done is closed.
func (s *Sink[K, V]) Wait(ctx context.Context, done <-chan struct{}, timeout time.Duration) (Result[K, V], error) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case r := <-s.ch:
		return r, nil
	case <-ctx.Done():
		return Result[K, V]{}, ctx.Err()
	case <-done:
		return Result[K, V]{}, ErrClosed
	case <-t.C:
		return Result[K, V]{}, errWaitExpired
	}
}
