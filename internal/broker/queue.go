// Package broker moves resource requests from any goroutine to the single
// owner goroutine that may create GPU resources, and moves the results back.
//
// Consumers call Await, which queues the key and blocks on a private sink.
// The owner drains the queue with Pop and answers with Resolve. A key is
// queued at most once; later callers attach their sink to the queued request
// and all of them receive the same value.
package broker

import (
	"context"
	"errors"
	"sync"
	"time"

	"voxel-assets/internal/logging"
)

var (
	// ErrTimeout is returned to a consumer whose request was dropped, whose
	// context ended or whose broker was closed while it waited.
	ErrTimeout = errors.New("broker: request timed out")
	// ErrNotOwner reports an owner-only operation called from another goroutine.
	ErrNotOwner = errors.New("broker: not on the owner goroutine")
	// ErrClosed is returned by Add after Close.
	ErrClosed = errors.New("broker: queue closed")
)

// DefaultWaitTimeout bounds a single wait on a sink. Waiting continues after
// it expires as long as the request is still pending.
const DefaultWaitTimeout = time.Second

// Result pairs a value with the key it was requested for.
type Result[K comparable, V any] struct {
	Key   K
	Value V
}

// Request is one queued key with every sink waiting for it.
type Request[K comparable, V any] struct {
	Key   K
	sinks []*Sink[K, V]
}

// RequestQueue is a FIFO of requests keyed by K.
type RequestQueue[K comparable, V any] struct {
	mu       sync.Mutex
	queue    []*Request[K, V]
	queued   map[K]*Request[K, V]
	inFlight map[K]*Request[K, V]
	closed   bool
	done     chan struct{}
}

// NewRequestQueue creates an empty queue.
func NewRequestQueue[K comparable, V any]() *RequestQueue[K, V] {
	return &RequestQueue[K, V]{
		queued:   make(map[K]*Request[K, V]),
		inFlight: make(map[K]*Request[K, V]),
		done:     make(chan struct{}),
	}
}

// Add queues key for sink. If key is already queued the sink joins that
// request instead.
func (q *RequestQueue[K, V]) Add(key K, sink *Sink[K, V]) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	if r, ok := q.queued[key]; ok {
		r.sinks = append(r.sinks, sink)
		logging.Logger().Debug("broker: attached to queued request", "key", key, "waiters", len(r.sinks))
		return nil
	}
	r := &Request[K, V]{Key: key, sinks: []*Sink[K, V]{sink}}
	q.queue = append(q.queue, r)
	q.queued[key] = r
	logging.Logger().Debug("broker: queued request", "key", key, "depth", len(q.queue))
	return nil
}

// Pop removes the oldest request. The request counts as pending until it is
// resolved. ok is false when the queue is empty.
func (q *RequestQueue[K, V]) Pop() (r *Request[K, V], ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.queue) == 0 {
		return nil, false
	}
	r = q.queue[0]
	q.queue[0] = nil
	q.queue = q.queue[1:]
	delete(q.queued, r.Key)
	q.inFlight[r.Key] = r
	return r, true
}

// Resolve delivers v to every sink of r. The value reaches the sinks before
// the request stops counting as pending.
func (q *RequestQueue[K, V]) Resolve(r *Request[K, V], v V) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, s := range r.sinks {
		s.send(Result[K, V]{Key: r.Key, Value: v})
	}
	if q.inFlight[r.Key] == r {
		delete(q.inFlight, r.Key)
	}
}

// Pending reports whether key is queued or being built.
func (q *RequestQueue[K, V]) Pending(key K) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, queued := q.queued[key]
	_, building := q.inFlight[key]
	return queued || building
}

// Len returns the number of queued requests.
func (q *RequestQueue[K, V]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

// Close drops every queued request and wakes all waiters, which then return
// ErrTimeout. Close is idempotent.
func (q *RequestQueue[K, V]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	dropped := len(q.queue)
	q.queue = nil
	clear(q.queued)
	clear(q.inFlight)
	close(q.done)
	if dropped > 0 {
		logging.Logger().Info("broker: dropped queued requests", "count", dropped)
	}
}

// Closed reports whether Close was called.
func (q *RequestQueue[K, V]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Await queues key and blocks until the owner resolves it. Each wait lasts at
// most timeout; when it expires Await gives up only if the queue was closed,
// ctx is done or the request is no longer pending.
func (q *RequestQueue[K, V]) Await(ctx context.Context, key K, timeout time.Duration) (V, error) {
	var zero V
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	sink := NewSink[K, V]()
	if err := q.Add(key, sink); err != nil {
		return zero, ErrTimeout
	}
	for {
		res, err := sink.Wait(ctx, q.done, timeout)
		if err != nil {
			// The result may have landed while the wait expired.
			if r, ok := sink.poll(); ok {
				res, err = r, nil
			}
		}
		if err != nil {
			if ctx.Err() != nil || q.Closed() || !q.Pending(key) {
				if r, ok := sink.poll(); ok && r.Key == key {
					return r.Value, nil
				}
				logging.Logger().Warn("broker: gave up waiting", "key", key, "err", err)
				return zero, ErrTimeout
			}
			continue
		}
		if res.Key != key {
			logging.Logger().Warn("broker: result for another key, still waiting", "want", key, "got", res.Key)
			continue
		}
		return res.Value, nil
	}
}
