// Package bus is the single-writer event loop: producers post closures and
// one goroutine runs them in order.
package bus

import (
	"context"
	"runtime/debug"
	"sync"

	"carrytrader/pkg/exception"

	"github.com/yanun0323/logs"
)

// Event is a unit of work run on the loop goroutine.
type Event func()

// Queue is a bounded event queue drained by Run.
type Queue struct {
	ch        chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// NewQueue allocates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{
		ch:   make(chan Event, capacity),
		done: make(chan struct{}),
	}
}

// Publish enqueues an event, waiting for room until ctx is done or the
// queue is closed.
func (q *Queue) Publish(ctx context.Context, e Event) error {
	if e == nil {
		return exception.ErrNilInstance
	}
	select {
	case <-q.done:
		return exception.ErrQueueClosed
	default:
	}
	select {
	case q.ch <- e:
		return nil
	case <-q.done:
		return exception.ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPublish enqueues an event without blocking.
func (q *Queue) TryPublish(e Event) error {
	if e == nil {
		return exception.ErrNilInstance
	}
	select {
	case <-q.done:
		return exception.ErrQueueClosed
	default:
	}
	select {
	case q.ch <- e:
		return nil
	default:
		return exception.ErrQueueFull
	}
}

// Close stops the queue from accepting new events. Run drains what is
// already queued and returns.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}

// Len is the number of queued events.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Run consumes events until the context is done or the queue is closed.
// A panicking event is logged and the loop goes on.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-q.ch:
			q.exec(e)
		case <-q.done:
			for {
				select {
				case e := <-q.ch:
					q.exec(e)
				default:
					return
				}
			}
		}
	}
}

func (q *Queue) exec(e Event) {
	defer func() {
		if r := recover(); r != nil {
			logs.Errorf("event loop recovered panic: %v\n%s", r, debug.Stack())
		}
	}()
	e()
}
