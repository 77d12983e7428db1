// Package async provides a sink wrapper with a bounded queue so captures
// stay off the caller's critical path. Events are delivered in the
// background; the oldest queued event is dropped when the queue is full.
package async

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/strongdm/faultline/pkg/faultline"
)

// Option configures the async sink.
type Option func(*config)

type config struct {
	queueSize int
	onDropped func(count int)
}

// WithQueueSize sets the maximum number of queued events (default: 100,
// matching the tracker's max_queue_size default).
func WithQueueSize(size int) Option {
	return func(c *config) {
		if size > 0 {
			c.queueSize = size
		}
	}
}

// WithOnDropped sets a callback invoked when events are dropped due to
// queue overflow.
func WithOnDropped(fn func(count int)) Option {
	return func(c *config) {
		c.onDropped = fn
	}
}

// asyncSink wraps a sink with a bounded queue and a single worker.
type asyncSink struct {
	inner     faultline.Sink
	queue     chan faultline.Event
	done      chan struct{}
	closeOnce sync.Once
	closeMu   sync.Mutex
	closed    bool
	wg        sync.WaitGroup
	onDropped func(count int)
}

// New wraps a sink with a bounded queue for asynchronous delivery.
// Write returns immediately; when the queue is full the oldest event is
// dropped to make room. There is no persistent queue, so process exit may
// drop in-flight events; call Flush before shutdown.
func New(inner faultline.Sink, opts ...Option) faultline.Sink {
	cfg := &config{queueSize: 100}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &asyncSink{
		inner:     inner,
		queue:     make(chan faultline.Event, cfg.queueSize),
		done:      make(chan struct{}),
		onDropped: cfg.onDropped,
	}

	s.wg.Add(1)
	go s.processLoop()

	return s
}

// processLoop drains the queue and delivers to the inner sink.
func (s *asyncSink) processLoop() {
	defer s.wg.Done()
	for {
		select {
		case event, ok := <-s.queue:
			if !ok {
				return
			}
			// Delivery is best effort; the inner sink's error is dropped.
			_ = s.inner.Write(context.Background(), event)
		case <-s.done:
			for {
				select {
				case event, ok := <-s.queue:
					if !ok {
						return
					}
					_ = s.inner.Write(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

// Write enqueues an event and returns immediately.
func (s *asyncSink) Write(ctx context.Context, event faultline.Event) error {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return errors.New("async sink is closed")
	}
	s.closeMu.Unlock()

	select {
	case s.queue <- event:
		return nil
	default:
		s.dropOldestAndEnqueue(event)
		return nil
	}
}

// dropOldestAndEnqueue drops the oldest queued event and enqueues the new one.
func (s *asyncSink) dropOldestAndEnqueue(event faultline.Event) {
	select {
	case <-s.queue:
		if s.onDropped != nil {
			s.onDropped(1)
		}
	default:
		// Queue was emptied by the worker in the meantime.
	}

	select {
	case s.queue <- event:
	default:
		// Still full; drop the new event instead.
		if s.onDropped != nil {
			s.onDropped(1)
		}
	}
}

// Flush blocks until all queued events are delivered or ctx is done.
func (s *asyncSink) Flush(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if len(s.queue) == 0 {
				// Give the worker a moment to finish the last event.
				time.Sleep(10 * time.Millisecond)
				return s.inner.Flush(ctx)
			}
		}
	}
}

// Close stops the worker, drains the queue, and closes the inner sink.
func (s *asyncSink) Close() error {
	s.closeOnce.Do(func() {
		s.closeMu.Lock()
		s.closed = true
		s.closeMu.Unlock()

		close(s.done)
		s.wg.Wait()
		close(s.queue)
	})

	return s.inner.Close()
}
