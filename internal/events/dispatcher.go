package events

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"vcard-service/internal/util"
)

const (
	defaultBuffer  = 256
	publishTimeout = 5 * time.Second
)

// Dispatcher queues events and delivers each one to every sink in parallel
// from a single background worker.
type Dispatcher struct {
	sinks []Sink
	queue chan Event

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
	done      chan struct{}
}

func NewDispatcher(buffer int, sinks ...Sink) *Dispatcher {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	d := &Dispatcher{
		sinks: sinks,
		queue: make(chan Event, buffer),
		done:  make(chan struct{}),
	}
	go d.run()
	return d
}

// Emit enqueues e. When the queue is full or the dispatcher is closed the
// event is dropped and logged.
func (d *Dispatcher) Emit(e Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		util.Warn("Dropping event after close", util.String("type", string(e.Type)))
		return
	}
	select {
	case d.queue <- e:
	default:
		util.Warn("Event queue full, dropping event",
			util.String("type", string(e.Type)),
			util.String("transaction_id", e.Transaction.ID))
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for e := range d.queue {
		d.deliver(e)
	}
}

func (d *Dispatcher) deliver(e Event) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	var g errgroup.Group
	for _, sink := range d.sinks {
		g.Go(func() error {
			if err := sink.Publish(ctx, e); err != nil {
				util.Error("Failed to publish event",
					util.String("sink", sink.Name()),
					util.String("type", string(e.Type)),
					util.String("event_id", e.ID),
					util.ErrorField(err))
				return err
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Close stops accepting events and waits for the queue to drain or ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
