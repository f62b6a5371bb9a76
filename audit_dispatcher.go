package authcore

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher decouples the authentication hot path from the sink:
// events pass through a bounded queue serviced by a single goroutine, so a
// slow sink costs queue space instead of login latency. Closing the
// dispatcher stops intake and flushes whatever is still queued.
type auditDispatcher struct {
	sink       AuditSink
	queue      chan AuditEvent
	drained    chan struct{}
	dropIfFull bool

	mu       sync.RWMutex
	closed   bool
	dropped  atomic.Uint64
	stopOnce sync.Once
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	buffer := cfg.BufferSize
	if buffer <= 0 {
		buffer = 1
	}

	d := &auditDispatcher{
		sink:       sink,
		queue:      make(chan AuditEvent, buffer),
		drained:    make(chan struct{}),
		dropIfFull: cfg.DropIfFull,
	}
	go d.run()

	return d
}

// run services the queue until Close closes it; ranging over the closed
// channel doubles as the flush barrier.
func (d *auditDispatcher) run() {
	for event := range d.queue {
		d.sink.Emit(context.Background(), event)
	}
	close(d.drained)
}

// Emit enqueues one event. Holding the read lock across the send excludes
// Close, so no send can race the channel close.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
	}
}

// Close stops intake, hands remaining queued events to the sink, and waits
// for that flush to finish.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()

		close(d.queue)
		<-d.drained
	})
}

// Dropped reports how many events were discarded because the queue was full.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
