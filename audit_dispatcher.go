package authcore

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// auditDispatcher decouples audit persistence from the request path. Events
// are handed to a buffered channel and written by a single worker goroutine;
// a store failure is logged and the event is not retried.
type auditDispatcher struct {
	cfg       AuditConfig
	store     AuditStore
	log       *slog.Logger
	ch        chan AuditEvent
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func newAuditDispatcher(cfg AuditConfig, store AuditStore, log *slog.Logger) *auditDispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}

	d := &auditDispatcher{
		cfg:   cfg,
		store: store,
		log:   log,
		ch:    make(chan AuditEvent, cfg.BufferSize),
		done:  make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *auditDispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.persist(event)
		case <-d.done:
			// Drain whatever is already buffered before exiting.
			for {
				select {
				case event := <-d.ch:
					d.persist(event)
				default:
					return
				}
			}
		}
	}
}

func (d *auditDispatcher) persist(event AuditEvent) {
	if d.store == nil {
		return
	}
	if err := d.store.Append(context.Background(), event); err != nil {
		d.log.Error("audit persistence failed",
			slog.String("event_type", string(event.EventType)),
			slog.String("error", err.Error()))
	}
}

// Emit enqueues the event. With DropIfFull set a full buffer drops the event
// and counts it; otherwise Emit waits until there is room or the context or
// dispatcher ends.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- event:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
	case <-d.done:
	}
}

// Close stops the worker after draining buffered events. Safe to call more
// than once.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped reports how many events were discarded because the buffer was full.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
