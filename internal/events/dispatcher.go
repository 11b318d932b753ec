package events

import (
	"context"
	"maps"
	"sync"
	"sync/atomic"
)

// Config controls how lifecycle events reach the sink.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull discards events when the queue is full instead of holding up
	// the request that raised them. Critical types are never discarded.
	DropIfFull bool
	// Types restricts delivery to the listed event types. Empty means all.
	Types []string
	// Critical lists event types that always wait for queue space.
	Critical []string
}

// Dispatcher hands events to a sink on a single background worker so that
// a slow sink never sits on the request path.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool
	allow      map[string]struct{}
	critical   map[string]struct{}

	queue     chan Event
	stop      chan struct{}
	worker    sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once

	dropped   atomic.Uint64
	dropMu    sync.Mutex
	droppedBy map[string]uint64
}

// NewDispatcher returns nil when cfg is disabled. A nil *Dispatcher accepts
// and discards everything.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		allow:      typeSet(cfg.Types),
		critical:   typeSet(cfg.Critical),
		queue:      make(chan Event, cfg.BufferSize),
		stop:       make(chan struct{}),
		droppedBy:  map[string]uint64{},
	}

	d.worker.Add(1)
	go d.deliver()

	return d
}

func typeSet(types []string) map[string]struct{} {
	if len(types) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return set
}

func (d *Dispatcher) deliver() {
	defer d.worker.Done()

	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		case <-d.stop:
			// flush what was queued before Close
			for {
				select {
				case event := <-d.queue:
					d.sink.Emit(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

// Wants reports whether events of type typ are delivered at all. Callers use
// it to skip building events nobody listens to.
func (d *Dispatcher) Wants(typ string) bool {
	if d == nil || d.closed.Load() {
		return false
	}
	if d.allow == nil {
		return true
	}
	_, ok := d.allow[typ]
	return ok
}

// Emit queues event for delivery. Events that cannot be queued, because the
// buffer is full under DropIfFull or because ctx ended first, are counted
// per type.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if !d.Wants(event.Type) {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if _, critical := d.critical[event.Type]; d.dropIfFull && !critical {
		select {
		case d.queue <- event:
		case <-d.stop:
		default:
			d.drop(event.Type)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.drop(event.Type)
	case <-d.stop:
	}
}

func (d *Dispatcher) drop(typ string) {
	d.dropped.Add(1)
	d.dropMu.Lock()
	d.droppedBy[typ]++
	d.dropMu.Unlock()
}

// Close stops accepting events, flushes the queue and waits for the worker.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.stop)
		d.worker.Wait()
	})
}

// Dropped returns the number of events discarded so far.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// DroppedByType returns a copy of the discard counts keyed by event type.
func (d *Dispatcher) DroppedByType() map[string]uint64 {
	if d == nil {
		return map[string]uint64{}
	}
	d.dropMu.Lock()
	defer d.dropMu.Unlock()
	return maps.Clone(d.droppedBy)
}
