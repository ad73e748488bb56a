package audit

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls buffering. With DropIfFull a full buffer discards new
// events, except those whose type is listed in Keep: session-ending events
// (logout, session_expired) wait for space like in blocking mode.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	Keep       []string
}

// Dispatcher relays session events from the request path to a sink on its
// own goroutine. A nil *Dispatcher accepts and discards everything, which is
// what a client with auditing disabled holds.
type Dispatcher struct {
	cfg  Config
	sink Sink
	ch   chan Event
	done chan struct{}
	wg   sync.WaitGroup
	now  func() time.Time

	emitted atomic.Uint64
	dropped atomic.Uint64

	mu     sync.Mutex
	byType map[string]uint64

	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts the relay goroutine, or returns nil when cfg is
// disabled.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	d := &Dispatcher{
		cfg:    cfg,
		sink:   sink,
		ch:     make(chan Event, max(cfg.BufferSize, 1)),
		done:   make(chan struct{}),
		now:    time.Now,
		byType: make(map[string]uint64),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case e := <-d.ch:
			d.deliver(e)
		case <-d.done:
			d.drain()
			return
		}
	}
}

// drain hands every buffered event to the sink so a logout emitted just
// before Close still reaches the log.
func (d *Dispatcher) drain() {
	for {
		select {
		case e := <-d.ch:
			d.deliver(e)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(e Event) {
	d.sink.Emit(context.Background(), e)
	d.emitted.Add(1)
}

// Emit stamps e when its Timestamp is zero and queues it. Events emitted
// after Close are ignored.
func (d *Dispatcher) Emit(ctx context.Context, e Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = d.now().UTC()
	}

	if d.cfg.DropIfFull && !slices.Contains(d.cfg.Keep, e.EventType) {
		select {
		case d.ch <- e:
		case <-d.done:
		default:
			d.drop(e)
		}
		return
	}

	select {
	case d.ch <- e:
	case <-ctx.Done():
		d.drop(e)
	case <-d.done:
	}
}

func (d *Dispatcher) drop(e Event) {
	d.dropped.Add(1)
	d.mu.Lock()
	d.byType[e.EventType]++
	d.mu.Unlock()
}

// Close stops accepting events and returns once the buffer is drained.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped is the number of events lost to a full buffer or a canceled
// context.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// DroppedByType breaks Dropped down by event type.
func (d *Dispatcher) DroppedByType() map[string]uint64 {
	out := make(map[string]uint64)
	if d == nil {
		return out
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, v := range d.byType {
		out[k] = v
	}
	return out
}

// Emitted is the number of events handed to the sink.
func (d *Dispatcher) Emitted() uint64 {
	if d == nil {
		return 0
	}
	return d.emitted.Load()
}
