package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultDrainTimeout bounds Close when Config.DrainTimeout is zero.
const DefaultDrainTimeout = 5 * time.Second

// Config controls dispatcher buffering and shutdown.
//
// DrainTimeout is how long Close keeps delivering queued events. When it elapses the
// context passed to the sink is cancelled and whatever is still queued is counted as
// dropped, so a stalled broker cannot hold up shutdown.
type Config struct {
	Enabled      bool
	BufferSize   int
	DropIfFull   bool
	DrainTimeout time.Duration
}

// Dispatcher forwards events to a sink from a single background goroutine. The sink
// receives a context that stays live until the drain deadline; sinks doing I/O must
// honor it.
type Dispatcher struct {
	cfg       Config
	sink      Sink
	ch        chan Event
	done      chan struct{}
	stopped   chan struct{}
	sinkCtx   context.Context
	cancel    context.CancelFunc
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher returns nil when cfg is disabled. A nil Dispatcher is safe to use.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		cfg:     cfg,
		sink:    sink,
		ch:      make(chan Event, cfg.BufferSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		sinkCtx: ctx,
		cancel:  cancel,
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.stopped)

	for {
		select {
		case event := <-d.ch:
			d.deliver(event)
		case <-d.done:
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case event := <-d.ch:
			d.deliver(event)
		default:
			return
		}
	}
}

// deliver counts event as dropped instead of emitting it once the drain deadline has
// cancelled sinkCtx.
func (d *Dispatcher) deliver(event Event) {
	if d.sinkCtx.Err() != nil {
		d.dropped.Add(1)
		return
	}
	d.sink.Emit(d.sinkCtx, event)
}

// Emit queues event. With DropIfFull it never blocks and counts drops; otherwise it
// waits for buffer space, ctx cancellation (counted as a drop) or Close.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
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
		d.dropped.Add(1)
	case <-d.done:
	}
}

// Close stops accepting events and delivers what is queued, for at most DrainTimeout.
// It is idempotent.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)

		timer := time.NewTimer(d.cfg.DrainTimeout)
		defer timer.Stop()
		select {
		case <-d.stopped:
		case <-timer.C:
			d.cancel()
			<-d.stopped
		}
		d.cancel()
	})
}

// Dropped counts events discarded under backpressure, on caller cancellation, or at the
// drain deadline.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
