// internal/sink/dispatcher.go
package sink

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/rtd-streamer/internal/state"
)

// Options for a Dispatcher.
type Options struct {
	QueueSize int
	Timeout   time.Duration // per write
	SessionID string
	Device    string
}

// Stats are running counters, safe to read at any time.
type Stats struct {
	Stored  uint64
	Failed  uint64
	Dropped uint64
}

// Dispatcher moves persistence off the poll tick.
// Submit never blocks; one worker writes queued readings in order.
// Failures are logged and counted, nothing else.
type Dispatcher struct {
	backend Backend
	opts    Options
	log     *zap.Logger

	mu     sync.Mutex
	closed bool
	queue  chan *state.Snapshot
	done   chan struct{}

	stored  atomic.Uint64
	failed  atomic.Uint64
	dropped atomic.Uint64
}

func NewDispatcher(b Backend, opts Options, log *zap.Logger) (*Dispatcher, error) {
	if b == nil {
		return nil, errors.New("sink: backend required")
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	d := &Dispatcher{
		backend: b,
		opts:    opts,
		log:     log,
		queue:   make(chan *state.Snapshot, opts.QueueSize),
		done:    make(chan struct{}),
	}
	go d.run()
	return d, nil
}

// Submit queues the snapshot's reading for storage. It returns false when
// it was not queued (queue full or dispatcher closed).
func (d *Dispatcher) Submit(snap *state.Snapshot) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false
	}

	select {
	case d.queue <- snap:
		return true
	default:
		d.dropped.Add(1)
		d.log.Warn("sink queue full, reading dropped",
			zap.Uint64("tick", snap.ReadingTick),
			zap.Int("queue_size", d.opts.QueueSize))
		return false
	}
}

// Store writes snap synchronously, bounded by the write timeout.
func (d *Dispatcher) Store(ctx context.Context, snap *state.Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	defer cancel()

	return d.backend.Insert(ctx, NewDocument(d.opts.SessionID, d.opts.Device, snap))
}

// Close stops intake and waits for queued readings to be written.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	<-d.done
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Stored:  d.stored.Load(),
		Failed:  d.failed.Load(),
		Dropped: d.dropped.Load(),
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for snap := range d.queue {
		start := time.Now()
		if err := d.Store(context.Background(), snap); err != nil {
			d.failed.Add(1)
			d.log.Error("sink write failed",
				zap.Uint64("tick", snap.ReadingTick),
				zap.Time("at", snap.Reading.At),
				zap.Error(err))
			continue
		}
		d.stored.Add(1)
		d.log.Info("reading stored",
			zap.Uint64("tick", snap.ReadingTick),
			zap.Time("at", snap.Reading.At),
			zap.Duration("took", time.Since(start)))
	}
}
