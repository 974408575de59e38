// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/rtd-streamer/internal/poller"
	"github.com/tamzrod/rtd-streamer/internal/state"
)

// Reader produces one reading per call. At most one call is outstanding.
type Reader interface {
	Read(ctx context.Context) (poller.Reading, error)
}

// Streamer delivers readings to the live client.
// Lost is closed when the client is gone; that ends the run.
type Streamer interface {
	Push(r poller.Reading) error
	Lost() <-chan struct{}
}

// Persister accepts a published snapshot for storage without blocking.
type Persister interface {
	Submit(snap *state.Snapshot) bool
}

// Config is the immutable timing config.
type Config struct {
	Period time.Duration

	// TicksPerUpload: persistence runs on ticks where tick % TicksPerUpload == 0.
	TicksPerUpload uint64
}

// Phase of the scheduler state machine.
type Phase int32

const (
	PhaseStarting Phase = iota
	PhaseRunning
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhaseRunning:
		return "running"
	default:
		return "stopped"
	}
}

// StopReason tells why Run returned.
type StopReason int

const (
	StopStreamLost StopReason = iota + 1
	StopCancelled
)

func (r StopReason) String() string {
	switch r {
	case StopStreamLost:
		return "stream client disconnected"
	case StopCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Scheduler is the poll loop: read, publish, push, and every
// TicksPerUpload ticks, persist. Everything runs off one clock.
type Scheduler struct {
	cfg     Config
	reader  Reader
	stream  Streamer
	persist Persister // nil: persistence disabled
	state   *state.Store
	log     *zap.Logger

	phase atomic.Int32
	tick  uint64 // owned by the loop goroutine

	now func() time.Time
}

// New validates dependencies. persist may be nil.
func New(cfg Config, reader Reader, stream Streamer, persist Persister, st *state.Store, log *zap.Logger) (*Scheduler, error) {
	if cfg.Period <= 0 {
		return nil, errors.New("scheduler: period must be > 0")
	}
	if persist != nil && cfg.TicksPerUpload == 0 {
		return nil, errors.New("scheduler: ticks per upload must be > 0 when persistence is enabled")
	}
	if reader == nil {
		return nil, errors.New("scheduler: reader required")
	}
	if stream == nil {
		return nil, errors.New("scheduler: stream required")
	}
	if st == nil {
		return nil, errors.New("scheduler: state store required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &Scheduler{
		cfg:     cfg,
		reader:  reader,
		stream:  stream,
		persist: persist,
		state:   st,
		log:     log,
		now:     time.Now,
	}
	s.phase.Store(int32(PhaseStarting))
	return s, nil
}

func (s *Scheduler) Phase() Phase {
	return Phase(s.phase.Load())
}

func (s *Scheduler) setPhase(p Phase) {
	prev := Phase(s.phase.Swap(int32(p)))
	s.log.Debug("phase", zap.Stringer("from", prev), zap.Stringer("to", p))
}

// Run drives ticks until the stream client is lost or ctx is cancelled.
// The first tick runs immediately; tick n is due at start + (n-1)*period.
func (s *Scheduler) Run(ctx context.Context) StopReason {
	s.setPhase(PhaseRunning)
	defer s.setPhase(PhaseStopped)

	lost := s.stream.Lost()
	start := s.now()

	s.log.Info("poll loop running",
		zap.Duration("period", s.cfg.Period),
		zap.Uint64("ticks_per_upload", s.cfg.TicksPerUpload),
		zap.Bool("persistence", s.persist != nil))

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	var slot int64
	for {
		// Loss noticed during the previous tick ends the run before the next read.
		select {
		case <-lost:
			return s.stopped(StopStreamLost)
		case <-ctx.Done():
			return s.stopped(StopCancelled)
		default:
		}

		s.step(ctx)

		next, skipped := nextSlot(start, s.cfg.Period, s.now(), slot)
		if skipped > 0 {
			s.log.Warn("poll tick overran, slots skipped", zap.Int64("skipped", skipped))
		}
		slot = next

		wait := slotTime(start, s.cfg.Period, slot).Sub(s.now())
		if timer == nil {
			timer = time.NewTimer(wait)
		} else {
			timer.Reset(wait) // previous fire was received
		}

		select {
		case <-lost:
			return s.stopped(StopStreamLost)
		case <-ctx.Done():
			return s.stopped(StopCancelled)
		case <-timer.C:
		}
	}
}

func (s *Scheduler) stopped(r StopReason) StopReason {
	s.log.Info("poll loop stopped", zap.Stringer("reason", r), zap.Uint64("ticks", s.tick))
	return r
}

// step is one tick. The tick counter advances whether or not the read succeeds.
// The stream and the sink both take the reading from the published snapshot.
func (s *Scheduler) step(ctx context.Context) {
	s.tick++
	tick := s.tick

	r, err := s.reader.Read(ctx)
	if err != nil {
		snap := s.state.PublishFailure(tick, err)
		s.log.Warn("device read failed, tick skipped",
			zap.Uint64("tick", tick),
			zap.Uint64("consecutive_failures", snap.ConsecutiveFailures),
			zap.Error(err))
		return
	}

	s.state.PublishReading(tick, r)
	snap := s.state.Load()
	s.log.Debug("reading", zap.Uint64("tick", tick), zap.Float64s("values", snap.Reading.Values))

	if err := s.stream.Push(snap.Reading); err != nil {
		s.log.Debug("stream push failed", zap.Uint64("tick", tick), zap.Error(err))
	}

	// A client lost on this push ends the session: nothing more is persisted.
	select {
	case <-s.stream.Lost():
		return
	default:
	}

	if s.persist != nil && tick%s.cfg.TicksPerUpload == 0 {
		if !s.persist.Submit(snap) {
			s.log.Warn("reading not queued for persistence", zap.Uint64("tick", tick))
		}
	}
}
