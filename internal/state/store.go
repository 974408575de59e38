// internal/state/store.go
package state

import (
	"sync/atomic"

	"github.com/tamzrod/rtd-streamer/internal/poller"
)

// Store holds the latest Snapshot.
// Single writer (the poll loop), any number of readers.
type Store struct {
	cur atomic.Pointer[Snapshot]
}

func NewStore() *Store {
	s := &Store{}
	s.cur.Store(&Snapshot{Health: HealthUnknown})
	return s
}

// Load returns the current snapshot. Never nil.
func (s *Store) Load() *Snapshot {
	return s.cur.Load()
}

// PublishReading replaces the snapshot after a successful tick.
func (s *Store) PublishReading(tick uint64, r poller.Reading) *Snapshot {
	next := &Snapshot{
		Reading:     r,
		Tick:        tick,
		ReadingTick: tick,
		Health:      HealthOK,
	}
	s.cur.Store(next)
	return next
}

// PublishFailure records a failed tick. The previous Reading is kept.
func (s *Store) PublishFailure(tick uint64, err error) *Snapshot {
	prev := s.cur.Load()

	next := &Snapshot{
		Reading:             prev.Reading,
		Tick:                tick,
		ReadingTick:         prev.ReadingTick,
		Health:              HealthError,
		ConsecutiveFailures: prev.ConsecutiveFailures + 1,
	}
	if err != nil {
		next.LastError = err.Error()
	}
	s.cur.Store(next)
	return next
}
