// internal/state/snapshot.go
package state

import "github.com/tamzrod/rtd-streamer/internal/poller"

// Snapshot is one published view of the poll loop.
// It is immutable: a new Snapshot replaces the old one on every tick.
type Snapshot struct {
	// Reading is the last successfully read value; zero before the first success.
	Reading poller.Reading

	// Tick is the scheduler tick that produced this snapshot (counts failures too).
	Tick uint64

	// ReadingTick is the tick that produced Reading.
	ReadingTick uint64

	Health              Health
	ConsecutiveFailures uint64
	LastError           string
}

// HasReading reports whether at least one poll has succeeded.
func (s Snapshot) HasReading() bool {
	return s.ReadingTick != 0
}
