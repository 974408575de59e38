// internal/scheduler/clock.go
package scheduler

import "time"

// nextSlot returns the index of the next tick to run after slot last.
//
// Slot k is due at start + k*period. Normally that is last+1. When the
// previous iteration overran one or more slots, the missed ones are skipped:
// the result is the first slot not before now (a slot due exactly now still
// runs), so the schedule never bursts and stays on the grid anchored at start.
func nextSlot(start time.Time, period time.Duration, now time.Time, last int64) (next int64, skipped int64) {
	next = last + 1
	if !slotTime(start, period, next).Before(now) {
		return next, 0
	}

	elapsed := now.Sub(start)
	due := int64(elapsed / period)
	if elapsed%period != 0 {
		due++
	}
	return due, due - next
}

// slotTime is the wall-clock due time of slot k.
func slotTime(start time.Time, period time.Duration, k int64) time.Time {
	return start.Add(time.Duration(k) * period)
}
