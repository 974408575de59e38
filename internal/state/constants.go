// internal/state/constants.go
package state

// ---- HEALTH CODES ----

// Health is the device link health as seen by the poll loop.
type Health uint16

// HealthUnknown represents the boot state, before the first tick.
const HealthUnknown Health = 0

// HealthOK means the last tick read the device successfully.
const HealthOK Health = 1

// HealthError means the last tick failed; Reading is from an earlier tick.
const HealthError Health = 2

func (h Health) String() string {
	switch h {
	case HealthOK:
		return "ok"
	case HealthError:
		return "error"
	default:
		return "unknown"
	}
}
