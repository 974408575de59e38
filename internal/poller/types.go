// internal/poller/types.go
package poller

import (
	"strconv"
	"time"
)

// Reading is the result of one successful poll.
// Values holds one temperature per channel, in register order.
// A Reading is never mutated after it is returned.
type Reading struct {
	At     time.Time
	Values []float64
}

// Channels is the number of values in the reading.
func (r Reading) Channels() int {
	return len(r.Values)
}

// ChannelName is the identifier used for channel i (0-based) in stored documents.
func ChannelName(i int) string {
	return "channel_" + strconv.Itoa(i+1)
}
