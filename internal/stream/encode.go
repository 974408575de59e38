// internal/stream/encode.go
package stream

import (
	"strconv"

	"github.com/tamzrod/rtd-streamer/internal/poller"
)

// TimestampLayout is the timestamp format of the first field of every line.
const TimestampLayout = "2006-01-02 15:04:05"

// FormatLine encodes one reading as a newline-terminated CSV line:
//
//	timestamp,ch1,ch2,...,chN\n
//
// Values are in channel order, shortest decimal representation.
func FormatLine(r poller.Reading) []byte {
	b := make([]byte, 0, len(TimestampLayout)+8*len(r.Values)+1)
	b = r.At.AppendFormat(b, TimestampLayout)
	for _, v := range r.Values {
		b = append(b, ',')
		b = strconv.AppendFloat(b, v, 'f', -1, 64)
	}
	return append(b, '\n')
}
