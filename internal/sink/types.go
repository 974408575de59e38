// internal/sink/types.go
package sink

import (
	"context"
	"time"

	"github.com/tamzrod/rtd-streamer/internal/poller"
	"github.com/tamzrod/rtd-streamer/internal/state"
)

// Document is one persisted reading.
type Document struct {
	SessionID string             `bson:"session_id"`
	Device    string             `bson:"device"`
	Tick      uint64             `bson:"tick"`
	Health    string             `bson:"health"`
	Timestamp time.Time          `bson:"timestamp"`
	Channels  map[string]float64 `bson:"channels"` // channel_1..channel_N
	Values    []float64          `bson:"values"`   // same values, channel order
}

// NewDocument converts a published snapshot into a Document.
// The stored reading is the snapshot's Reading, stamped with the tick that produced it.
func NewDocument(sessionID, device string, snap *state.Snapshot) Document {
	r := snap.Reading
	ch := make(map[string]float64, len(r.Values))
	for i, v := range r.Values {
		ch[poller.ChannelName(i)] = v
	}
	return Document{
		SessionID: sessionID,
		Device:    device,
		Tick:      snap.ReadingTick,
		Health:    snap.Health.String(),
		Timestamp: r.At,
		Channels:  ch,
		Values:    append([]float64(nil), r.Values...),
	}
}

// Backend is the exact contract a storage backend fulfils.
type Backend interface {
	Insert(ctx context.Context, doc Document) error
}
