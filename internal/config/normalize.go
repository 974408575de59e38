// internal/config/normalize.go
package config

// Defaults applied by Normalize.
const (
	DefaultUnitID          uint8 = 1
	DefaultDeviceTimeoutMs       = 3000
	DefaultScale                 = 0.1 // registers hold tenths of a degree

	DefaultStreamListen         = "127.0.0.1:5050"
	DefaultStreamWriteTimeoutMs = 500

	DefaultSinkURI        = "mongodb://localhost:27017"
	DefaultSinkDatabase   = "rtd"
	DefaultSinkCollection = "readings"
	DefaultUploadInterval = 1
	DefaultSinkTimeoutMs  = 10_000
	DefaultSinkQueueSize  = 4

	DefaultLogDir   = "log"
	DefaultLogLevel = "info"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	d := &cfg.Device
	if d.UnitID == 0 {
		d.UnitID = DefaultUnitID
	}
	if d.Framing == "" {
		d.Framing = FramingRTU
	}
	if d.TimeoutMs == 0 {
		d.TimeoutMs = DefaultDeviceTimeoutMs
	}
	if d.Scale == 0 {
		d.Scale = DefaultScale
	}

	st := &cfg.Stream
	if st.Listen == "" {
		st.Listen = DefaultStreamListen
	}
	if st.WriteTimeoutMs == 0 {
		st.WriteTimeoutMs = DefaultStreamWriteTimeoutMs
	}

	s := &cfg.Sink
	if s.URI == "" {
		s.URI = DefaultSinkURI
	}
	if s.Database == "" {
		s.Database = DefaultSinkDatabase
	}
	if s.Collection == "" {
		s.Collection = DefaultSinkCollection
	}
	if s.UploadIntervalMinutes == 0 {
		s.UploadIntervalMinutes = DefaultUploadInterval
	}
	if s.TimeoutMs == 0 {
		s.TimeoutMs = DefaultSinkTimeoutMs
	}
	if s.QueueSize == 0 {
		s.QueueSize = DefaultSinkQueueSize
	}

	l := &cfg.Log
	if l.Dir == "" {
		l.Dir = DefaultLogDir
	}
	if l.Level == "" {
		l.Level = DefaultLogLevel
	}
}
