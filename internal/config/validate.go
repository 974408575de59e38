// internal/config/validate.go
package config

import (
	"fmt"
	"net"
)

// maxRegisters is the Modbus limit for one read-input-registers request.
const maxRegisters = 125

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
// Zero values that Normalize fills in are accepted here.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}

	// ------------------------------------------------------------
	// DEVICE
	// ------------------------------------------------------------

	d := cfg.Device

	if d.Endpoint == "" {
		return fmt.Errorf("device: endpoint is required")
	}
	if _, _, err := net.SplitHostPort(d.Endpoint); err != nil {
		return fmt.Errorf("device: endpoint %q must be host:port: %v", d.Endpoint, err)
	}

	switch d.Framing {
	case "", FramingRTU, FramingTCP:
	default:
		return fmt.Errorf("device: unknown framing %q (want %q or %q)", d.Framing, FramingRTU, FramingTCP)
	}

	if d.RegisterCount == 0 {
		return fmt.Errorf("device: register_count is required")
	}
	if d.RegisterCount > maxRegisters {
		return fmt.Errorf("device: register_count %d exceeds %d", d.RegisterCount, maxRegisters)
	}
	if int(d.StartAddress)+int(d.RegisterCount) > 0x10000 {
		return fmt.Errorf(
			"device: registers %d-%d exceed the 16-bit address space",
			d.StartAddress,
			int(d.StartAddress)+int(d.RegisterCount)-1,
		)
	}
	if d.TimeoutMs < 0 {
		return fmt.Errorf("device: timeout_ms must be >= 0")
	}
	if d.Scale < 0 {
		return fmt.Errorf("device: scale must be >= 0")
	}

	// ------------------------------------------------------------
	// SAMPLING
	// ------------------------------------------------------------

	if cfg.Sample.RatePerMinute <= 0 {
		return fmt.Errorf("sample: rate_per_minute must be > 0")
	}
	// Period is computed in whole nanoseconds; keep it meaningful.
	if cfg.Sample.RatePerMinute > 60_000 {
		return fmt.Errorf("sample: rate_per_minute %d is above 1 sample/ms", cfg.Sample.RatePerMinute)
	}

	// ------------------------------------------------------------
	// STREAM
	// ------------------------------------------------------------

	if cfg.Stream.Listen != "" {
		if _, _, err := net.SplitHostPort(cfg.Stream.Listen); err != nil {
			return fmt.Errorf("stream: listen %q must be host:port: %v", cfg.Stream.Listen, err)
		}
	}
	if cfg.Stream.WriteTimeoutMs < 0 {
		return fmt.Errorf("stream: write_timeout_ms must be >= 0")
	}

	// ------------------------------------------------------------
	// SINK
	// ------------------------------------------------------------

	s := cfg.Sink

	if s.UploadIntervalMinutes < 0 {
		return fmt.Errorf("sink: upload_interval_minutes must be >= 0")
	}
	if s.TimeoutMs < 0 {
		return fmt.Errorf("sink: timeout_ms must be >= 0")
	}
	if s.QueueSize < 0 {
		return fmt.Errorf("sink: queue_size must be >= 0")
	}

	// ------------------------------------------------------------
	// LOG
	// ------------------------------------------------------------

	switch cfg.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log: unknown level %q", cfg.Log.Level)
	}

	return nil
}
