// internal/config/config.go
package config

import "time"

type Config struct {
	Device DeviceConfig `yaml:"device"`
	Sample SampleConfig `yaml:"sample"`
	Stream StreamConfig `yaml:"stream"`
	Sink   SinkConfig   `yaml:"sink"`
	Log    LogConfig    `yaml:"log"`
}

// ---- DEVICE (gateway) ----

const (
	FramingRTU = "rtu" // RTU frames tunneled over raw TCP
	FramingTCP = "tcp" // Modbus TCP (MBAP)
)

type DeviceConfig struct {
	Endpoint      string  `yaml:"endpoint"`
	UnitID        uint8   `yaml:"unit_id"`
	Framing       string  `yaml:"framing"`
	StartAddress  uint16  `yaml:"start_address"`
	RegisterCount uint16  `yaml:"register_count"` // one register per channel
	TimeoutMs     int     `yaml:"timeout_ms"`
	Scale         float64 `yaml:"scale"`
	Signed        bool    `yaml:"signed"`
}

func (d DeviceConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutMs) * time.Millisecond
}

// ---- SAMPLING ----

type SampleConfig struct {
	RatePerMinute int `yaml:"rate_per_minute"`
}

// Period is the time between two poll ticks.
func (s SampleConfig) Period() time.Duration {
	if s.RatePerMinute <= 0 {
		return 0
	}
	return time.Minute / time.Duration(s.RatePerMinute)
}

// ---- STREAM ----

type StreamConfig struct {
	Listen         string `yaml:"listen"`
	WriteTimeoutMs int    `yaml:"write_timeout_ms"`
}

func (s StreamConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutMs) * time.Millisecond
}

// ---- SINK ----

type SinkConfig struct {
	URI                   string `yaml:"uri"`
	Database              string `yaml:"database"`
	Collection            string `yaml:"collection"`
	UploadIntervalMinutes int    `yaml:"upload_interval_minutes"`
	TimeoutMs             int    `yaml:"timeout_ms"`
	QueueSize             int    `yaml:"queue_size"`
	CSVPath               string `yaml:"csv_path"` // optional local archive
}

func (s SinkConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// ---- LOG ----

type LogConfig struct {
	Dir   string `yaml:"dir"`
	Level string `yaml:"level"`
}

// TicksPerUpload is the number of poll ticks between two persisted readings.
func (c *Config) TicksPerUpload() uint64 {
	n := c.Sink.UploadIntervalMinutes * c.Sample.RatePerMinute
	if n <= 0 {
		return 0
	}
	return uint64(n)
}
