// internal/config/load.go
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment overrides, applied after the YAML file.
// Credentials usually live in the sink URI, so they can stay out of the file.
const (
	EnvSinkURI        = "RTD_SINK_URI"
	EnvDeviceEndpoint = "RTD_DEVICE_ENDPOINT"
)

// Load reads the YAML config at path. A .env file next to the working
// directory is loaded first when present. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyEnv(cfg)
	return cfg, nil
}

// Parse decodes a YAML document into a Config. No defaults are applied.
func Parse(raw []byte) (*Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvSinkURI); v != "" {
		cfg.Sink.URI = v
	}
	if v := os.Getenv(EnvDeviceEndpoint); v != "" {
		cfg.Device.Endpoint = v
	}
}
