// internal/logging/logger.go
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// SessionLayout names the per-session log file: log/<session>_log.txt.
const SessionLayout = "2006-01-02 15-04-05"

type Config struct {
	Level   string // debug | info | warn | error
	Verbose bool   // debug level and a session log file
	Dir     string
	Session time.Time
}

// New builds the process logger: JSON to stderr, plus, when verbose, a
// console-encoded copy in the session log file. The returned func syncs
// and closes the file.
func New(cfg Config) (*zap.Logger, func() error, error) {
	level := parseLevel(cfg.Level)
	if cfg.Verbose {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(os.Stderr), level),
	}

	var file *os.File
	if cfg.Verbose {
		path, err := SessionPath(cfg.Dir, cfg.Session)
		if err != nil {
			return nil, nil, err
		}
		file, err = os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("logging: open %s: %w", path, err)
		}
		cores = append(cores,
			zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(file), level))
	}

	logger := zap.New(zapcore.NewTee(cores...))

	closeFn := func() error {
		_ = logger.Sync()
		if file != nil {
			return file.Close()
		}
		return nil
	}
	return logger, closeFn, nil
}

// SessionPath creates dir if needed and returns the log file path for session.
func SessionPath(dir string, session time.Time) (string, error) {
	if dir == "" {
		dir = "log"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("logging: %w", err)
	}
	return filepath.Join(dir, session.Format(SessionLayout)+"_log.txt"), nil
}

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
