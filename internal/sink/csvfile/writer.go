// internal/sink/csvfile/writer.go
package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// TimestampLayout matches the stream line format.
const TimestampLayout = "2006-01-02 15:04:05"

// Writer appends one CSV row per stored reading.
// The file is opened per append: rows arrive at upload cadence.
type Writer struct {
	mu       sync.Mutex
	path     string
	channels int
}

func New(path string, channels int) (*Writer, error) {
	if path == "" {
		return nil, errors.New("sink csv: path required")
	}
	if channels <= 0 {
		return nil, errors.New("sink csv: channels must be > 0")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sink csv: %w", err)
		}
	}
	return &Writer{path: path, channels: channels}, nil
}

// Append writes one row. A header is written when the file is new or empty.
func (w *Writer) Append(at time.Time, values []float64) error {
	if len(values) != w.channels {
		return fmt.Errorf("sink csv: got %d values, want %d", len(values), w.channels)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("sink csv: open: %w", err)
	}

	if err := w.writeRow(f, at, values); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("sink csv: close: %w", err)
	}
	return nil
}

func (w *Writer) writeRow(f *os.File, at time.Time, values []float64) error {
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("sink csv: stat: %w", err)
	}

	cw := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := cw.Write(w.header()); err != nil {
			return fmt.Errorf("sink csv: header: %w", err)
		}
	}

	row := make([]string, 0, len(values)+1)
	row = append(row, at.Format(TimestampLayout))
	for _, v := range values {
		row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
	}
	if err := cw.Write(row); err != nil {
		return fmt.Errorf("sink csv: write: %w", err)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("sink csv: flush: %w", err)
	}
	return nil
}

func (w *Writer) header() []string {
	h := make([]string, 0, w.channels+1)
	h = append(h, "timestamp")
	for i := 1; i <= w.channels; i++ {
		h = append(h, "channel_"+strconv.Itoa(i))
	}
	return h
}
