// internal/sink/csvfile/writer_test.go
package csvfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAppend_HeaderOnceThenRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "rtd.csv")

	w, err := New(path, 3)
	require.NoError(t, err)

	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, w.Append(at, []float64{21.5, 21.7, 21.6}))
	require.NoError(t, w.Append(at.Add(time.Minute), []float64{22, 22.1, -0.5}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t,
		"timestamp,channel_1,channel_2,channel_3\n"+
			"2025-01-02 03:04:05,21.5,21.7,21.6\n"+
			"2025-01-02 03:05:05,22,22.1,-0.5\n",
		string(raw))
}

func TestAppend_ExistingFileKeepsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rtd.csv")
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	w1, err := New(path, 1)
	require.NoError(t, err)
	require.NoError(t, w1.Append(at, []float64{1}))

	// A new session appends to the same archive.
	w2, err := New(path, 1)
	require.NoError(t, err)
	require.NoError(t, w2.Append(at, []float64{2}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "timestamp,channel_1\n2025-01-02 03:04:05,1\n2025-01-02 03:04:05,2\n", string(raw))
}

func TestAppend_ChannelMismatch(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "rtd.csv"), 2)
	require.NoError(t, err)
	require.Error(t, w.Append(time.Now(), []float64{1}))
}

func TestNew_Validation(t *testing.T) {
	_, err := New("", 1)
	require.Error(t, err)

	_, err = New("x.csv", 0)
	require.Error(t, err)
}

func TestAppend_DirectoryPathFails(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, 1)
	require.NoError(t, err)
	require.Error(t, w.Append(time.Now(), []float64{1}))
}

func TestWriteRow_ReadOnlyFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rtd.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	w, err := New(path, 1)
	require.NoError(t, err)
	require.Error(t, w.writeRow(f, time.Now(), []float64{1}), "a failed flush is reported")
}

func TestAppend_ManyRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rtd.csv")
	w, err := New(path, 1)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		require.NoError(t, w.Append(time.Unix(int64(i), 0), []float64{float64(i)}))
	}

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(raw), "\n"), "\n")
	require.Len(t, lines, 201)
	require.Equal(t, "timestamp,channel_1", lines[0])
}
