// cmd/rtd/main_test.go
package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// ---- helpers ----

// silentGateway accepts connections and never answers; every read times out.
func silentGateway(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		var conns []net.Conn
		defer func() {
			for _, c := range conns {
				_ = c.Close()
			}
		}()
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			conns = append(conns, c)
		}
	}()
	return ln.Addr().String()
}

// freeAddr returns a loopback address nobody listens on.
func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func writeConfig(t *testing.T, device, listen string) string {
	t.Helper()
	dir := t.TempDir()
	body := fmt.Sprintf(`
device:
  endpoint: %s
  register_count: 3
  timeout_ms: 50
sample:
  rate_per_minute: 600
stream:
  listen: %s
log:
  dir: %s
`, device, listen, filepath.Join(dir, "log"))

	path := filepath.Join(dir, "rtd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func runAsync(ctx context.Context, args ...string) <-chan int {
	done := make(chan int, 1)
	go func() { done <- run(ctx, args, &bytes.Buffer{}) }()
	return done
}

func waitExit(t *testing.T, done <-chan int) int {
	t.Helper()
	select {
	case code := <-done:
		return code
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not return")
		return -1
	}
}

// ---- startup failures ----

func TestRun_MissingConfig(t *testing.T) {
	var stderr bytes.Buffer
	code := run(context.Background(), []string{"-config", filepath.Join(t.TempDir(), "nope.yaml")}, &stderr)
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "config load failed")
}

func TestRun_UnknownFlag(t *testing.T) {
	require.Equal(t, 1, run(context.Background(), []string{"-bogus"}, &bytes.Buffer{}))
}

func TestRun_InvalidConfig(t *testing.T) {
	path := writeConfig(t, "no-port", freeAddr(t))

	var stderr bytes.Buffer
	require.Equal(t, 1, run(context.Background(), []string{"-config", path}, &stderr))
	require.Contains(t, stderr.String(), "config validation failed")
}

func TestRun_DeviceUnreachable(t *testing.T) {
	path := writeConfig(t, freeAddr(t), freeAddr(t))
	require.Equal(t, 1, run(context.Background(), []string{"-config", path}, &bytes.Buffer{}))
}

func TestRun_ListenerInUse(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	path := writeConfig(t, silentGateway(t), busy.Addr().String())
	require.Equal(t, 1, run(context.Background(), []string{"-config", path}, &bytes.Buffer{}))
}

// ---- clean stops ----

func TestRun_ClientDisconnectExitsZero(t *testing.T) {
	listen := freeAddr(t)
	path := writeConfig(t, silentGateway(t), listen)

	done := runAsync(context.Background(), "-config", path)

	var c net.Conn
	require.Eventually(t, func() bool {
		var err error
		c, err = net.Dial("tcp", listen)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	// Let the server attach the client before it leaves.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, c.Close())

	require.Equal(t, 0, waitExit(t, done))
}

func TestRun_CancelExitsZero(t *testing.T) {
	path := writeConfig(t, silentGateway(t), freeAddr(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, "-config", path)

	time.Sleep(100 * time.Millisecond)
	cancel()

	require.Equal(t, 0, waitExit(t, done))
}
