// cmd/rtd/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tamzrod/rtd-streamer/internal/config"
	"github.com/tamzrod/rtd-streamer/internal/logging"
	"github.com/tamzrod/rtd-streamer/internal/poller"
	"github.com/tamzrod/rtd-streamer/internal/scheduler"
	"github.com/tamzrod/rtd-streamer/internal/sink"
	"github.com/tamzrod/rtd-streamer/internal/state"
	"github.com/tamzrod/rtd-streamer/internal/stream"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

// run is the whole process. It returns the exit status: 0 after a client
// disconnect or ctx cancellation, 1 when startup fails.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("rtd", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "rtd.yaml", "path to the YAML config")
	useDB := fs.Bool("db", false, "persist one reading per upload interval")
	verbose := fs.Bool("log", false, "debug logging to a per-session file")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "config load failed: %v\n", err)
		return 1
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(stderr, "config validation failed: %v\n", err)
		return 1
	}
	config.Normalize(cfg)

	session := time.Now()
	sessionID := uuid.NewString()

	log, closeLog, err := logging.New(logging.Config{
		Level:   cfg.Log.Level,
		Verbose: *verbose,
		Dir:     cfg.Log.Dir,
		Session: session,
	})
	if err != nil {
		fmt.Fprintf(stderr, "logger init failed: %v\n", err)
		return 1
	}
	defer closeLog()

	log = log.With(zap.String("session_id", sessionID))
	log.Info("rtd starting",
		zap.String("device", cfg.Device.Endpoint),
		zap.String("framing", cfg.Device.Framing),
		zap.Int("rate_per_minute", cfg.Sample.RatePerMinute),
		zap.Bool("persistence", *useDB))

	// ---- device reader ----
	p, err := poller.Build(cfg.Device)
	if err != nil {
		log.Error("device connect failed", zap.String("endpoint", cfg.Device.Endpoint), zap.Error(err))
		return 1
	}
	defer func() {
		if err := p.Close(); err != nil {
			log.Warn("device close failed", zap.Error(err))
		}
	}()

	// ---- stream server ----
	srv, err := stream.Listen(stream.Config{
		Listen:       cfg.Stream.Listen,
		WriteTimeout: cfg.Stream.WriteTimeout(),
	}, log.Named("stream"))
	if err != nil {
		log.Error("stream listen failed", zap.Error(err))
		return 1
	}

	// ---- persistence (optional) ----
	var persist scheduler.Persister
	var dispatcher *sink.Dispatcher
	var closeSink func() error

	if *useDB {
		backend, closer, err := sink.BuildBackends(ctx, cfg.Sink, int(cfg.Device.RegisterCount), log.Named("sink"))
		if err != nil {
			_ = srv.Close()
			log.Error("sink init failed", zap.Error(err))
			return 1
		}
		closeSink = closer

		dispatcher, err = sink.NewDispatcher(backend, sink.Options{
			QueueSize: cfg.Sink.QueueSize,
			Timeout:   cfg.Sink.Timeout(),
			SessionID: sessionID,
			Device:    cfg.Device.Endpoint,
		}, log.Named("sink"))
		if err != nil {
			_ = srv.Close()
			_ = closeSink()
			log.Error("sink init failed", zap.Error(err))
			return 1
		}
		persist = dispatcher
	}

	// ---- scheduler ----
	sched, err := scheduler.New(scheduler.Config{
		Period:         cfg.Sample.Period(),
		TicksPerUpload: cfg.TicksPerUpload(),
	}, p, srv, persist, state.NewStore(), log.Named("scheduler"))
	if err != nil {
		_ = srv.Close()
		if dispatcher != nil {
			dispatcher.Close()
			_ = closeSink()
		}
		log.Error("scheduler init failed", zap.Error(err))
		return 1
	}

	reason := sched.Run(ctx)

	// --------------------
	// Shutdown: stop serving, then drain uploads already queued
	// --------------------

	log.Info("shutting down",
		zap.Stringer("reason", reason),
		zap.Stringer("phase", sched.Phase()),
		zap.Bool("client_connected", srv.Connected()))

	if err := srv.Close(); err != nil {
		log.Warn("stream close failed", zap.Error(err))
	}
	if dispatcher != nil {
		dispatcher.Close()
		st := dispatcher.Stats()
		log.Info("sink drained",
			zap.Uint64("stored", st.Stored),
			zap.Uint64("failed", st.Failed),
			zap.Uint64("dropped", st.Dropped))
	}
	if closeSink != nil {
		if err := closeSink(); err != nil {
			log.Warn("sink close failed", zap.Error(err))
		}
	}

	log.Info("rtd stopped")
	return 0
}
