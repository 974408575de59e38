// internal/sink/builder.go
package sink

import (
	"context"
	"errors"

	"go.uber.org/zap"

	cfg "github.com/tamzrod/rtd-streamer/internal/config"
	"github.com/tamzrod/rtd-streamer/internal/sink/csvfile"
	smongo "github.com/tamzrod/rtd-streamer/internal/sink/mongo"
)

// ---- backend adapters ----

type mongoBackend struct {
	c *smongo.Client
}

func (b mongoBackend) Insert(ctx context.Context, doc Document) error {
	return b.c.InsertOne(ctx, doc)
}

type csvBackend struct {
	w *csvfile.Writer
}

func (b csvBackend) Insert(_ context.Context, doc Document) error {
	return b.w.Append(doc.Timestamp, doc.Values)
}

// BuildBackends creates the MongoDB backend and, when csv_path is set, the
// CSV archive. An unreachable MongoDB server is logged, not fatal: every
// later write fails and is logged on its own.
func BuildBackends(ctx context.Context, s cfg.SinkConfig, channels int, log *zap.Logger) (Backend, func() error, error) {
	if log == nil {
		log = zap.NewNop()
	}

	mc, err := smongo.New(ctx, smongo.Config{
		URI:        s.URI,
		Database:   s.Database,
		Collection: s.Collection,
		Timeout:    s.Timeout(),
	})
	if err != nil {
		return nil, nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, s.Timeout())
	if err := mc.Ping(pingCtx); err != nil {
		log.Warn("sink server not reachable at startup", zap.String("database", s.Database), zap.Error(err))
	}
	cancel()

	backends := Multi{mongoBackend{c: mc}}
	closers := []func() error{
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), s.Timeout())
			defer cancel()
			return mc.Close(ctx)
		},
	}

	if s.CSVPath != "" {
		w, err := csvfile.New(s.CSVPath, channels)
		if err != nil {
			_ = closers[0]()
			return nil, nil, err
		}
		backends = append(backends, csvBackend{w: w})
		log.Info("csv archive enabled", zap.String("path", s.CSVPath))
	}

	closeAll := func() error {
		var errs []error
		for _, fn := range closers {
			if err := fn(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	if len(backends) == 1 {
		return backends[0], closeAll, nil
	}
	return backends, closeAll, nil
}
