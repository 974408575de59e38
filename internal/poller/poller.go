// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrRegisterCount is returned when the gateway answers with a different
// number of registers than requested.
var ErrRegisterCount = errors.New("poller: unexpected register count")

// Client abstracts the one Modbus operation the poller needs.
type Client interface {
	ReadInputRegisters(addr, qty uint16) ([]uint16, error) // FC 4
	Close() error
}

// Factory opens a new client. ONE attempt per call.
type Factory func() (Client, error)

// Config is the minimal runtime config the poller needs.
type Config struct {
	Endpoint     string // informational, used in errors
	StartAddress uint16
	Channels     uint16
	Scale        float64
	Signed       bool // registers are two's complement
}

// Poller reads one Reading per call.
// It is not safe for concurrent use: one outstanding read at a time.
type Poller struct {
	cfg     Config
	client  Client
	factory Factory
	now     func() time.Time
}

// New creates a poller with immutable config.
// client may be nil when factory is set; the first Read opens it.
func New(cfg Config, client Client, factory Factory) (*Poller, error) {
	if cfg.Channels == 0 {
		return nil, errors.New("poller: at least one channel required")
	}
	if cfg.Scale <= 0 {
		return nil, errors.New("poller: scale must be > 0")
	}
	if client == nil && factory == nil {
		return nil, errors.New("poller: client or factory required")
	}
	return &Poller{
		cfg:     cfg,
		client:  client,
		factory: factory,
		now:     time.Now,
	}, nil
}

// Read performs exactly one request.
// On transport failure the client is discarded; the next Read reconnects
// through the factory. No retries.
func (p *Poller) Read(ctx context.Context) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, err
	}

	if p.client == nil {
		if p.factory == nil {
			return Reading{}, errors.New("poller: client closed")
		}
		c, err := p.factory()
		if err != nil {
			return Reading{}, fmt.Errorf("poller: reconnect %s: %w", p.cfg.Endpoint, err)
		}
		p.client = c
	}

	at := p.now()

	regs, err := p.client.ReadInputRegisters(p.cfg.StartAddress, p.cfg.Channels)
	if err != nil {
		p.discard()
		return Reading{}, fmt.Errorf("poller: read %s: %w", p.cfg.Endpoint, err)
	}
	if len(regs) != int(p.cfg.Channels) {
		// Framing is in doubt; start clean next tick.
		p.discard()
		return Reading{}, fmt.Errorf("%w: got=%d want=%d", ErrRegisterCount, len(regs), p.cfg.Channels)
	}

	return Reading{
		At:     at,
		Values: scaleRegisters(regs, p.cfg.Scale, p.cfg.Signed),
	}, nil
}

// Close releases the current client, if any.
func (p *Poller) Close() error {
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	p.factory = nil
	return err
}

func (p *Poller) discard() {
	if p.client != nil {
		_ = p.client.Close()
		p.client = nil
	}
}

// ---- conversion ----

func scaleRegisters(regs []uint16, scale float64, signed bool) []float64 {
	out := make([]float64, len(regs))
	for i, r := range regs {
		if signed {
			out[i] = float64(int16(r)) * scale
		} else {
			out[i] = float64(r) * scale
		}
	}
	return out
}
