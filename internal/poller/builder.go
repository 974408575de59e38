// internal/poller/builder.go
package poller

import (
	cfg "github.com/tamzrod/rtd-streamer/internal/config"
	pmodbus "github.com/tamzrod/rtd-streamer/internal/poller/modbus"
)

// Build opens the gateway connection and returns a Poller that owns it.
// The connection lives until a read fails; the following tick dials again.
func Build(d cfg.DeviceConfig) (*Poller, error) {
	// one dial per call
	factory := func() (Client, error) {
		c, err := pmodbus.New(pmodbus.Config{
			Endpoint: d.Endpoint,
			UnitID:   d.UnitID,
			Framing:  d.Framing,
			Timeout:  d.Timeout(),
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	// a dead gateway at startup is fatal
	client, err := factory()
	if err != nil {
		return nil, err
	}

	p, err := New(
		Config{
			Endpoint:     d.Endpoint,
			StartAddress: d.StartAddress,
			Channels:     d.RegisterCount,
			Scale:        d.Scale,
			Signed:       d.Signed,
		},
		client,
		factory,
	)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	return p, nil
}
