// internal/poller/builder.go
package poller

import (
	"github.com/tamzrod/kvlogger/internal/config"
	"github.com/tamzrod/kvlogger/internal/keyence"
	"github.com/tamzrod/kvlogger/internal/logger"
)

// Build constructs the PLC client and a Poller driving it.
// The client is returned so other callers (HTTP) can share it;
// it serializes its own operations.
// No dial happens here; the first tick connects.
func Build(c *config.Config, log *logger.Logger) (*Poller, *keyence.Client, error) {
	descs, err := c.Descriptors()
	if err != nil {
		return nil, nil, err
	}

	client, err := keyence.New(descs, keyence.WithLogger(log.With("device", c.Device.Name)))
	if err != nil {
		return nil, nil, err
	}

	p, err := New(
		Config{
			DeviceID: c.Device.Name,
			Interval: c.PollInterval(),
			Address:  c.Address(),
		},
		client,
		log,
	)
	if err != nil {
		return nil, nil, err
	}

	return p, client, nil
}
