// internal/writer/builder.go
package writer

import (
	"errors"
	"time"

	"github.com/tamzrod/kvlogger/internal/config"
	"github.com/tamzrod/kvlogger/internal/keyence"
	wmodbus "github.com/tamzrod/kvlogger/internal/writer/modbus"
)

// BuildPlan converts the mirror config into a Writer Plan.
// Assumes config has already passed validation.
// A nil mirror section yields an empty plan.
func BuildPlan(c *config.Config) (Plan, error) {
	if c.Device.Name == "" {
		return Plan{}, errors.New("writer: device name required")
	}

	plan := Plan{DeviceID: c.Device.Name}
	mr := c.Mirror
	if mr == nil {
		return plan, nil
	}

	descs, err := c.Descriptors()
	if err != nil {
		return Plan{}, err
	}

	plan.Mirror = &MirrorPlan{
		Endpoint:    mr.Endpoint,
		UnitID:      mr.UnitID,
		BaseAddress: mr.BaseAddress,
		Keys:        FrameKeys(descs),
	}

	if mr.StatusSlot != nil {
		plan.Status = &StatusPlan{
			Endpoint:   mr.Endpoint,
			UnitID:     *mr.StatusUnitID,
			BaseSlot:   *mr.StatusSlot,
			DeviceName: c.Device.Name,
		}
	}

	return plan, nil
}

// FrameKeys returns the keys PollAll produces for descs, in order.
func FrameKeys(descs []keyence.Descriptor) []string {
	var keys []string
	for _, d := range descs {
		if d.Count <= 1 {
			keys = append(keys, d.Name)
			continue
		}
		for i := 0; i < d.Count; i++ {
			keys = append(keys, keyence.ElementKey(d.Name, i))
		}
	}
	return keys
}

// BuildEndpointClient creates the Modbus client for the mirror endpoint.
// Returns nil when the mirror is disabled.
func BuildEndpointClient(c *config.Config) (*wmodbus.EndpointClient, error) {
	if c.Mirror == nil {
		return nil, nil
	}
	return wmodbus.NewEndpointClient(wmodbus.Config{
		Endpoint: c.Mirror.Endpoint,
		Timeout:  time.Duration(c.Mirror.TimeoutMs) * time.Millisecond,
	})
}
