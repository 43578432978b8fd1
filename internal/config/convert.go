// internal/config/convert.go
package config

import (
	"time"

	"github.com/tamzrod/kvlogger/internal/keyence"
)

// DefaultGroup holds measurements without a label.
const DefaultGroup = "default"

// Address returns the PLC endpoint.
func (c *Config) Address() keyence.Address {
	return keyence.Address{
		Host:    c.Device.Host,
		Port:    c.Device.Port,
		Timeout: time.Duration(c.Device.TimeoutMs) * time.Millisecond,
	}
}

// PollInterval returns the poll period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalMs) * time.Millisecond
}

// Descriptors converts measurements into client descriptors, in order.
func (c *Config) Descriptors() ([]keyence.Descriptor, error) {
	out := make([]keyence.Descriptor, 0, len(c.Measurements))
	for _, m := range c.Measurements {
		f, err := keyence.ParseDataFormat(m.Format)
		if err != nil {
			return nil, err
		}
		count := m.Count
		if count < 1 {
			count = 1
		}
		out = append(out, keyence.Descriptor{
			Name:    m.Name,
			Address: m.Address,
			Format:  f,
			Count:   count,
		})
	}
	return out, nil
}

// Group is a set of measurements sharing a label.
type Group struct {
	Label        string              `json:"label"`
	Measurements []MeasurementConfig `json:"measurements"`
}

// Groups returns measurements grouped by label, groups in order of first
// appearance.
func (c *Config) Groups() []Group {
	var out []Group
	idx := make(map[string]int)

	for _, m := range c.Measurements {
		label := m.Label
		if label == "" {
			label = DefaultGroup
		}
		i, ok := idx[label]
		if !ok {
			i = len(out)
			idx[label] = i
			out = append(out, Group{Label: label})
		}
		out[i].Measurements = append(out[i].Measurements, m)
	}
	return out
}
