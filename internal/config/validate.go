// internal/config/validate.go
package config

import (
	"errors"
	"fmt"

	"github.com/tamzrod/kvlogger/internal/keyence"
	"github.com/tamzrod/kvlogger/internal/status"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	// ------------------------------------------------------------
	// DEVICE
	// ------------------------------------------------------------

	d := cfg.Device
	if d.Host == "" {
		return errors.New("device.host is required")
	}
	if d.Port <= 0 || d.Port > 65535 {
		return fmt.Errorf("device.port %d out of range 1-65535", d.Port)
	}
	if d.TimeoutMs < 0 {
		return fmt.Errorf("device.timeout_ms %d must not be negative", d.TimeoutMs)
	}

	// device name sanity (ASCII only, it is packed into registers)
	for i := 0; i < len(d.Name); i++ {
		if d.Name[i] > 0x7F {
			return fmt.Errorf("device.name %q must contain ASCII characters only", d.Name)
		}
	}

	if cfg.Poll.IntervalMs < 0 {
		return fmt.Errorf("poll.interval_ms %d must not be negative", cfg.Poll.IntervalMs)
	}

	// ------------------------------------------------------------
	// MEASUREMENTS
	// ------------------------------------------------------------

	if len(cfg.Measurements) == 0 {
		return errors.New("at least one measurement is required")
	}

	names := make(map[string]int, len(cfg.Measurements))
	for i, m := range cfg.Measurements {
		if m.Name == "" {
			return fmt.Errorf("measurements[%d]: name is required", i)
		}
		if prev, dup := names[m.Name]; dup {
			return fmt.Errorf("measurements[%d]: name %q already used by measurements[%d]", i, m.Name, prev)
		}
		names[m.Name] = i

		if err := validateDeviceAddress(m.Address); err != nil {
			return fmt.Errorf("measurement %q: %w", m.Name, err)
		}
		if _, err := keyence.ParseDataFormat(m.Format); err != nil {
			return fmt.Errorf("measurement %q: format %q: %w", m.Name, m.Format, err)
		}
		if m.Count < 0 {
			return fmt.Errorf("measurement %q: count %d must not be negative", m.Name, m.Count)
		}
	}

	// ------------------------------------------------------------
	// HISTORY
	// ------------------------------------------------------------

	if cfg.History.RetentionDays < 0 {
		return fmt.Errorf("history.retention_days %d must not be negative", cfg.History.RetentionDays)
	}
	if cfg.History.RetentionDays > 0 && cfg.History.Path == "" {
		return errors.New("history.retention_days is set but history.path is empty")
	}

	// ------------------------------------------------------------
	// MQTT (OPTIONAL)
	// ------------------------------------------------------------

	if mq := cfg.MQTT; mq != nil {
		if mq.Broker == "" {
			return errors.New("mqtt.broker is required when mqtt is configured")
		}
		if mq.Port < 0 || mq.Port > 65535 {
			return fmt.Errorf("mqtt.port %d out of range", mq.Port)
		}
		if mq.QoS > 2 {
			return fmt.Errorf("mqtt.qos %d must be 0, 1 or 2", mq.QoS)
		}
	}

	// ------------------------------------------------------------
	// MODBUS MIRROR (OPTIONAL)
	// ------------------------------------------------------------

	if mr := cfg.Mirror; mr != nil {
		if mr.Endpoint == "" {
			return errors.New("mirror.endpoint is required when mirror is configured")
		}

		// every value occupies two holding registers
		regs := 2 * totalValues(cfg.Measurements)
		if int(mr.BaseAddress)+regs > 0x10000 {
			return fmt.Errorf(
				"mirror: %d registers from base_address %d exceed the register space",
				regs,
				mr.BaseAddress,
			)
		}

		// status is opt-in and needs its own unit id
		if mr.StatusSlot != nil && mr.StatusUnitID == nil {
			return errors.New("mirror.status_slot is set but mirror.status_unit_id is not")
		}
		if mr.StatusSlot == nil && mr.StatusUnitID != nil {
			return errors.New("mirror.status_unit_id is set but mirror.status_slot is not")
		}
		if mr.StatusSlot != nil && *mr.StatusUnitID == mr.UnitID {
			return fmt.Errorf("mirror.status_unit_id %d must differ from mirror.unit_id", mr.UnitID)
		}

		// the block starts at slot*SlotsPerDevice and must end inside uint16 space
		if mr.StatusSlot != nil {
			end := (int(*mr.StatusSlot) + 1) * status.SlotsPerDevice
			if end > 0x10000 {
				return fmt.Errorf(
					"mirror.status_slot %d out of range (max %d)",
					*mr.StatusSlot,
					0x10000/status.SlotsPerDevice-1,
				)
			}
		}
	}

	return nil
}

// validateDeviceAddress accepts a device prefix followed by a number,
// e.g. DM1000, R200, MR10.
func validateDeviceAddress(a string) error {
	if a == "" {
		return errors.New("address is required")
	}

	letters, digits := 0, 0
	for i := 0; i < len(a); i++ {
		c := a[i]
		switch {
		case (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z'):
			if digits > 0 {
				return fmt.Errorf("address %q: letter after number", a)
			}
			letters++
		case c >= '0' && c <= '9':
			digits++
		default:
			return fmt.Errorf("address %q: invalid character %q", a, c)
		}
	}
	if letters == 0 || digits == 0 {
		return fmt.Errorf("address %q: expected device prefix and number", a)
	}
	return nil
}

func totalValues(ms []MeasurementConfig) int {
	n := 0
	for _, m := range ms {
		if m.Count <= 1 {
			n++
			continue
		}
		n += m.Count
	}
	return n
}
