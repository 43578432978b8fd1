// internal/writer/status_writer.go
package writer

import (
	"errors"
	"fmt"

	"github.com/tamzrod/kvlogger/internal/status"
)

// StatusWriter delivers a status snapshot to register memory.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}

// deviceStatusWriter writes the full block once, then only changed slots.
type deviceStatusWriter struct {
	plan *StatusPlan
	cli  endpointClient

	needFull bool
	last     status.Snapshot
}

// liveSlots lists the incrementally written slots.
var liveSlots = []struct {
	slot uint16
	name string
	get  func(status.Snapshot) uint16
}{
	{status.SlotHealthCode, "health", func(s status.Snapshot) uint16 { return s.Health }},
	{status.SlotLastErrorCode, "last_error", func(s status.Snapshot) uint16 { return s.LastErrorCode }},
	{status.SlotSecondsInError, "seconds_in_error", func(s status.Snapshot) uint16 { return s.SecondsInError }},
	{status.SlotConnState, "conn_state", func(s status.Snapshot) uint16 { return s.ConnState }},
	{status.SlotValueCount, "value_count", func(s status.Snapshot) uint16 { return s.ValueCount }},
}

// NewDeviceStatusWriter returns false when the plan has no status block.
func NewDeviceStatusWriter(plan Plan, cli endpointClient) (StatusWriter, bool) {
	if plan.Status == nil {
		return nil, false
	}

	return &deviceStatusWriter{
		plan:     plan.Status,
		cli:      cli,
		needFull: true,
		last:     status.Snapshot{Health: status.HealthUnknown},
	}, true
}

// WriteStatus delivers a snapshot into status memory.
// On any write failure, the next call re-asserts the full block.
func (sw *deviceStatusWriter) WriteStatus(s status.Snapshot) error {
	if sw == nil || sw.plan == nil {
		return errors.New("device status: not configured")
	}
	if sw.cli == nil {
		return fmt.Errorf("device status: no modbus client for %s", sw.plan.Endpoint)
	}

	start := sw.plan.BaseSlot * status.SlotsPerDevice

	if sw.needFull {
		// whole block, device name included
		block := status.Encode(s, sw.plan.DeviceName)
		if err := sw.cli.WriteRegisters(sw.plan.UnitID, start, block); err != nil {
			return fmt.Errorf("device status: block write at %d: %w", start, err)
		}
		sw.last, sw.needFull = s, false
		return nil
	}

	var failed error
	for _, ls := range liveSlots {
		v := ls.get(s)
		if v == ls.get(sw.last) {
			continue
		}
		if err := sw.cli.WriteRegisters(sw.plan.UnitID, start+ls.slot, []uint16{v}); err != nil {
			failed = errors.Join(failed, fmt.Errorf("%s (slot %d): %w", ls.name, ls.slot, err))
		}
	}
	if failed != nil {
		// register contents are unknown now
		sw.needFull = true
		return fmt.Errorf("device status: %w", failed)
	}

	sw.last = s
	return nil
}
