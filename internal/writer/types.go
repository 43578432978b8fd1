// internal/writer/types.go
package writer

import "github.com/tamzrod/kvlogger/internal/poller"

// MirrorPlan is the register layout of the value mirror.
// Slot i of Keys occupies registers BaseAddress+2i and BaseAddress+2i+1.
type MirrorPlan struct {
	Endpoint    string
	UnitID      uint8
	BaseAddress uint16
	Keys        []string
}

// StatusPlan locates the device status block.
type StatusPlan struct {
	Endpoint   string
	UnitID     uint8
	BaseSlot   uint16
	DeviceName string
}

// Plan is the fully-built write plan for one device.
type Plan struct {
	DeviceID string
	Mirror   *MirrorPlan
	Status   *StatusPlan
}

// Writer receives every poll result.
// History, telemetry and the live hub implement it too.
type Writer interface {
	Write(res poller.PollResult) error
}

// WriterFunc adapts a function to Writer.
type WriterFunc func(res poller.PollResult) error

func (f WriterFunc) Write(res poller.PollResult) error { return f(res) }

// endpointClient is the exact contract the writers use.
type endpointClient interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}
