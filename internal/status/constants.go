// internal/status/constants.go
package status

// Device status block layout.
// Register consumers depend on these offsets; they are not configurable.

// SlotsPerDevice is the fixed block length in registers.
const SlotsPerDevice = 20

// ---- SLOT INDICES ----

const (
	SlotHealthCode     = 0 // Health* below
	SlotLastErrorCode  = 1 // OpError code of the last failed cycle
	SlotSecondsInError = 2 // saturates at 65535
	SlotConnState      = 3 // keyence.Status
	SlotValueCount     = 4 // values in the last good frame
)

// Slots 5-10 are reserved and written as zero.
const (
	SlotReservedStart = 5
	SlotReservedEnd   = 10
)

// ---- DEVICE NAME ----

// The device name sits at the end of the block, two ASCII bytes per register.
const (
	SlotDeviceNameStart = 11
	SlotDeviceNameSlots = 8
	SlotDeviceNameEnd   = SlotDeviceNameStart + SlotDeviceNameSlots - 1
	DeviceNameMaxChars  = 2 * SlotDeviceNameSlots
)

// ---- HEALTH CODES ----

const (
	HealthUnknown  uint16 = 0 // boot, nothing polled yet
	HealthOK       uint16 = 1
	HealthError    uint16 = 2
	HealthStale    uint16 = 3 // connected, last cycle failed to decode
	HealthDisabled uint16 = 4 // operator disconnect
)

// HealthName returns the lowercase name of a health code.
func HealthName(h uint16) string {
	switch h {
	case HealthUnknown:
		return "unknown"
	case HealthOK:
		return "ok"
	case HealthError:
		return "error"
	case HealthStale:
		return "stale"
	case HealthDisabled:
		return "disabled"
	default:
		return "invalid"
	}
}
