// internal/status/tracker.go
package status

import (
	"errors"
	"sync"

	"github.com/tamzrod/kvlogger/internal/keyence"
)

// Tracker owns the device status snapshot.
// Observe is fed every poll outcome; Tick is driven at 1 Hz.
// Both report whether the snapshot changed.
type Tracker struct {
	mu       sync.RWMutex
	snap     Snapshot
	disabled bool // set by Disable, cleared by Enable
}

// NewTracker starts in HealthUnknown.
func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{Health: HealthUnknown}}
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}

// Observe records the outcome of one poll cycle.
// While disabled it is a no-op: a cycle that was in flight when the
// operator disconnected must not turn Disabled into Error.
func (t *Tracker) Observe(err error, st keyence.Status, values int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.disabled {
		return false
	}
	prev := t.snap
	t.snap.ConnState = uint16(st)

	if err == nil {
		// Recovery / OK
		t.snap.Health = HealthOK
		t.snap.LastErrorCode = 0
		t.snap.SecondsInError = 0
		if values > 0xFFFF {
			values = 0xFFFF
		}
		t.snap.ValueCount = uint16(values)
		return t.snap != prev
	}

	// A decode failure leaves the link up: data is stale, not lost.
	if st == keyence.StatusConnected &&
		(errors.Is(err, keyence.ErrMalformedResponse) || errors.Is(err, keyence.ErrDeviceRejected)) {
		t.snap.Health = HealthStale
	} else {
		t.snap.Health = HealthError
	}
	t.snap.LastErrorCode = ErrorCode(err)

	// seconds_in_error increments on Tick only
	return t.snap != prev
}

// Disable marks the device as intentionally disconnected.
func (t *Tracker) Disable() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.snap
	t.disabled = true
	t.snap.Health = HealthDisabled
	t.snap.ConnState = uint16(keyence.StatusNotConnected)
	t.snap.SecondsInError = 0
	return t.snap != prev
}

// Enable resumes observation after Disable. Health reads Unknown until
// the next cycle is observed.
func (t *Tracker) Enable() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.disabled {
		return false
	}
	t.disabled = false
	t.snap.Health = HealthUnknown
	t.snap.LastErrorCode = 0
	t.snap.SecondsInError = 0
	return true
}

// Tick advances seconds_in_error while the device is unhealthy.
func (t *Tracker) Tick() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.snap.Health {
	case HealthOK, HealthDisabled:
		return false
	}
	if t.snap.SecondsInError == 0xFFFF {
		return false
	}
	t.snap.SecondsInError++
	return true
}
