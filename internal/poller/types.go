// internal/poller/types.go
package poller

import (
	"time"

	"github.com/google/uuid"

	"github.com/tamzrod/kvlogger/internal/keyence"
)

// PollResult is a snapshot produced by one poll cycle.
type PollResult struct {
	DeviceID string
	CycleID  uuid.UUID
	At       time.Time

	// Status is the client state after the cycle.
	Status keyence.Status

	Frame keyence.Frame // empty when Err != nil
	Err   error         // non-nil means the poll cycle failed
}

// OK reports whether the cycle produced a frame.
func (r PollResult) OK() bool { return r.Err == nil }
