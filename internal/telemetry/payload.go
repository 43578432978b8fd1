// internal/telemetry/payload.go
package telemetry

import (
	"encoding/json"
	"time"

	"github.com/tamzrod/kvlogger/internal/keyence"
	"github.com/tamzrod/kvlogger/internal/poller"
)

// ValuesMessage is published to <topic>/values for every good cycle.
type ValuesMessage struct {
	Device    string                   `json:"device"`
	CycleID   string                   `json:"cycle_id"`
	Timestamp string                   `json:"timestamp"`
	Keys      []string                 `json:"keys"`
	Values    map[string]keyence.Value `json:"values"`
}

// StatusMessage is published retained to <topic>/status on every change.
type StatusMessage struct {
	Device    string `json:"device"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// BuildPayload encodes the values message for a successful cycle.
func BuildPayload(res poller.PollResult) ([]byte, error) {
	return json.Marshal(ValuesMessage{
		Device:    res.DeviceID,
		CycleID:   res.CycleID.String(),
		Timestamp: res.At.UTC().Format(time.RFC3339Nano),
		Keys:      res.Frame.Keys,
		Values:    res.Frame.Values,
	})
}

// BuildStatusPayload encodes a status message.
func BuildStatusPayload(device, status string, err error, at time.Time) ([]byte, error) {
	m := StatusMessage{
		Device:    device,
		Status:    status,
		Timestamp: at.UTC().Format(time.RFC3339Nano),
	}
	if err != nil {
		m.Error = err.Error()
	}
	return json.Marshal(m)
}
