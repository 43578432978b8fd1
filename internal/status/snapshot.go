// internal/status/snapshot.go
package status

import (
	"errors"

	"github.com/tamzrod/kvlogger/internal/keyence"
)

// Snapshot is exactly what the status writer is allowed to deliver.
type Snapshot struct {
	Health         uint16 `json:"health_code"`
	LastErrorCode  uint16 `json:"last_error_code"`
	SecondsInError uint16 `json:"seconds_in_error"`
	ConnState      uint16 `json:"conn_state"`
	ValueCount     uint16 `json:"value_count"`
}

// HealthFromStatus maps the client state to a health code.
func HealthFromStatus(s keyence.Status) uint16 {
	switch s {
	case keyence.StatusConnected:
		return HealthOK
	case keyence.StatusError:
		return HealthError
	default:
		return HealthUnknown
	}
}

// ErrorCode extracts a best-effort uint16 code from an error without
// assuming concrete types. If the error does not expose a code, returns 1.
func ErrorCode(err error) uint16 {
	if err == nil {
		return 0
	}

	type coderA interface{ Code() uint16 }
	type coderB interface{ ErrorCode() uint16 }

	var a coderA
	if errors.As(err, &a) {
		return a.Code()
	}
	var b coderB
	if errors.As(err, &b) {
		return b.ErrorCode()
	}

	return 1
}
