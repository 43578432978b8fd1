// internal/keyence/status.go
package keyence

import "fmt"

// Status is the connection state owned by Client.
type Status int32

const (
	StatusNotConnected Status = iota
	StatusConnected
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusNotConnected:
		return "not_connected"
	case StatusConnected:
		return "connected"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

// MarshalText lets Status appear as a string in JSON.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
