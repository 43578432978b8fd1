// internal/history/models.go
package history

import (
	"fmt"
	"time"
)

// Sample is one stored value.
type Sample struct {
	ID         int64     `json:"id"`
	CycleID    string    `json:"cycle_id"`
	Device     string    `json:"device"`
	Name       string    `json:"name"`
	Format     string    `json:"format"`
	RecordedAt time.Time `json:"recorded_at"`
	Value      *float64  `json:"value"` // nil for non-finite floats
	Raw        int64     `json:"raw"`
}

// Event is a device status transition.
type Event struct {
	ID         string    `json:"id"`
	Device     string    `json:"device"`
	OccurredAt time.Time `json:"occurred_at"`
	Status     string    `json:"status"`
	Code       uint16    `json:"code"`
	Message    string    `json:"message"`
}

// Filter selects samples. Zero fields do not filter.
type Filter struct {
	Name  string
	From  time.Time
	To    time.Time
	Limit int
}

const (
	DefaultListLimit = 1000
	MaxListLimit     = 10000
)

// tsLayout sorts lexicographically, so text comparison in SQL is
// chronological.
const tsLayout = "2006-01-02 15:04:05.000"

func formatTS(t time.Time) string { return t.UTC().Format(tsLayout) }

// sqlTime scans TIMESTAMP columns whether the driver hands back
// time.Time or text.
type sqlTime struct{ t time.Time }

func (s *sqlTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		s.t = v.UTC()
		return nil
	case string:
		return s.parse(v)
	case []byte:
		return s.parse(string(v))
	case nil:
		s.t = time.Time{}
		return nil
	default:
		return fmt.Errorf("history: cannot scan %T into time", src)
	}
}

func (s *sqlTime) parse(v string) error {
	for _, layout := range []string{tsLayout, "2006-01-02 15:04:05", time.RFC3339Nano} {
		if t, err := time.Parse(layout, v); err == nil {
			s.t = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("history: bad timestamp %q", v)
}
