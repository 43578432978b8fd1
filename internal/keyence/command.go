// internal/keyence/command.go
package keyence

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Static commands. Sent verbatim.
const (
	CmdClearError     = "ER\r"
	CmdErrorNumber    = "?E\r"
	CmdDeviceIdentity = "?K\r"
)

// DataFormat selects the register encoding for RD / RDS.
type DataFormat string

const (
	FormatUnsigned16 DataFormat = ".U"
	FormatSigned16   DataFormat = ".S"
	FormatUnsigned32 DataFormat = ".D" // decoded as packed float
	FormatSigned32   DataFormat = ".L"
	FormatHex16      DataFormat = ".H"
)

// Valid reports whether f is one of the five device formats.
func (f DataFormat) Valid() bool {
	switch f {
	case FormatUnsigned16, FormatSigned16, FormatUnsigned32, FormatSigned32, FormatHex16:
		return true
	}
	return false
}

func (f DataFormat) String() string { return string(f) }

// ParseDataFormat accepts "U", ".U", "u" and friends.
func ParseDataFormat(s string) (DataFormat, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if !strings.HasPrefix(s, ".") {
		s = "." + s
	}
	f := DataFormat(s)
	if !f.Valid() {
		return "", opErr("parse_format", ErrInvalidFormat, fmt.Errorf("%q", s))
	}
	return f, nil
}

// BuildRead returns "RD <addr><fmt>\r" for count 1,
// "RDS <addr><fmt> <count>\r" otherwise.
func BuildRead(addr string, f DataFormat, count int) (string, error) {
	if !f.Valid() {
		return "", opErr("build_read", ErrInvalidFormat, fmt.Errorf("%q", string(f)))
	}
	if addr == "" {
		return "", opErr("build_read", ErrInvalidArgument, errors.New("empty device address"))
	}
	if count < 1 {
		return "", opErr("build_read", ErrInvalidArgument, fmt.Errorf("count %d must be >= 1", count))
	}
	if count == 1 {
		return "RD " + addr + string(f) + "\r", nil
	}
	return fmt.Sprintf("RDS %s%s %d\r", addr, f, count), nil
}

type clockField struct {
	name     string
	v        int
	min, max int
}

// BuildClockSet returns "WRT yy mm dd HH MM SS w\r".
// week: 0 = Sunday .. 6 = Saturday.
func BuildClockSet(yy, mm, dd, hh, mi, ss, week int) (string, error) {
	fields := []clockField{
		{"year", yy, 0, 99},
		{"month", mm, 1, 12},
		{"day", dd, 1, 31},
		{"hour", hh, 0, 23},
		{"minute", mi, 0, 60},
		{"second", ss, 0, 60},
		{"weekday", week, 0, 6},
	}
	for _, f := range fields {
		if f.v < f.min || f.v > f.max {
			return "", opErr("build_clock_set", ErrInvalidArgument,
				fmt.Errorf("%s %d out of range %d-%d", f.name, f.v, f.min, f.max))
		}
	}
	return fmt.Sprintf("WRT %02d %02d %02d %02d %02d %02d %d\r", yy, mm, dd, hh, mi, ss, week), nil
}

// ClockSetFromTime derives the WRT fields from t.
func ClockSetFromTime(t time.Time) (string, error) {
	return BuildClockSet(
		t.Year()%100,
		int(t.Month()),
		t.Day(),
		t.Hour(),
		t.Minute(),
		t.Second(),
		int(t.Weekday()),
	)
}
