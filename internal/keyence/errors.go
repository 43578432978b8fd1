// internal/keyence/errors.go
package keyence

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidFormat     = errors.New("invalid data format")
	ErrConnectionTimeout = errors.New("connection timeout")
	ErrConnectionRefused = errors.New("connection refused")
	ErrNotConnected      = errors.New("not connected")
	ErrCanceled          = errors.New("operation canceled")
	ErrCommunication     = errors.New("communication error")
	ErrMalformedResponse = errors.New("malformed response")
	ErrDeviceRejected    = errors.New("device rejected command")
)

// Numeric codes reported through the device status block.
// 0 is reserved for "no error", 1 for "unclassified".
var kindCodes = map[error]uint16{
	ErrInvalidArgument:   10,
	ErrInvalidFormat:     11,
	ErrConnectionTimeout: 20,
	ErrConnectionRefused: 21,
	ErrNotConnected:      22,
	ErrCanceled:          23,
	ErrCommunication:     30,
	ErrMalformedResponse: 31,
	ErrDeviceRejected:    40,
}

// OpError is returned by every fallible operation in this package.
type OpError struct {
	Op   string // "connect", "read", "build_read", ...
	Kind error  // one of the Err* kinds above
	Err  error  // underlying cause, may be nil
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("keyence %s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("keyence %s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Code returns the status-block error code for the kind.
func (e *OpError) Code() uint16 {
	if c, ok := kindCodes[e.Kind]; ok {
		return c
	}
	return 1
}

func opErr(op string, kind error, cause error) error {
	return &OpError{Op: op, Kind: kind, Err: cause}
}

// DeviceError is the cause attached to ErrDeviceRejected.
// The PLC answers E0..E6 when it cannot execute a command.
type DeviceError struct {
	Code string
}

func (e *DeviceError) Error() string {
	if msg, ok := deviceErrorText[e.Code]; ok {
		return e.Code + " (" + msg + ")"
	}
	return e.Code
}

var deviceErrorText = map[string]string{
	"E0": "device number error",
	"E1": "command error",
	"E2": "program not registered",
	"E4": "write disabled",
	"E5": "unit error",
	"E6": "no comment",
}
