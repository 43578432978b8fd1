// internal/keyence/codec.go
package keyence

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is one decoded register value.
// For FormatUnsigned32 Int holds the raw 32-bit word and Float its
// packed-float reinterpretation; for all other formats only Int is set.
type Value struct {
	Format DataFormat
	Int    int64
	Float  float32
}

// IsFloat reports whether the value came through the packed-float path.
func (v Value) IsFloat() bool { return v.Format == FormatUnsigned32 }

// Float64 returns the numeric value regardless of format.
func (v Value) Float64() float64 {
	if v.IsFloat() {
		return float64(v.Float)
	}
	return float64(v.Int)
}

// Any returns int64 or float64, suitable for generic encoders.
func (v Value) Any() any {
	if v.IsFloat() {
		return float64(v.Float)
	}
	return v.Int
}

func (v Value) String() string {
	if v.IsFloat() {
		return strconv.FormatFloat(float64(v.Float), 'g', -1, 32)
	}
	return strconv.FormatInt(v.Int, 10)
}

// MarshalJSON writes the bare number. Non-finite floats become null.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsFloat() {
		f := float64(v.Float)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(f)
	}
	return json.Marshal(v.Int)
}

// DecodeTextInteger parses an ASCII decimal integer response.
func DecodeTextInteger(text string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return 0, opErr("decode", ErrMalformedResponse, err)
	}
	return n, nil
}

// PackedFloatFromWord reinterprets the bits of a 32-bit word as IEEE-754.
func PackedFloatFromWord(w uint32) float32 {
	return math.Float32frombits(w)
}

// DecodePackedFloat reinterprets exactly 4 big-endian bytes as a float32.
func DecodePackedFloat(b []byte) (float32, error) {
	if len(b) != 4 {
		return 0, opErr("decode_packed_float", ErrInvalidArgument,
			fmt.Errorf("need 4 bytes, got %d", len(b)))
	}
	return PackedFloatFromWord(binary.BigEndian.Uint32(b)), nil
}

// EncodePackedFloat is the inverse of DecodePackedFloat.
func EncodePackedFloat(f float32) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, math.Float32bits(f))
	return out
}

// DecodeValue decodes one response token according to f.
func DecodeValue(text string, f DataFormat) (Value, error) {
	text = strings.TrimSpace(text)
	v := Value{Format: f}

	switch f {
	case FormatUnsigned16:
		n, err := strconv.ParseUint(text, 10, 16)
		if err != nil {
			return Value{}, opErr("decode", ErrMalformedResponse, err)
		}
		v.Int = int64(n)
	case FormatSigned16:
		n, err := strconv.ParseInt(text, 10, 16)
		if err != nil {
			return Value{}, opErr("decode", ErrMalformedResponse, err)
		}
		v.Int = n
	case FormatSigned32:
		n, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return Value{}, opErr("decode", ErrMalformedResponse, err)
		}
		v.Int = n
	case FormatHex16:
		n, err := strconv.ParseUint(text, 16, 16)
		if err != nil {
			return Value{}, opErr("decode", ErrMalformedResponse, err)
		}
		v.Int = int64(n)
	case FormatUnsigned32:
		n, err := strconv.ParseUint(text, 10, 32)
		if err != nil {
			return Value{}, opErr("decode", ErrMalformedResponse, err)
		}
		v.Int = int64(n)
		v.Float = PackedFloatFromWord(uint32(n))
	default:
		return Value{}, opErr("decode", ErrInvalidFormat, fmt.Errorf("%q", string(f)))
	}

	return v, nil
}

// DecodeValues decodes a space separated RDS response of exactly count tokens.
func DecodeValues(text string, f DataFormat, count int) ([]Value, error) {
	tokens := strings.Fields(text)
	if len(tokens) != count {
		return nil, opErr("decode", ErrMalformedResponse,
			fmt.Errorf("expected %d values, got %d", count, len(tokens)))
	}

	out := make([]Value, 0, count)
	for _, tok := range tokens {
		v, err := DecodeValue(tok, f)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// deviceError returns a DeviceError when resp is an E<n> reply.
func deviceError(resp string) *DeviceError {
	if len(resp) == 2 && resp[0] == 'E' && resp[1] >= '0' && resp[1] <= '9' {
		return &DeviceError{Code: resp}
	}
	return nil
}
