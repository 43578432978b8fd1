// internal/keyence/codec_test.go
package keyence

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestPackedFloat_RoundTrip(t *testing.T) {
	values := []float32{
		0, 1, -1, 1.5, -273.15, 3.1415927, 1e-7, 123456.78,
		math.MaxFloat32, math.SmallestNonzeroFloat32,
	}
	for _, f := range values {
		got, err := DecodePackedFloat(EncodePackedFloat(f))
		if err != nil {
			t.Fatalf("decode %v: %v", f, err)
		}
		if got != f {
			t.Fatalf("round trip %v -> %v", f, got)
		}
	}
}

func TestPackedFloat_BitReinterpretation(t *testing.T) {
	// 0x3F800000 is 1.0, not 1065353216.0.
	if got := PackedFloatFromWord(0x3F800000); got != 1.0 {
		t.Fatalf("got %v want 1.0", got)
	}
	got, err := DecodePackedFloat([]byte{0xC0, 0x49, 0x0F, 0xDB})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got != -float32(math.Pi) {
		t.Fatalf("got %v want -pi", got)
	}
}

func TestDecodePackedFloat_WrongLength(t *testing.T) {
	for _, n := range []int{0, 1, 3, 5, 8} {
		if _, err := DecodePackedFloat(make([]byte, n)); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("len %d: expected ErrInvalidArgument, got %v", n, err)
		}
	}
}

func TestDecodeTextInteger(t *testing.T) {
	n, err := DecodeTextInteger(" 42 ")
	if err != nil || n != 42 {
		t.Fatalf("got %d,%v", n, err)
	}
	n, err = DecodeTextInteger("-00034")
	if err != nil || n != -34 {
		t.Fatalf("got %d,%v", n, err)
	}
	for _, bad := range []string{"", "4x", "1.5", "E1"} {
		if _, err := DecodeTextInteger(bad); !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("%q: expected ErrMalformedResponse, got %v", bad, err)
		}
	}
}

func TestDecodeValue(t *testing.T) {
	cases := []struct {
		text    string
		f       DataFormat
		wantInt int64
	}{
		{"00012", FormatUnsigned16, 12},
		{"65535", FormatUnsigned16, 65535},
		{"-34", FormatSigned16, -34},
		{"+00100", FormatSigned16, 100},
		{"-2147483648", FormatSigned32, -2147483648},
		{"00FF", FormatHex16, 255},
		{"ffff", FormatHex16, 65535},
	}
	for _, tc := range cases {
		v, err := DecodeValue(tc.text, tc.f)
		if err != nil {
			t.Fatalf("DecodeValue(%q,%q) err=%v", tc.text, tc.f, err)
		}
		if v.IsFloat() || v.Int != tc.wantInt {
			t.Fatalf("DecodeValue(%q,%q)=%+v want %d", tc.text, tc.f, v, tc.wantInt)
		}
	}
}

func TestDecodeValue_PackedFloat(t *testing.T) {
	v, err := DecodeValue("1065353216", FormatUnsigned32)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !v.IsFloat() || v.Float != 1.0 || v.Int != 1065353216 {
		t.Fatalf("unexpected value %+v", v)
	}
	if v.Float64() != 1.0 {
		t.Fatalf("Float64=%v", v.Float64())
	}
}

func TestDecodeValue_Malformed(t *testing.T) {
	cases := []struct {
		text string
		f    DataFormat
	}{
		{"abc", FormatUnsigned16},
		{"65536", FormatUnsigned16},
		{"-1", FormatUnsigned16},
		{"40000", FormatSigned16},
		{"2147483648", FormatSigned32},
		{"10000", FormatHex16},
		{"4294967296", FormatUnsigned32},
		{"", FormatSigned32},
	}
	for _, tc := range cases {
		if _, err := DecodeValue(tc.text, tc.f); !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("DecodeValue(%q,%q): expected ErrMalformedResponse, got %v", tc.text, tc.f, err)
		}
	}

	if _, err := DecodeValue("1", DataFormat(".Q")); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestDecodeValues(t *testing.T) {
	vals, err := DecodeValues("00001 00002 00003", FormatUnsigned16, 3)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	for i, v := range vals {
		if v.Int != int64(i+1) {
			t.Fatalf("vals[%d]=%d", i, v.Int)
		}
	}

	if _, err := DecodeValues("1 2", FormatUnsigned16, 3); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse on count mismatch, got %v", err)
	}
	if _, err := DecodeValues("1 x 3", FormatUnsigned16, 3); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse on bad token, got %v", err)
	}
}

func TestValue_MarshalJSON(t *testing.T) {
	frame := map[string]Value{
		"i":   {Format: FormatSigned16, Int: -34},
		"f":   {Format: FormatUnsigned32, Float: 1.5},
		"nan": {Format: FormatUnsigned32, Float: float32(math.NaN())},
	}
	b, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"f":1.5,"i":-34,"nan":null}` {
		t.Fatalf("got %s", b)
	}
}

func TestDeviceErrorReply(t *testing.T) {
	if de := deviceError("E1"); de == nil || de.Code != "E1" {
		t.Fatalf("expected E1, got %+v", de)
	}
	for _, s := range []string{"", "E", "EE", "00E1", "12", "OK"} {
		if de := deviceError(s); de != nil {
			t.Fatalf("%q: unexpected device error %+v", s, de)
		}
	}
}

func TestOpError_CodeAndUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := opErr("read", ErrCommunication, cause)

	if !errors.Is(err, ErrCommunication) || !errors.Is(err, cause) {
		t.Fatalf("errors.Is failed for %v", err)
	}
	var oe *OpError
	if !errors.As(err, &oe) {
		t.Fatalf("errors.As failed")
	}
	if oe.Code() != 30 {
		t.Fatalf("code=%d", oe.Code())
	}
	if (&OpError{Op: "x", Kind: errors.New("other")}).Code() != 1 {
		t.Fatalf("unknown kind should map to 1")
	}
}
