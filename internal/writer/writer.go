// internal/writer/writer.go
package writer

import (
	"errors"
	"fmt"
	"math"

	"github.com/tamzrod/kvlogger/internal/keyence"
	"github.com/tamzrod/kvlogger/internal/poller"
)

// RegistersPerValue is the mirror footprint of one value.
const RegistersPerValue = 2

type mirrorWriter struct {
	plan *MirrorPlan
	cli  endpointClient
}

// NewMirrorWriter returns a Writer that copies every good frame into
// holding registers. Disabled (nil, false) when plan.Mirror is nil.
func NewMirrorWriter(plan Plan, cli endpointClient) (Writer, bool) {
	if plan.Mirror == nil {
		return nil, false
	}
	return &mirrorWriter{plan: plan.Mirror, cli: cli}, true
}

// Write lays out the frame and issues one block write.
// Failed cycles are not mirrored; the registers keep the last good frame.
func (w *mirrorWriter) Write(res poller.PollResult) error {
	if res.Err != nil {
		return nil
	}
	if w.cli == nil {
		return fmt.Errorf("writer: missing client for endpoint %s", w.plan.Endpoint)
	}

	regs := EncodeFrame(w.plan.Keys, res.Frame)
	if err := w.cli.WriteRegisters(w.plan.UnitID, w.plan.BaseAddress, regs); err != nil {
		return fmt.Errorf(
			"writer: ep=%s unit=%d addr=%d err=%w",
			w.plan.Endpoint, w.plan.UnitID, w.plan.BaseAddress, err,
		)
	}
	return nil
}

// EncodeFrame returns RegistersPerValue registers per key, high word first.
// Packed floats keep their IEEE-754 bits; integers are 32-bit two's
// complement. Keys missing from the frame encode as zero.
func EncodeFrame(keys []string, f keyence.Frame) []uint16 {
	regs := make([]uint16, len(keys)*RegistersPerValue)
	for i, k := range keys {
		v, ok := f.Values[k]
		if !ok {
			continue
		}
		w := valueWord(v)
		regs[2*i] = uint16(w >> 16)
		regs[2*i+1] = uint16(w)
	}
	return regs
}

func valueWord(v keyence.Value) uint32 {
	if v.IsFloat() {
		return math.Float32bits(v.Float)
	}
	return uint32(int32(v.Int))
}

// Fanout delivers every result to all writers.
// A failing writer does not stop the others.
type Fanout struct {
	writers []Writer
}

// NewFanout skips nil writers.
func NewFanout(ws ...Writer) *Fanout {
	f := &Fanout{}
	for _, w := range ws {
		if w != nil {
			f.writers = append(f.writers, w)
		}
	}
	return f
}

// Add appends a writer.
func (f *Fanout) Add(w Writer) {
	if w != nil {
		f.writers = append(f.writers, w)
	}
}

// Len returns the number of writers.
func (f *Fanout) Len() int { return len(f.writers) }

func (f *Fanout) Write(res poller.PollResult) error {
	var errs []error
	for _, w := range f.writers {
		if err := w.Write(res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
