package utils

import (
	"context"
	"sort"

	"go.einride.tech/can"
)

// CANWriter sends frames to the bus.
type CANWriter interface {
	WriteFrame(ctx context.Context, frame can.Frame) error
	Close() error
}

// CANReader blocks until the next frame arrives or ctx is done.
type CANReader interface {
	ReadFrame(ctx context.Context) (can.Frame, error)
	Close() error
}

// SignalDef describes one little-endian signal inside a CAN frame.
// Physical value = raw*Factor + Offset, limited to [Min, Max] on encode.
type SignalDef struct {
	Name      string
	StartBit  int
	BitLength int
	Signed    bool
	Factor    float64
	Offset    float64
	Min       float64
	Max       float64
	Default   float64
	Unit      string
	Comment   string
}

const (
	DirectionTx = "tx"
	DirectionRx = "rx"
)

// FrameDef is one frame of the CAN map. Direction is "tx" for frames the
// agent sends and "rx" for frames it listens to.
type FrameDef struct {
	ID        uint32
	Name      string
	DLC       int
	Direction string
	CycleMS   int
	Signals   []SignalDef
}

// Signal looks a signal up by name.
func (fd *FrameDef) Signal(name string) (SignalDef, bool) {
	for _, s := range fd.Signals {
		if s.Name == name {
			return s, true
		}
	}
	return SignalDef{}, false
}

type CANMap struct {
	ByID   map[uint32]*FrameDef
	ByName map[string]*FrameDef
}

func (m *CANMap) FrameNames() []string {
	out := make([]string, 0, len(m.ByName))
	for k := range m.ByName {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
