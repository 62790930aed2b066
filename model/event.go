package model

import "fmt"

type EventKind uint8

const (
	NoteOn EventKind = iota
	NoteOff
)

func (k EventKind) String() string {
	switch k {
	case NoteOn:
		return "note_on"
	case NoteOff:
		return "note_off"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Event is one note message. Delta is in ticks since the previous event.
type Event struct {
	Kind     EventKind
	Note     uint8
	Velocity uint8
	Channel  uint8
	Delta    uint32
}

// EventStream is the quantized output of a run: a header (resolution and
// tempo) followed by events in onset order.
type EventStream struct {
	Resolution uint16
	BPM        float64
	Events     []Event
}

// TotalTicks returns the sum of all deltas.
func (s EventStream) TotalTicks() uint64 {
	var total uint64
	for _, e := range s.Events {
		total += uint64(e.Delta)
	}
	return total
}

// Report accompanies a stream so that dropped onsets are never silent.
type Report struct {
	Onsets        int           `json:"onsets"`
	Emitted       int           `json:"emitted"`
	Skipped       int           `json:"skipped"`
	SkippedLabels map[Label]int `json:"skipped_labels,omitempty"`
	BPM           float64       `json:"bpm"`
}
