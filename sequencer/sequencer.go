// Package sequencer turns classified onsets and a tempo into a quantized
// note event stream.
//
// Onsets are folded in time order. The fold carries the time in seconds at
// which the previous note ended, measured from the unrounded onset time, and
// the fraction of a tick lost when the previous delta was rounded. That
// remainder is added into the next delta, so the cumulative ticks of every
// note stay within half a tick of its onset however long the stream runs.
package sequencer

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/jsphweid/drumdex/config"
	"github.com/jsphweid/drumdex/model"
	"github.com/jsphweid/drumdex/util"
)

var ErrInvalidTempo = errors.New("invalid tempo")

// MaxDelta is the largest delta a MIDI variable-length quantity can hold.
const MaxDelta = 0x0FFFFFFF

type Sequencer struct {
	notes      map[model.Label]uint8
	velocity   uint8
	channel    uint8
	duration   uint32
	resolution uint16
	logger     *log.Logger
}

func New(cfg config.Config, logger *log.Logger) *Sequencer {
	if logger == nil {
		logger = log.Default()
	}
	return &Sequencer{
		notes:      cfg.WithInstrumentMap(cfg.InstrumentToNote).InstrumentToNote,
		velocity:   cfg.DefaultVelocity,
		channel:    cfg.PercussionChannel,
		duration:   cfg.NoteDurationTicks,
		resolution: cfg.TickResolution,
		logger:     logger,
	}
}

type fold struct {
	lastEnd float64
	carry   float64
	events  []model.Event
	report  model.Report
}

// Sequence builds the stream for onsets at bpm. Onsets need not be sorted;
// ties keep their input order. Unknown or unmapped instruments are skipped,
// logged and counted in the report. An empty input gives a stream with a
// header and no events.
func (s *Sequencer) Sequence(onsets []model.ClassifiedOnset, bpm float64) (model.EventStream, model.Report, error) {
	if !(bpm > 0) || math.IsInf(bpm, 0) {
		return model.EventStream{}, model.Report{}, fmt.Errorf("%w: %v bpm", ErrInvalidTempo, bpm)
	}
	sorted := append([]model.ClassifiedOnset(nil), onsets...)
	// NaN times sort last so they cannot break the order of the rest
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Time, sorted[j].Time
		return !math.IsNaN(a) && (math.IsNaN(b) || a < b)
	})

	start := fold{
		events: make([]model.Event, 0, 2*len(sorted)),
		report: model.Report{
			Onsets:        len(sorted),
			SkippedLabels: map[model.Label]int{},
			BPM:           bpm,
		},
	}
	res := util.Fold(sorted, start, func(acc fold, o model.ClassifiedOnset) fold {
		return s.step(acc, o, bpm)
	})

	stream := model.EventStream{
		Resolution: s.resolution,
		BPM:        bpm,
		Events:     res.events,
	}
	return stream, res.report, nil
}

func (s *Sequencer) step(acc fold, o model.ClassifiedOnset, bpm float64) fold {
	note, ok := s.notes[o.Instrument]
	if o.Instrument == model.Unknown || !ok || math.IsNaN(o.Time) {
		s.logger.Printf("warning: skipping %q onset at %.3fs", o.Instrument, o.Time)
		acc.report.Skipped++
		acc.report.SkippedLabels[o.Instrument]++
		return acc
	}

	exact := exactTicks(o.Time-acc.lastEnd, bpm, s.resolution) + acc.carry
	delta := roundTicks(exact)
	acc.carry = exact - float64(delta)

	acc.events = append(acc.events,
		model.Event{
			Kind:     model.NoteOn,
			Note:     note,
			Velocity: s.velocity,
			Channel:  s.channel,
			Delta:    delta,
		},
		model.Event{
			Kind:    model.NoteOff,
			Note:    note,
			Channel: s.channel,
			Delta:   s.duration,
		},
	)
	acc.lastEnd = o.Time + float64(s.duration)*SecondsPerTick(bpm, s.resolution)
	acc.report.Emitted++
	return acc
}

// SecondsToTicks rounds half away from zero. Negative spans, from onsets
// closer together than a note duration, become 0.
func SecondsToTicks(seconds, bpm float64, resolution uint16) uint32 {
	return roundTicks(exactTicks(seconds, bpm, resolution))
}

func exactTicks(seconds, bpm float64, resolution uint16) float64 {
	return seconds * float64(resolution) * bpm / 60
}

func roundTicks(exact float64) uint32 {
	return uint32(util.Clamp(util.RoundHalfAway(exact), 0, MaxDelta))
}

func SecondsPerTick(bpm float64, resolution uint16) float64 {
	return 60 / (bpm * float64(resolution))
}

// OnsetTimes recovers the absolute time in seconds of every note-on in
// stream from its cumulative ticks.
func OnsetTimes(stream model.EventStream) []float64 {
	perTick := SecondsPerTick(stream.BPM, stream.Resolution)
	var ticks uint64
	res := []float64{}
	for _, e := range stream.Events {
		ticks += uint64(e.Delta)
		if e.Kind == model.NoteOn {
			res = append(res, float64(ticks)*perTick)
		}
	}
	return res
}
