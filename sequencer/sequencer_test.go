package sequencer

import (
	"bytes"
	"log"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/jsphweid/drumdex/config"
	"github.com/jsphweid/drumdex/model"
	"github.com/stretchr/testify/assert"
)

func quiet() *log.Logger {
	return log.New(&bytes.Buffer{}, "", 0)
}

func TestThreeHitScenario(t *testing.T) {
	assert := assert.New(t)
	s := New(config.Default(), quiet())
	onsets := []model.ClassifiedOnset{
		{Time: 0.5, Instrument: model.Kick},
		{Time: 1.0, Instrument: model.Hihat},
		{Time: 1.5, Instrument: model.Snare},
	}

	stream, report, err := s.Sequence(onsets, 120)
	assert.NoError(err)
	assert.Equal(uint16(480), stream.Resolution)
	assert.Equal(120.0, stream.BPM)

	on := func(note uint8, delta uint32) model.Event {
		return model.Event{Kind: model.NoteOn, Note: note, Velocity: 100, Channel: 9, Delta: delta}
	}
	off := func(note uint8) model.Event {
		return model.Event{Kind: model.NoteOff, Note: note, Channel: 9, Delta: 30}
	}
	assert.Equal([]model.Event{
		on(36, 480), off(36),
		on(42, 450), off(42),
		on(38, 450), off(38),
	}, stream.Events)

	assert.Equal(model.Report{Onsets: 3, Emitted: 3, SkippedLabels: map[model.Label]int{}, BPM: 120}, report)
	assert.InDeltaSlice([]float64{0.5, 1.0, 1.5}, OnsetTimes(stream), 1e-9)
	assert.Equal(uint64(1470), stream.TotalTicks())
}

func TestRoundTripStaysWithinHalfATick(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	labels := []model.Label{model.Kick, model.Snare, model.Hihat}
	for _, bpm := range []float64{73.3, 120, 171.9} {
		var onsets []model.ClassifiedOnset
		now := 0.0
		for i := 0; i < 2000; i++ {
			// gaps longer than a note so no delta clamps
			now += 0.05 + rng.Float64()*0.4
			onsets = append(onsets, model.ClassifiedOnset{Time: now, Instrument: labels[rng.Intn(3)]})
		}

		stream, _, err := New(config.Default(), quiet()).Sequence(onsets, bpm)
		assert.NoError(t, err)

		half := SecondsPerTick(bpm, 480) / 2
		times := OnsetTimes(stream)
		assert.Len(t, times, len(onsets))
		for i, o := range onsets {
			assert.InDelta(t, o.Time, times[i], half+1e-9, "onset %d at %v bpm", i, bpm)
		}
	}
}

func TestSkipsUnknownAndUnmapped(t *testing.T) {
	assert := assert.New(t)
	var logs bytes.Buffer
	s := New(config.Default(), log.New(&logs, "", 0))
	onsets := []model.ClassifiedOnset{
		{Time: 0.1, Instrument: model.Kick},
		{Time: 0.2, Instrument: model.Unknown},
		{Time: 0.3, Instrument: "cowbell"},
		{Time: 0.4, Instrument: model.Unknown},
		{Time: 0.5, Instrument: model.Snare},
	}

	stream, report, err := s.Sequence(onsets, 100)
	assert.NoError(err)
	assert.Equal(3, report.Skipped)
	assert.Equal(2, report.Emitted)
	assert.Equal(map[model.Label]int{model.Unknown: 2, "cowbell": 1}, report.SkippedLabels)
	assert.Len(stream.Events, 4)
	for _, e := range stream.Events {
		assert.Contains([]uint8{36, 38}, e.Note)
	}
	assert.Contains(logs.String(), `skipping "cowbell" onset at 0.300s`)
	assert.Equal(3, bytes.Count(logs.Bytes(), []byte("warning:")))
}

func TestUnknownNeverMapsEvenIfConfigured(t *testing.T) {
	cfg := config.Default()
	cfg.InstrumentToNote[model.Unknown] = 60
	stream, report, err := New(cfg, quiet()).Sequence([]model.ClassifiedOnset{{Time: 1, Instrument: model.Unknown}}, 120)
	assert.NoError(t, err)
	assert.Empty(t, stream.Events)
	assert.Equal(t, 1, report.Skipped)
}

func TestEmptyInputIsHeaderOnly(t *testing.T) {
	assert := assert.New(t)
	stream, report, err := New(config.Default(), quiet()).Sequence(nil, 95)
	assert.NoError(err)
	assert.Empty(stream.Events)
	assert.Equal(uint16(480), stream.Resolution)
	assert.Equal(95.0, stream.BPM)
	assert.Equal(0, report.Onsets)
	assert.Empty(OnsetTimes(stream))
}

func TestInvalidTempo(t *testing.T) {
	s := New(config.Default(), quiet())
	onsets := []model.ClassifiedOnset{{Time: 1, Instrument: model.Kick}}
	for _, bpm := range []float64{0, -120, math.NaN(), math.Inf(1)} {
		_, _, err := s.Sequence(onsets, bpm)
		assert.ErrorIs(t, err, ErrInvalidTempo, "bpm %v", bpm)
	}
}

func TestUnsortedInputIsSortedStably(t *testing.T) {
	assert := assert.New(t)
	s := New(config.Default(), quiet())
	onsets := []model.ClassifiedOnset{
		{Time: 1.0, Instrument: model.Snare},
		{Time: 0.5, Instrument: model.Kick},
		{Time: 1.0, Instrument: model.Hihat},
	}

	stream, _, err := s.Sequence(onsets, 120)
	assert.NoError(err)
	var notes []uint8
	for _, e := range stream.Events {
		if e.Kind == model.NoteOn {
			notes = append(notes, e.Note)
		}
	}
	assert.Equal([]uint8{36, 38, 42}, notes)
	// the tied hihat follows the snare note-off with no gap
	assert.Equal(uint32(0), stream.Events[4].Delta)
	assert.True(sort.Float64sAreSorted(OnsetTimes(stream)))
	assert.Equal(1.0, onsets[0].Time)
}

func TestSecondsToTicks(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(uint32(960), SecondsToTicks(1, 120, 480))
	assert.Equal(uint32(720), SecondsToTicks(0.75, 120, 480))
	assert.Equal(uint32(0), SecondsToTicks(-0.2, 120, 480))
	assert.InDelta(1.0/960, SecondsPerTick(120, 480), 1e-15)
}

func TestNaNTimeDoesNotReorderOthers(t *testing.T) {
	assert := assert.New(t)
	onsets := []model.ClassifiedOnset{
		{Time: 2, Instrument: model.Kick},
		{Time: math.NaN(), Instrument: model.Kick},
		{Time: 1, Instrument: model.Snare},
	}

	stream, report, err := New(config.Default(), quiet()).Sequence(onsets, 120)
	assert.NoError(err)
	assert.Equal(2, report.Emitted)
	assert.Equal(1, report.Skipped)
	assert.Equal([]uint8{38, 36}, []uint8{stream.Events[0].Note, stream.Events[2].Note})
	assert.InDeltaSlice([]float64{1, 2}, OnsetTimes(stream), 1e-9)
}

func TestCarryCanDifferFromPerGapRounding(t *testing.T) {
	assert := assert.New(t)
	// 120 bpm at 480 ticks per beat is 960 ticks per second
	first := 0.0004
	lastEnd := first + 30.0/960
	second := lastEnd + 929.2/960
	onsets := []model.ClassifiedOnset{
		{Time: first, Instrument: model.Kick},
		{Time: second, Instrument: model.Snare},
	}

	stream, _, err := New(config.Default(), quiet()).Sequence(onsets, 120)
	assert.NoError(err)
	assert.Equal(uint32(0), stream.Events[0].Delta)
	// the first note's 0.384 tick remainder pushes 929.2 over the half
	assert.Equal(uint32(930), stream.Events[2].Delta)
	assert.Equal(uint32(929), SecondsToTicks(second-lastEnd, 120, 480))
	assert.InDeltaSlice([]float64{first, second}, OnsetTimes(stream), SecondsPerTick(120, 480)/2)
}

func TestDeltaClampsToVariableLengthLimit(t *testing.T) {
	assert := assert.New(t)
	onsets := []model.ClassifiedOnset{{Time: 1e9, Instrument: model.Kick}}

	stream, _, err := New(config.Default(), quiet()).Sequence(onsets, 120)
	assert.NoError(err)
	assert.Equal(uint32(MaxDelta), stream.Events[0].Delta)
	assert.Equal(uint32(MaxDelta), SecondsToTicks(1e9, 120, 480))
}
