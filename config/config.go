package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/jsphweid/drumdex/constants"
	"github.com/jsphweid/drumdex/model"
)

var ErrInvalidConfig = errors.New("invalid config")

// MaxTickResolution is the largest ticks per beat a MIDI header can carry;
// the top bit selects SMPTE timing.
const MaxTickResolution = 0x7FFF

// Config is passed by value into every component at construction. Nothing in
// the module reads settings from package state, so runs with different
// settings can share a process.
type Config struct {
	TargetSampleRate  int
	WindowMs          int
	CoefficientCount  int
	DefaultVelocity   uint8
	NoteDurationTicks uint32
	TickResolution    uint16
	InstrumentToNote  map[model.Label]uint8
	MinInterOnsetMs   int
	FallbackBPM       float64
	PercussionChannel uint8

	// STFT framing shared by onset detection and tempo estimation
	FrameSize int
	HopSize   int
	MelBands  int

	// Workers bounds parallel feature extraction. 0 means one per CPU.
	Workers int
}

func DefaultInstrumentMap() map[model.Label]uint8 {
	return map[model.Label]uint8{
		model.Kick:  constants.NoteKick,
		model.Snare: constants.NoteSnare,
		model.Hihat: constants.NoteHihat,
	}
}

func Default() Config {
	return Config{
		TargetSampleRate:  constants.TargetSampleRate,
		WindowMs:          constants.WindowMs,
		CoefficientCount:  constants.CoefficientCount,
		DefaultVelocity:   constants.DefaultVelocity,
		NoteDurationTicks: constants.NoteDurationTicks,
		TickResolution:    constants.TickResolution,
		InstrumentToNote:  DefaultInstrumentMap(),
		MinInterOnsetMs:   constants.MinInterOnsetMs,
		FallbackBPM:       constants.FallbackBPM,
		PercussionChannel: constants.PercussionChannel,
		FrameSize:         constants.FrameSize,
		HopSize:           constants.HopSize,
		MelBands:          constants.MelBands,
	}
}

// FromEnv returns Default with DRUMDEX_* overrides applied.
func FromEnv() Config {
	c := Default()
	c.TargetSampleRate = constants.GetIntEnv("DRUMDEX_SAMPLE_RATE", c.TargetSampleRate)
	c.WindowMs = constants.GetIntEnv("DRUMDEX_WINDOW_MS", c.WindowMs)
	c.CoefficientCount = constants.GetIntEnv("DRUMDEX_COEFFICIENTS", c.CoefficientCount)
	// out of range values are left for Validate instead of wrapping
	if res := constants.GetIntEnv("DRUMDEX_RESOLUTION", int(c.TickResolution)); res < 0 || res > math.MaxUint16 {
		c.TickResolution = 0
	} else {
		c.TickResolution = uint16(res)
	}
	c.Workers = constants.GetIntEnv("DRUMDEX_WORKERS", c.Workers)
	return c
}

func (c Config) Validate() error {
	switch {
	case c.TargetSampleRate <= 0:
		return fmt.Errorf("%w: target sample rate must be positive, got %d", ErrInvalidConfig, c.TargetSampleRate)
	case c.WindowMs <= 0:
		return fmt.Errorf("%w: window must be positive, got %dms", ErrInvalidConfig, c.WindowMs)
	case c.CoefficientCount <= 0:
		return fmt.Errorf("%w: coefficient count must be positive, got %d", ErrInvalidConfig, c.CoefficientCount)
	case c.CoefficientCount > c.MelBands:
		return fmt.Errorf("%w: coefficient count %d exceeds mel bands %d", ErrInvalidConfig, c.CoefficientCount, c.MelBands)
	case c.DefaultVelocity == 0 || c.DefaultVelocity > 127:
		return fmt.Errorf("%w: velocity must be in 1..127, got %d", ErrInvalidConfig, c.DefaultVelocity)
	case c.TickResolution == 0 || c.TickResolution > MaxTickResolution:
		return fmt.Errorf("%w: tick resolution must be in 1..%d, got %d", ErrInvalidConfig, MaxTickResolution, c.TickResolution)
	case c.PercussionChannel > 15:
		return fmt.Errorf("%w: channel must be in 0..15, got %d", ErrInvalidConfig, c.PercussionChannel)
	case c.MinInterOnsetMs < 0:
		return fmt.Errorf("%w: min inter-onset interval must not be negative", ErrInvalidConfig)
	case !(c.FallbackBPM > 0) || math.IsInf(c.FallbackBPM, 0):
		return fmt.Errorf("%w: fallback bpm must be positive, got %v", ErrInvalidConfig, c.FallbackBPM)
	case c.FrameSize < 2 || c.HopSize <= 0 || c.MelBands < 2:
		return fmt.Errorf("%w: bad analysis framing %d/%d/%d", ErrInvalidConfig, c.FrameSize, c.HopSize, c.MelBands)
	}
	for label, note := range c.InstrumentToNote {
		if label == model.Unknown {
			return fmt.Errorf("%w: %q cannot be mapped to a note", ErrInvalidConfig, label)
		}
		if note > 127 {
			return fmt.Errorf("%w: note %d for %q is out of range", ErrInvalidConfig, note, label)
		}
	}
	return nil
}

// WindowSamples is the feature window length in samples.
func (c Config) WindowSamples() int {
	return int(float64(c.WindowMs) / 1000 * float64(c.TargetSampleRate))
}

// MinInterOnset is the onset merge threshold in seconds.
func (c Config) MinInterOnset() float64 {
	return float64(c.MinInterOnsetMs) / 1000
}

// WithInstrumentMap returns a copy of c using m. The map is copied so callers
// can keep mutating theirs.
func (c Config) WithInstrumentMap(m map[model.Label]uint8) Config {
	cp := make(map[model.Label]uint8, len(m))
	for k, v := range m {
		cp[k] = v
	}
	c.InstrumentToNote = cp
	return c
}

// LoadInstrumentMap reads a JSON object of instrument name to MIDI note, e.g.
// {"kick": 36, "snare": 38, "hihat": 42, "crash": 49}.
func LoadInstrumentMap(path string) (map[model.Label]uint8, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading instrument map: %w", err)
	}
	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing instrument map %s: %w", path, err)
	}
	res := make(map[model.Label]uint8, len(raw))
	for name, note := range raw {
		if note < 0 || note > 127 {
			return nil, fmt.Errorf("%w: note %d for %q is out of range", ErrInvalidConfig, note, name)
		}
		res[model.Label(name)] = uint8(note)
	}
	return res, nil
}
