package onset

import (
	"sort"

	"github.com/jsphweid/drumdex/config"
	"github.com/jsphweid/drumdex/model"
	"github.com/jsphweid/drumdex/spectral"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// peak picking neighbourhoods, in seconds
const (
	preMaxSec  = 0.03
	postMaxSec = 0.0
	preAvgSec  = 0.10
	postAvgSec = 0.10
	waitSec    = 0.03

	DefaultDelta = 0.07
)

type Detector struct {
	frameSize     int
	hop           int
	melBands      int
	minInterOnset float64
	delta         float64
	backtrack     bool
}

type Option func(*Detector)

// WithBacktrack toggles moving each peak back to the preceding minimum of
// the strength signal. On by default.
func WithBacktrack(on bool) Option {
	return func(d *Detector) {
		d.backtrack = on
	}
}

// WithDelta sets how far above the local average (in normalized strength) a
// peak must rise.
func WithDelta(delta float64) Option {
	return func(d *Detector) {
		d.delta = delta
	}
}

func NewDetector(cfg config.Config, opts ...Option) *Detector {
	d := &Detector{
		frameSize:     cfg.FrameSize,
		hop:           cfg.HopSize,
		melBands:      cfg.MelBands,
		minInterOnset: cfg.MinInterOnset(),
		delta:         DefaultDelta,
		backtrack:     true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect returns onset times in seconds, non-decreasing, with no two closer
// than the configured minimum interval. A silent or empty buffer has no
// onsets.
func (d *Detector) Detect(buf model.AudioBuffer) []float64 {
	if buf.Len() == 0 || buf.SampleRate <= 0 {
		return []float64{}
	}
	env := spectral.OnsetStrength(buf.Samples, buf.SampleRate, d.frameSize, d.hop, d.melBands)
	frames := d.Frames(env, buf.SampleRate)

	times := make([]float64, len(frames))
	for i, f := range frames {
		times[i] = spectral.FrameTime(f, d.hop, buf.SampleRate)
	}
	return Dedup(times, d.minInterOnset)
}

// Frames picks onset frames from a strength envelope.
func (d *Detector) Frames(env []float64, sampleRate int) []int {
	if len(env) == 0 {
		return nil
	}
	lo, hi := floats.Min(env), floats.Max(env)
	if hi-lo <= 0 {
		return nil
	}
	norm := make([]float64, len(env))
	for i, v := range env {
		norm[i] = (v - lo) / (hi - lo)
	}

	fps := float64(sampleRate) / float64(d.hop)
	peaks := pickPeaks(norm,
		secToFrames(preMaxSec, fps), secToFrames(postMaxSec, fps)+1,
		secToFrames(preAvgSec, fps), secToFrames(postAvgSec, fps)+1,
		d.delta, secToFrames(waitSec, fps))
	if d.backtrack {
		for i, p := range peaks {
			peaks[i] = backtrack(norm, p)
		}
	}
	return peaks
}

func secToFrames(sec, fps float64) int {
	return int(sec * fps)
}

// pickPeaks keeps frame i when it is the maximum of env[i-preMax, i+postMax),
// exceeds the mean of env[i-preAvg, i+postAvg) by delta, and comes at least
// wait frames after the previous pick.
func pickPeaks(env []float64, preMax, postMax, preAvg, postAvg int, delta float64, wait int) []int {
	var res []int
	last := -wait - 1
	for i, v := range env {
		if v <= 0 {
			continue
		}
		maxLo, maxHi := clampRange(i-preMax, i+postMax, len(env))
		if v < floats.Max(env[maxLo:maxHi]) {
			continue
		}
		avgLo, avgHi := clampRange(i-preAvg, i+postAvg, len(env))
		if v < stat.Mean(env[avgLo:avgHi], nil)+delta {
			continue
		}
		if i-last <= wait {
			continue
		}
		res = append(res, i)
		last = i
	}
	return res
}

func clampRange(lo, hi, n int) (int, int) {
	if lo < 0 {
		lo = 0
	}
	if hi > n {
		hi = n
	}
	return lo, hi
}

// backtrack walks left from frame p while the envelope keeps falling, landing
// on the nearest preceding local minimum. Plateaus stop the walk.
func backtrack(env []float64, p int) int {
	for p > 0 && env[p-1] < env[p] {
		p--
	}
	return p
}

// Dedup sorts times and drops any onset closer than minGap to the last kept
// one, so the earlier of two close onsets survives.
func Dedup(times []float64, minGap float64) []float64 {
	sorted := append([]float64(nil), times...)
	sort.Float64s(sorted)
	res := make([]float64, 0, len(sorted))
	for _, t := range sorted {
		if len(res) > 0 && t-res[len(res)-1] < minGap {
			continue
		}
		res = append(res, t)
	}
	return res
}
