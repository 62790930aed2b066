// Package tempo estimates one global tempo per buffer from the onset
// strength envelope: an autocorrelation picks the beat period, and a dynamic
// programming beat tracker refines it.
package tempo

import (
	"log"
	"math"

	"github.com/jsphweid/drumdex/config"
	"github.com/jsphweid/drumdex/model"
	"github.com/jsphweid/drumdex/spectral"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	MinBPM = 60.0
	MaxBPM = 200.0

	// prior over tempo: log-normal around priorBPM, one octave wide
	priorBPM    = 120.0
	priorOctave = 1.0

	// MinDuration is the shortest buffer, in seconds, worth estimating.
	MinDuration = 2.0

	tightness = 100.0
	minBeats  = 4
	// refined tempo is ignored when it strays this far from the raw estimate
	maxRefineRatio = 0.1
)

type Estimator struct {
	frameSize int
	hop       int
	melBands  int
	fallback  float64
	logger    *log.Logger
}

// Estimate is the outcome for one buffer. Beats holds tracked beat times in
// seconds and is empty when the fallback was used.
type Estimate struct {
	BPM      float64
	Beats    []float64
	Fallback bool
}

func NewEstimator(cfg config.Config, logger *log.Logger) *Estimator {
	if logger == nil {
		logger = log.Default()
	}
	return &Estimator{
		frameSize: cfg.FrameSize,
		hop:       cfg.HopSize,
		melBands:  cfg.MelBands,
		fallback:  cfg.FallbackBPM,
		logger:    logger,
	}
}

// EstimateBPM always returns a positive tempo.
func (e *Estimator) EstimateBPM(buf model.AudioBuffer) float64 {
	return e.Estimate(buf).BPM
}

func (e *Estimator) Estimate(buf model.AudioBuffer) Estimate {
	if buf.SampleRate <= 0 || buf.Duration() < MinDuration {
		return e.fallbackEstimate("buffer shorter than %.1fs", MinDuration)
	}
	env := spectral.OnsetStrength(buf.Samples, buf.SampleRate, e.frameSize, e.hop, e.melBands)
	if len(env) == 0 || floats.HasNaN(env) || floats.Max(env)-floats.Min(env) <= 0 {
		return e.fallbackEstimate("onset strength is flat")
	}
	fps := float64(buf.SampleRate) / float64(e.hop)

	period, ok := Period(env, fps)
	if !ok {
		return e.fallbackEstimate("no periodicity between %.0f and %.0f BPM", MinBPM, MaxBPM)
	}
	bpm := 60 * fps / period

	beats := Track(env, period)
	times := make([]float64, len(beats))
	for i, b := range beats {
		times[i] = spectral.FrameTime(b, e.hop, buf.SampleRate)
	}
	if len(beats) >= minBeats {
		interval := float64(beats[len(beats)-1]-beats[0]) / float64(len(beats)-1)
		refined := 60 * fps / interval
		if math.Abs(refined-bpm)/bpm <= maxRefineRatio {
			bpm = refined
		}
	}
	if math.IsNaN(bpm) || math.IsInf(bpm, 0) || bpm <= 0 {
		return e.fallbackEstimate("estimate %v is not a tempo", bpm)
	}
	return Estimate{BPM: bpm, Beats: times}
}

func (e *Estimator) fallbackEstimate(format string, args ...interface{}) Estimate {
	e.logger.Printf("tempo: "+format+", using fallback %.1f BPM", append(args, e.fallback)...)
	return Estimate{BPM: e.fallback, Beats: []float64{}, Fallback: true}
}

// Period returns the beat period of env in (fractional) frames. Lags between
// MinBPM and MaxBPM are scored by the autocorrelation of the mean-removed
// envelope weighted by the tempo prior, and the best lag is refined by
// parabolic interpolation.
func Period(env []float64, fps float64) (float64, bool) {
	minLag := int(math.Floor(60 * fps / MaxBPM))
	maxLag := int(math.Ceil(60 * fps / MinBPM))
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(env) {
		return 0, false
	}

	centered := append([]float64(nil), env...)
	floats.AddConst(-stat.Mean(env, nil), centered)

	scores := make([]float64, maxLag+2)
	best := -1
	for lag := minLag - 1; lag <= maxLag+1; lag++ {
		if lag < 1 || lag >= len(env) {
			continue
		}
		ac := floats.Dot(centered[:len(env)-lag], centered[lag:]) / float64(len(env)-lag)
		scores[lag] = ac * prior(60*fps/float64(lag))
		if lag >= minLag && lag <= maxLag && (best < 0 || scores[lag] > scores[best]) {
			best = lag
		}
	}
	if best < 0 || scores[best] <= 0 {
		return 0, false
	}

	period := float64(best)
	if best > 1 && best+1 < len(scores) {
		a, b, c := scores[best-1], scores[best], scores[best+1]
		if denom := a - 2*b + c; denom < 0 {
			period += 0.5 * (a - c) / denom
		}
	}
	return period, true
}

func prior(bpm float64) float64 {
	x := math.Log2(bpm/priorBPM) / priorOctave
	return math.Exp(-0.5 * x * x)
}

// Track runs the dynamic programming beat tracker over env for a beat
// period in frames and returns the beat frames in ascending order. Each beat
// scores its onset strength plus the best predecessor between half and twice
// a period earlier, penalised by the squared log deviation from the period.
func Track(env []float64, period float64) []int {
	if len(env) == 0 || period <= 0 {
		return nil
	}
	local := make([]float64, len(env))
	copy(local, env)
	if sd := stat.StdDev(env, nil); sd > 0 {
		floats.Scale(1/sd, local)
	}

	cum := make([]float64, len(env))
	back := make([]int, len(env))
	for i := range env {
		back[i] = -1
		cum[i] = local[i]
		lo := i - int(math.Round(2*period))
		hi := i - int(math.Round(period/2))
		if lo < 0 {
			lo = 0
		}
		best := math.Inf(-1)
		for j := lo; j <= hi; j++ {
			d := math.Log(float64(i-j) / period)
			if s := cum[j] - tightness*d*d; s > best {
				best = s
				back[i] = j
			}
		}
		if back[i] >= 0 && best > 0 {
			cum[i] += best
		} else {
			back[i] = -1
		}
	}

	last := len(env) - 1
	from := len(env) - int(math.Round(period))
	if from < 0 {
		from = 0
	}
	for i := from; i < len(env); i++ {
		if cum[i] > cum[last] {
			last = i
		}
	}

	var beats []int
	for b := last; b >= 0; b = back[b] {
		beats = append(beats, b)
	}
	for i, j := 0, len(beats)-1; i < j; i, j = i+1, j-1 {
		beats[i], beats[j] = beats[j], beats[i]
	}
	return beats
}
