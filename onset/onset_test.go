package onset

import (
	"math"
	"math/rand"
	"testing"

	"github.com/jsphweid/drumdex/config"
	"github.com/jsphweid/drumdex/model"
	"github.com/jsphweid/drumdex/synth"
	"github.com/stretchr/testify/assert"
)

func TestDetectSyntheticPattern(t *testing.T) {
	hits := synth.Pattern(120, 2, 0.2)
	buf := synth.Render(hits, 4.6, 44100, 3)

	onsets := NewDetector(config.Default()).Detect(buf)

	assert := assert.New(t)
	assert.Len(onsets, len(hits))
	for _, h := range hits {
		assert.True(hasNear(onsets, h.Time, 0.06), "no onset near %v in %v", h.Time, onsets)
	}
	for _, o := range onsets {
		assert.True(o >= 0)
	}
}

func TestBacktrackNeverLater(t *testing.T) {
	buf := synth.Render(synth.Pattern(100, 1, 0.3), 3, 44100, 4)
	cfg := config.Default()

	with := NewDetector(cfg).Detect(buf)
	without := NewDetector(cfg, WithBacktrack(false)).Detect(buf)

	assert.Equal(t, len(without), len(with))
	for i := range with {
		assert.LessOrEqual(t, with[i], without[i])
	}
}

func TestDetectSilenceAndEmpty(t *testing.T) {
	d := NewDetector(config.Default())

	silent := model.AudioBuffer{Samples: make([]float64, 44100), SampleRate: 44100}
	assert.Empty(t, d.Detect(silent))
	assert.NotNil(t, d.Detect(silent))

	assert.Empty(t, d.Detect(model.AudioBuffer{SampleRate: 44100}))
}

func TestDetectOrderingAndSeparation(t *testing.T) {
	cfg := config.Default()
	rng := rand.New(rand.NewSource(11))
	samples := make([]float64, 3*44100)
	// bursts at random, sometimes closer than the merge threshold
	for b := 0; b < 40; b++ {
		start := rng.Intn(len(samples) - 2000)
		for i := 0; i < 2000; i++ {
			samples[start+i] += (rng.Float64()*2 - 1) * math.Exp(-float64(i)/400)
		}
	}

	onsets := NewDetector(cfg).Detect(model.AudioBuffer{Samples: samples, SampleRate: 44100})
	assert.NotEmpty(t, onsets)
	for i := 1; i < len(onsets); i++ {
		assert.GreaterOrEqual(t, onsets[i]-onsets[i-1], cfg.MinInterOnset())
	}
}

func TestDedupKeepsEarlier(t *testing.T) {
	got := Dedup([]float64{1.0, 0.5, 0.51, 0.529, 0.531, 1.0, 2}, 0.03)
	assert.Equal(t, []float64{0.5, 0.531, 1.0, 2}, got)
	assert.Empty(t, Dedup(nil, 0.03))
}

func TestBacktrackFindsPrecedingMinimum(t *testing.T) {
	env := []float64{0, 0, 0.1, 0.05, 0.2, 0.6, 1.0, 0.4}
	assert.Equal(t, 3, backtrack(env, 6))
	assert.Equal(t, 1, backtrack(env, 2))
	assert.Equal(t, 0, backtrack(env, 0))
}

func TestPickPeaksWait(t *testing.T) {
	env := []float64{0, 1, 0, 0.9, 0, 0, 0, 0, 0.8, 0}
	assert.Equal(t, []int{1, 8}, pickPeaks(env, 1, 2, 1, 2, 0.1, 3))
}

func hasNear(onsets []float64, t, tol float64) bool {
	for _, o := range onsets {
		if math.Abs(o-t) <= tol {
			return true
		}
	}
	return false
}
