package spectral

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/floats"
)

func sine(freq float64, n, rate int) []float64 {
	res := make([]float64, n)
	for i := range res {
		res[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(rate))
	}
	return res
}

func TestNumFrames(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(0, NumFrames(100, 1024, 256))
	assert.Equal(1, NumFrames(1024, 1024, 256))
	assert.Equal(2, NumFrames(1280, 1024, 256))
	assert.Equal(14, NumFrames(4410, 1024, 256))
	assert.Equal(0, NumFrames(4410, 1024, 0))
}

func TestSpectrogramPeakBin(t *testing.T) {
	rate := 44100
	frameSize := 2048
	// exactly on bin 40
	freq := 40 * float64(rate) / float64(frameSize)
	spec := Spectrogram(sine(freq, 8192, rate), frameSize, 512)

	assert.Len(t, spec, NumFrames(8192, frameSize, 512))
	for _, frame := range spec {
		assert.Len(t, frame, frameSize/2+1)
		assert.Equal(t, 40, floats.MaxIdx(frame))
	}
}

func TestOnsetStrengthPeaksAtClick(t *testing.T) {
	rate := 44100
	hop := 512
	samples := make([]float64, rate)
	click := rate / 2
	for i := 0; i < 2000; i++ {
		samples[click+i] = math.Exp(-float64(i)/300) * math.Sin(float64(i))
	}

	env := OnsetStrength(samples, rate, 2048, hop, 40)
	assert.Len(t, env, 1+len(samples)/hop)

	peak := floats.MaxIdx(env)
	assert.InDelta(t, 0.5, FrameTime(peak, hop, rate), 0.03)
	assert.Equal(t, 0.0, env[0])
}

func TestOnsetStrengthSilence(t *testing.T) {
	env := OnsetStrength(make([]float64, 10000), 44100, 2048, 512, 40)
	assert.Equal(t, 0.0, floats.Max(env))
	assert.Nil(t, OnsetStrength(nil, 44100, 2048, 512, 40))
}

func TestMelFilterbankShape(t *testing.T) {
	bank := MelFilterbank(40, 1024, 44100)
	assert.Len(t, bank, 40)
	for _, f := range bank {
		assert.Len(t, f, 513)
		for _, w := range f {
			assert.True(t, w >= 0 && w <= 1)
		}
	}
}

func TestMFCCDeterministicAndFinite(t *testing.T) {
	m := NewMFCC(40, 13, 1024, 44100)
	spec := Spectrogram(sine(440, 1024, 44100), 1024, 256)[0]

	a := m.Coefficients(spec)
	b := m.Coefficients(spec)
	assert.Len(t, a, 13)
	assert.Equal(t, a, b)

	silent := m.Coefficients(make([]float64, 513))
	for _, v := range silent {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}
