// Package spectral holds the short-time analysis shared by feature
// extraction, onset detection and tempo estimation.
package spectral

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

const logFloor = 1e-10

// NumFrames is the number of whole frames of length frameSize, hop apart,
// that fit in n samples.
func NumFrames(n, frameSize, hop int) int {
	if n < frameSize || frameSize <= 0 || hop <= 0 {
		return 0
	}
	return 1 + (n-frameSize)/hop
}

// Spectrogram returns the magnitude spectrum (frameSize/2+1 bins) of each
// Hann windowed frame. Frame i starts at sample i*hop; partial frames at the
// end are dropped.
func Spectrogram(samples []float64, frameSize, hop int) [][]float64 {
	n := NumFrames(len(samples), frameSize, hop)
	if n == 0 {
		return nil
	}
	win := window.Hann(frameSize)
	res := make([][]float64, n)
	frame := make([]float64, frameSize)
	for i := 0; i < n; i++ {
		start := i * hop
		for j := range frame {
			frame[j] = samples[start+j] * win[j]
		}
		res[i] = magnitude(fft.FFTReal(frame), frameSize)
	}
	return res
}

func magnitude(spec []complex128, frameSize int) []float64 {
	mag := make([]float64, frameSize/2+1)
	for k := range mag {
		mag[k] = cmplx.Abs(spec[k])
	}
	return mag
}

// CenteredSpectrogram pads frameSize/2 zeros on both sides so that frame i
// is centered on sample i*hop.
func CenteredSpectrogram(samples []float64, frameSize, hop int) [][]float64 {
	if len(samples) == 0 {
		return nil
	}
	pad := frameSize / 2
	padded := make([]float64, len(samples)+2*pad)
	copy(padded[pad:], samples)
	return Spectrogram(padded, frameSize, hop)
}

// FrameTime converts a centered frame index to seconds.
func FrameTime(i, hop, sampleRate int) float64 {
	return float64(i*hop) / float64(sampleRate)
}

// TopDB bounds the dynamic range of the log mel spectrogram used for onset
// strength. Bands quieter than the loudest band minus TopDB are clipped.
const TopDB = 80.0

// OnsetStrength is the spectral flux of the signal: for each centered frame,
// the mean over mel bands of the positive change in band power (dB) from the
// previous frame. The first frame has strength 0.
func OnsetStrength(samples []float64, sampleRate, frameSize, hop, nMels int) []float64 {
	spec := CenteredSpectrogram(samples, frameSize, hop)
	if len(spec) == 0 {
		return nil
	}
	bank := MelFilterbank(nMels, frameSize, sampleRate)
	melDB := make([][]float64, len(spec))
	ref := math.Inf(-1)
	for i, mag := range spec {
		power := make([]float64, len(mag))
		for k, v := range mag {
			power[k] = v * v
		}
		bands := make([]float64, nMels)
		for m, filter := range bank {
			bands[m] = 10 * math.Log10(math.Max(floats.Dot(filter, power), logFloor))
		}
		ref = math.Max(ref, floats.Max(bands))
		melDB[i] = bands
	}
	for _, bands := range melDB {
		for m, v := range bands {
			bands[m] = math.Max(v, ref-TopDB)
		}
	}

	env := make([]float64, len(melDB))
	diff := make([]float64, nMels)
	for i := 1; i < len(melDB); i++ {
		floats.SubTo(diff, melDB[i], melDB[i-1])
		for m, d := range diff {
			if d < 0 {
				diff[m] = 0
			}
		}
		env[i] = floats.Sum(diff) / float64(nMels)
	}
	return env
}

func hzToMel(f float64) float64 {
	return 2595 * math.Log10(1+f/700)
}

func melToHz(m float64) float64 {
	return 700 * (math.Pow(10, m/2595) - 1)
}

// MelFilterbank builds nMels triangular filters over the frameSize/2+1 bins
// of a spectrum, spaced evenly on the mel scale between 0 Hz and Nyquist.
func MelFilterbank(nMels, frameSize, sampleRate int) [][]float64 {
	nBins := frameSize/2 + 1
	maxMel := hzToMel(float64(sampleRate) / 2)
	edges := make([]float64, nMels+2)
	for i := range edges {
		edges[i] = melToHz(maxMel * float64(i) / float64(nMels+1))
	}
	binHz := float64(sampleRate) / float64(frameSize)

	bank := make([][]float64, nMels)
	for m := 0; m < nMels; m++ {
		lo, mid, hi := edges[m], edges[m+1], edges[m+2]
		filter := make([]float64, nBins)
		for k := 0; k < nBins; k++ {
			f := float64(k) * binHz
			switch {
			case f > lo && f <= mid:
				filter[k] = (f - lo) / (mid - lo)
			case f > mid && f < hi:
				filter[k] = (hi - f) / (hi - mid)
			}
		}
		bank[m] = filter
	}
	return bank
}

// MFCC turns magnitude spectra into cepstral coefficients. It is safe for
// concurrent use; each call allocates its own transform.
type MFCC struct {
	bank   [][]float64
	nCoeff int
}

func NewMFCC(nMels, nCoeff, frameSize, sampleRate int) *MFCC {
	return &MFCC{
		bank:   MelFilterbank(nMels, frameSize, sampleRate),
		nCoeff: nCoeff,
	}
}

// Coefficients returns the first nCoeff cosine transform coefficients of the
// log mel band power of one magnitude spectrum.
func (m *MFCC) Coefficients(mag []float64) []float64 {
	power := make([]float64, len(mag))
	for k, v := range mag {
		power[k] = v * v
	}
	logMel := make([]float64, len(m.bank))
	for i, filter := range m.bank {
		logMel[i] = math.Log(math.Max(floats.Dot(filter, power), logFloor))
	}
	dct := fourier.NewDCT(len(logMel))
	out := dct.Transform(nil, logMel)
	return out[:m.nCoeff]
}
