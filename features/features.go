package features

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/jsphweid/drumdex/config"
	"github.com/jsphweid/drumdex/model"
	"github.com/jsphweid/drumdex/spectral"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// analysis frames inside the onset window
const (
	AnalysisFrame = 1024
	AnalysisHop   = 256
)

var ErrSampleRateMismatch = errors.New("buffer sample rate does not match config")

// Extractor is stateless after construction and safe for concurrent use.
type Extractor struct {
	windowMs   int
	nCoeff     int
	sampleRate int
	workers    int
	mfcc       *spectral.MFCC
}

func NewExtractor(cfg config.Config) *Extractor {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Extractor{
		windowMs:   cfg.WindowMs,
		nCoeff:     cfg.CoefficientCount,
		sampleRate: cfg.TargetSampleRate,
		workers:    workers,
		mfcc:       spectral.NewMFCC(cfg.MelBands, cfg.CoefficientCount, AnalysisFrame, cfg.TargetSampleRate),
	}
}

// Size is the length of every vector this extractor returns.
func (e *Extractor) Size() int {
	return e.nCoeff
}

// Window returns the [start, end) sample range analysed for onsetTime. The
// window is centered on the onset and shrinks at either buffer edge instead
// of wrapping or failing.
func (e *Extractor) Window(buf model.AudioBuffer, onsetTime float64) (int, int) {
	windowSamples := int(float64(e.windowMs) / 1000 * float64(buf.SampleRate))
	if onsetTime < 0 {
		onsetTime = 0
	}
	onsetSample := int(onsetTime * float64(buf.SampleRate))
	start := onsetSample - windowSamples/2
	end := start + windowSamples
	if start < 0 {
		start = 0
	}
	if end > buf.Len() {
		end = buf.Len()
	}
	if start > end {
		start = end
	}
	return start, end
}

// Extract returns the mean MFCC over the analysis frames of the window around
// onsetTime. A window shorter than one analysis frame yields a zero vector.
// The buffer is expected to be at the configured sample rate.
func (e *Extractor) Extract(buf model.AudioBuffer, onsetTime float64) model.FeatureVector {
	start, end := e.Window(buf, onsetTime)
	res := make(model.FeatureVector, e.nCoeff)

	spec := spectral.Spectrogram(buf.Samples[start:end], AnalysisFrame, AnalysisHop)
	if len(spec) == 0 {
		return res
	}
	for _, mag := range spec {
		floats.Add(res, e.mfcc.Coefficients(mag))
	}
	floats.Scale(1/float64(len(spec)), res)
	return res
}

// ExtractAll extracts one vector per onset, in input order. Onsets are spread
// over a bounded pool of goroutines; the result is identical to calling
// Extract sequentially.
func (e *Extractor) ExtractAll(ctx context.Context, buf model.AudioBuffer, onsetTimes []float64) ([]model.FeatureVector, error) {
	if buf.SampleRate != e.sampleRate {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSampleRateMismatch, buf.SampleRate, e.sampleRate)
	}
	res := make([]model.FeatureVector, len(onsetTimes))
	if len(onsetTimes) == 0 {
		return res, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, t := range onsetTimes {
		i, t := i, t
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res[i] = e.Extract(buf, t)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}
