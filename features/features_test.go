package features

import (
	"context"
	"math"
	"testing"

	"github.com/jsphweid/drumdex/config"
	"github.com/jsphweid/drumdex/model"
	"github.com/jsphweid/drumdex/synth"
	"github.com/stretchr/testify/assert"
)

func testBuffer() model.AudioBuffer {
	return synth.Render(synth.Pattern(120, 1, 0.05), 2.2, 44100, 7)
}

func TestExtractIsIdempotent(t *testing.T) {
	e := NewExtractor(config.Default())
	buf := testBuffer()

	a := e.Extract(buf, 0.55)
	b := e.Extract(buf, 0.55)
	assert.Len(t, a, 13)
	assert.Equal(t, a, b)
	for i := range a {
		assert.Equal(t, math.Float64bits(a[i]), math.Float64bits(b[i]))
	}
}

func TestWindowEdges(t *testing.T) {
	e := NewExtractor(config.Default())
	buf := model.AudioBuffer{Samples: make([]float64, 44100), SampleRate: 44100}

	cases := []struct {
		name       string
		time       float64
		start, end int
	}{
		{"middle", 0.5, 22050 - 2205, 22050 + 2205},
		{"at start", 0, 0, 2205},
		{"negative", -1, 0, 2205},
		{"near end", 0.96875, 42721 - 2205, 44100},
		{"past end", 5, 44100, 44100},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			start, end := e.Window(buf, c.time)
			assert.Equal(t, c.start, start)
			assert.Equal(t, c.end, end)
		})
	}
}

func TestExtractAtBufferStartIsTruncatedNotFailing(t *testing.T) {
	e := NewExtractor(config.Default())
	buf := testBuffer()

	v := e.Extract(buf, 0)
	assert.Len(t, v, 13)
	assert.NotEqual(t, make(model.FeatureVector, 13), v)
}

func TestExtractTooShortIsZeroVector(t *testing.T) {
	e := NewExtractor(config.Default())
	buf := model.AudioBuffer{Samples: []float64{0.1, -0.2, 0.3}, SampleRate: 44100}

	assert.Equal(t, make(model.FeatureVector, 13), e.Extract(buf, 0))
	assert.Equal(t, make(model.FeatureVector, 13), e.Extract(testBuffer(), 100))
}

func TestExtractAllPreservesOrder(t *testing.T) {
	cfg := config.Default()
	cfg.Workers = 3
	e := NewExtractor(cfg)
	buf := testBuffer()
	times := []float64{1.8, 0.05, 0.3, 0.55, 0, 2.19, 1.05}

	vectors, err := e.ExtractAll(context.Background(), buf, times)
	assert.NoError(t, err)
	assert.Len(t, vectors, len(times))
	for i, ts := range times {
		assert.Equal(t, e.Extract(buf, ts), vectors[i])
	}
}

func TestExtractAllEmpty(t *testing.T) {
	e := NewExtractor(config.Default())
	vectors, err := e.ExtractAll(context.Background(), testBuffer(), nil)
	assert.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestExtractAllRejectsWrongRate(t *testing.T) {
	e := NewExtractor(config.Default())
	buf := model.AudioBuffer{Samples: make([]float64, 1000), SampleRate: 8000}

	_, err := e.ExtractAll(context.Background(), buf, []float64{0})
	assert.ErrorIs(t, err, ErrSampleRateMismatch)
}

func TestExtractAllCancelled(t *testing.T) {
	e := NewExtractor(config.Default())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.ExtractAll(ctx, testBuffer(), []float64{0.1, 0.2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInstrumentsSeparateInFeatureSpace(t *testing.T) {
	e := NewExtractor(config.Default())
	kick := e.Extract(synth.Render([]synth.Hit{{Time: 0.1, Instrument: model.Kick}}, 0.4, 44100, 1), 0.1)
	hat := e.Extract(synth.Render([]synth.Hit{{Time: 0.1, Instrument: model.Hihat}}, 0.4, 44100, 1), 0.1)
	kick2 := e.Extract(synth.Render([]synth.Hit{{Time: 0.1, Instrument: model.Kick}}, 0.4, 44100, 2), 0.1)

	assert.Less(t, dist(kick, kick2), dist(kick, hat))
}

func dist(a, b model.FeatureVector) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
