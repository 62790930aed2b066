package classifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/jsphweid/drumdex/features"
	"github.com/jsphweid/drumdex/model"
)

var ErrModelUnavailable = errors.New("classifier model unavailable")

// Predictor is the only capability the pipeline needs from a trained model.
// Labels come back in input order, one per vector. A model that cannot commit
// to an instrument must answer model.Unknown rather than guess.
type Predictor interface {
	Predict(vectors []model.FeatureVector) ([]model.Label, error)
}

type PredictorFunc func(vectors []model.FeatureVector) ([]model.Label, error)

func (f PredictorFunc) Predict(vectors []model.FeatureVector) ([]model.Label, error) {
	return f(vectors)
}

type Classifier struct {
	predictor Predictor
	extractor *features.Extractor
}

func New(p Predictor, extractor *features.Extractor) (*Classifier, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: no predictor given", ErrModelUnavailable)
	}
	if m, ok := p.(*CentroidModel); ok {
		if m == nil {
			return nil, fmt.Errorf("%w: nil centroid model", ErrModelUnavailable)
		}
		if err := m.validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		}
	}
	if extractor == nil {
		return nil, errors.New("classifier needs a feature extractor")
	}
	return &Classifier{predictor: p, extractor: extractor}, nil
}

func (c *Classifier) Classify(vectors []model.FeatureVector) ([]model.Label, error) {
	if len(vectors) == 0 {
		return []model.Label{}, nil
	}
	labels, err := c.predictor.Predict(vectors)
	if err != nil {
		return nil, fmt.Errorf("predicting %d vectors: %w", len(vectors), err)
	}
	if len(labels) != len(vectors) {
		return nil, fmt.Errorf("predictor returned %d labels for %d vectors", len(labels), len(vectors))
	}
	for i, l := range labels {
		if l == "" {
			labels[i] = model.Unknown
		}
	}
	return labels, nil
}

// ClassifyOnsets extracts a vector at each onset and labels it. The result
// pairs each input time with its label, in input order.
func (c *Classifier) ClassifyOnsets(ctx context.Context, buf model.AudioBuffer, onsetTimes []float64) ([]model.ClassifiedOnset, error) {
	vectors, err := c.extractor.ExtractAll(ctx, buf, onsetTimes)
	if err != nil {
		return nil, fmt.Errorf("extracting features: %w", err)
	}
	labels, err := c.Classify(vectors)
	if err != nil {
		return nil, err
	}
	res := make([]model.ClassifiedOnset, len(onsetTimes))
	for i, t := range onsetTimes {
		res[i] = model.ClassifiedOnset{Time: t, Instrument: labels[i]}
	}
	return res, nil
}
