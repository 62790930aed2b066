package pipeline

import (
	"context"
	"fmt"

	"github.com/jsphweid/drumdex/classifier"
	"github.com/jsphweid/drumdex/config"
	"github.com/jsphweid/drumdex/features"
	"github.com/jsphweid/drumdex/model"
	"github.com/jsphweid/drumdex/onset"
)

// Example is a recording in which every onset is the same instrument.
type Example struct {
	Name   string
	Buffer model.AudioBuffer
	Label  model.Label
}

// FitModel builds a centroid model from examples. Vectors are taken at the
// detected onsets, the same way a transcription run takes them.
func FitModel(ctx context.Context, cfg config.Config, examples []Example, slack float64) (*classifier.CentroidModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	detector := onset.NewDetector(cfg)
	extractor := features.NewExtractor(cfg)

	var vectors []model.FeatureVector
	var labels []model.Label
	for _, ex := range examples {
		times := detector.Detect(ex.Buffer)
		if len(times) == 0 {
			return nil, fmt.Errorf("example %s has no onsets", ex.Name)
		}
		v, err := extractor.ExtractAll(ctx, ex.Buffer, times)
		if err != nil {
			return nil, fmt.Errorf("example %s: %w", ex.Name, err)
		}
		vectors = append(vectors, v...)
		for range v {
			labels = append(labels, ex.Label)
		}
	}
	return classifier.FitCentroids(vectors, labels, slack)
}
