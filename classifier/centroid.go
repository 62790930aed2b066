package classifier

import (
	"errors"
	"fmt"
	"math"

	"github.com/jsphweid/drumdex/model"
	"github.com/jsphweid/drumdex/util"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// CentroidModel is a nearest-centroid predictor over standardized feature
// vectors. A vector further from its nearest centroid than that label's
// radius is Unknown. Fields are exported for gob.
type CentroidModel struct {
	Dim       int
	Mean      []float64
	Scale     []float64
	Labels    []model.Label
	Centroids [][]float64
	Radii     []float64
}

// FitCentroids builds a model from labelled vectors. Each label's radius is
// slack times the distance of its furthest member from the centroid.
// Vectors labelled Unknown are ignored.
func FitCentroids(vectors []model.FeatureVector, labels []model.Label, slack float64) (*CentroidModel, error) {
	if len(vectors) != len(labels) {
		return nil, fmt.Errorf("%d vectors but %d labels", len(vectors), len(labels))
	}
	if slack <= 0 {
		return nil, fmt.Errorf("slack must be positive, got %v", slack)
	}
	groups := map[model.Label][]model.FeatureVector{}
	var kept []model.FeatureVector
	dim := -1
	for i, v := range vectors {
		if labels[i] == model.Unknown || labels[i] == "" {
			continue
		}
		if dim < 0 {
			dim = len(v)
		}
		if len(v) != dim || dim == 0 {
			return nil, fmt.Errorf("vector %d has length %d, want %d", i, len(v), dim)
		}
		groups[labels[i]] = append(groups[labels[i]], v)
		kept = append(kept, v)
	}
	if len(kept) == 0 {
		return nil, errors.New("no labelled vectors to fit")
	}

	m := &CentroidModel{
		Dim:   dim,
		Mean:  make([]float64, dim),
		Scale: make([]float64, dim),
	}
	column := make([]float64, len(kept))
	for d := 0; d < dim; d++ {
		for i, v := range kept {
			column[i] = v[d]
		}
		mean, sd := stat.MeanStdDev(column, nil)
		if sd == 0 || math.IsNaN(sd) {
			sd = 1
		}
		m.Mean[d], m.Scale[d] = mean, sd
	}

	for _, label := range util.GetKeys(groups) {
		members := make([][]float64, len(groups[label]))
		centroid := make([]float64, dim)
		for i, v := range groups[label] {
			members[i] = m.standardize(v)
			floats.Add(centroid, members[i])
		}
		floats.Scale(1/float64(len(members)), centroid)

		var radius float64
		for _, v := range members {
			radius = math.Max(radius, floats.Distance(v, centroid, 2))
		}
		m.Labels = append(m.Labels, label)
		m.Centroids = append(m.Centroids, centroid)
		m.Radii = append(m.Radii, radius*slack)
	}
	return m, nil
}

func (m *CentroidModel) standardize(v []float64) []float64 {
	res := make([]float64, len(v))
	for d := range v {
		res[d] = (v[d] - m.Mean[d]) / m.Scale[d]
	}
	return res
}

func (m *CentroidModel) Predict(vectors []model.FeatureVector) ([]model.Label, error) {
	if m == nil || len(m.Labels) == 0 {
		return nil, ErrModelUnavailable
	}
	res := make([]model.Label, len(vectors))
	for i, v := range vectors {
		res[i] = m.predictOne(v)
	}
	return res, nil
}

func (m *CentroidModel) predictOne(v model.FeatureVector) model.Label {
	if len(v) != m.Dim || floats.HasNaN(v) {
		return model.Unknown
	}
	s := m.standardize(v)
	best, bestDist := -1, math.Inf(1)
	for i, c := range m.Centroids {
		if d := floats.Distance(s, c, 2); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 || bestDist > m.Radii[best] {
		return model.Unknown
	}
	return m.Labels[best]
}

func (m *CentroidModel) validate() error {
	n := len(m.Labels)
	if n == 0 || len(m.Centroids) != n || len(m.Radii) != n {
		return errors.New("model has mismatched label tables")
	}
	if len(m.Mean) != m.Dim || len(m.Scale) != m.Dim {
		return errors.New("model has mismatched scaling")
	}
	for _, c := range m.Centroids {
		if len(c) != m.Dim {
			return errors.New("model centroid has wrong dimension")
		}
	}
	return nil
}

func (m *CentroidModel) SaveModel(path string) error {
	return util.CreateBinary(path, m)
}

// LoadModel reads a gob model written by SaveModel. Any failure to produce a
// usable model is ErrModelUnavailable.
func LoadModel(path string) (*CentroidModel, error) {
	m, err := util.ReadBinary[CentroidModel](path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelUnavailable, path, err)
	}
	return &m, nil
}
