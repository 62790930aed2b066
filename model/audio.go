package model

// AudioBuffer is a mono signal at a fixed sample rate. Stages treat Samples
// as read-only once the buffer has been produced.
type AudioBuffer struct {
	Samples    []float64
	SampleRate int
}

func (b AudioBuffer) Len() int {
	return len(b.Samples)
}

// Duration returns the length of the buffer in seconds.
func (b AudioBuffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// FeatureVector summarizes the spectral content around one onset.
type FeatureVector = []float64
