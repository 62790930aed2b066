package model

type Label string

// Unknown marks a prediction the model could not commit to. It never maps to
// a note.
const Unknown Label = "unknown"

const (
	Kick  Label = "kick"
	Snare Label = "snare"
	Hihat Label = "hihat"
)

type ClassifiedOnset struct {
	Time       float64 `json:"time"`
	Instrument Label   `json:"instrument"`
}
