package pipeline

import (
	"context"

	"github.com/jsphweid/drumdex/model"
)

// Separator isolates the percussion stem of a mixed recording. The returned
// buffer must keep the input's sample rate.
type Separator interface {
	Separate(ctx context.Context, buf model.AudioBuffer) (model.AudioBuffer, error)
}

// Passthrough is the Separator for input that is already percussion only.
type Passthrough struct{}

func (Passthrough) Separate(ctx context.Context, buf model.AudioBuffer) (model.AudioBuffer, error) {
	return buf, ctx.Err()
}
