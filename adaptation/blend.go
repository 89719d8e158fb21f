package adaptation

import (
	"errors"
	"fmt"
	"math"

	"github.com/poiesic/jobfeed/core"
)

// DefaultAlpha is the weight of the current vector in a blend.
const DefaultAlpha = 0.3

// Blend returns normalize(alpha*base + (1-alpha)*mean(history)).
// It does not modify its arguments.
func Blend(base []float32, history [][]float32, alpha float64) ([]float32, error) {
	if math.IsNaN(alpha) || alpha < 0 || alpha > 1 {
		return nil, ErrInvalidAlpha
	}

	mean, err := core.MeanVector(history)
	if err != nil {
		if errors.Is(err, core.ErrEmptyVectorSet) {
			return nil, ErrEmptyHistory
		}
		return nil, err
	}
	if len(base) != len(mean) {
		return nil, fmt.Errorf("%w: base has %d dimensions, history %d", core.ErrDimensionMismatch, len(base), len(mean))
	}

	blended := make([]float32, len(base))
	for i := range blended {
		blended[i] = float32(alpha*float64(base[i]) + (1-alpha)*float64(mean[i]))
	}
	if core.Norm(blended) == 0 {
		return nil, ErrZeroVector
	}
	return core.NormalizeVector(blended), nil
}
