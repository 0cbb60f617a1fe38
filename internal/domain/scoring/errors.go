package scoring

import "errors"

var (
	ErrNoFactors         = errors.New("no factors registered")
	ErrNoWeightedFactors = errors.New("every factor has zero weight")
)
