package factor

import "errors"

var (
	ErrUnknownFactor     = errors.New("unknown factor")
	ErrDuplicateFactor   = errors.New("factor already registered")
	ErrInvalidWeight     = errors.New("weight must be within [0,2]")
	ErrInvalidTTL        = errors.New("invalid ttl")
	ErrInvalidVolatility = errors.New("volatility must be STABLE or VOLATILE")
	ErrEmptyKey          = errors.New("factor key must not be empty")
)
