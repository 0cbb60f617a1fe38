package app

import "errors"

var (
	ErrNotStarted     = errors.New("service not started")
	ErrUnknownEntity  = errors.New("unknown entity")
	ErrUnknownRole    = errors.New("unknown role")
	ErrInvalidEntity  = errors.New("entity name must contain a letter or digit")
	ErrInvalidRole    = errors.New("role name must not be empty")
	ErrBackpressure   = errors.New("research queue is full")
	ErrNoExtractor    = errors.New("no requirement extractor configured")
	ErrNoResearcher   = errors.New("no researcher configured")
	ErrNoRequirements = errors.New("posting yielded no requirements")
)
