package extraction

import "errors"

var (
	// ErrInvalidResponse is returned when model output is not the expected JSON.
	ErrInvalidResponse = errors.New("invalid extraction response")
	// ErrMissingField is returned when a required JSON field is absent.
	ErrMissingField = errors.New("extraction response missing field")
	// ErrNoData is returned by static sources that have nothing for the request.
	ErrNoData = errors.New("no extraction data")
	// ErrEmptyText is returned when there is nothing to extract from.
	ErrEmptyText = errors.New("empty posting text")
)
