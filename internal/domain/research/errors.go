package research

import "errors"

var (
	ErrInvalidScore     = errors.New("score must be an integer within [1,10]")
	ErrEmptyEntity      = errors.New("entity must not be empty")
	ErrMissingTimestamp = errors.New("captured_at must be set")
)
