package skill

import "errors"

var (
	ErrEmptyName            = errors.New("skill name must not be empty")
	ErrInvalidCategory      = errors.New("unknown skill category")
	ErrInvalidLevel         = errors.New("level must be REQUIRED or PREFERRED")
	ErrDuplicateRequirement = errors.New("skill listed twice for the same role")
	ErrInvalidStatus        = errors.New("unknown learning status")
	ErrStatusRegression     = errors.New("learning status can only move forward")
	ErrInvalidRating        = errors.New("rating must be within [1,10]")
)
