package api

import (
	"errors"
	"net/http"

	"github.com/okian/plotpath/internal/adapters/extraction"
	"github.com/okian/plotpath/internal/app"
	"github.com/okian/plotpath/internal/domain/factor"
	"github.com/okian/plotpath/internal/domain/research"
	"github.com/okian/plotpath/internal/domain/scoring"
	"github.com/okian/plotpath/internal/domain/skill"
	"github.com/okian/plotpath/internal/domain/skillgraph"
)

// ErrBadRequest marks malformed request bodies and parameters.
var ErrBadRequest = errors.New("bad request")

type errorClass struct {
	status int
	code   string
	errs   []error
}

// Checked in order; the first match wins.
var errorClasses = []errorClass{
	{http.StatusBadRequest, "bad_request", []error{
		ErrBadRequest,
		research.ErrInvalidScore, research.ErrEmptyEntity, research.ErrMissingTimestamp,
		factor.ErrInvalidWeight, factor.ErrInvalidTTL, factor.ErrInvalidVolatility, factor.ErrEmptyKey,
		skill.ErrEmptyName, skill.ErrInvalidCategory, skill.ErrInvalidLevel, skill.ErrDuplicateRequirement,
		skill.ErrInvalidStatus, skill.ErrInvalidRating,
		app.ErrInvalidEntity, app.ErrInvalidRole, app.ErrNoRequirements,
		extraction.ErrEmptyText, extraction.ErrNoData,
	}},
	{http.StatusNotFound, "not_found", []error{
		factor.ErrUnknownFactor, skillgraph.ErrUnknownSkill, app.ErrUnknownEntity, app.ErrUnknownRole,
	}},
	{http.StatusConflict, "conflict", []error{
		skillgraph.ErrCycle, skill.ErrStatusRegression, scoring.ErrNoFactors, scoring.ErrNoWeightedFactors,
	}},
	{http.StatusTooManyRequests, "backpressure", []error{app.ErrBackpressure}},
	{http.StatusBadGateway, "upstream_error", []error{extraction.ErrInvalidResponse, extraction.ErrMissingField}},
	{http.StatusNotImplemented, "not_configured", []error{app.ErrNoExtractor, app.ErrNoResearcher}},
	{http.StatusServiceUnavailable, "unavailable", []error{app.ErrNotStarted}},
}

func classify(err error) (int, string) {
	for _, c := range errorClasses {
		for _, target := range c.errs {
			if errors.Is(err, target) {
				return c.status, c.code
			}
		}
	}
	return http.StatusInternalServerError, "internal_error"
}
