// Package verdict turns a desirability outcome and a gap report into an apply decision.
package verdict

import (
	"github.com/okian/plotpath/internal/domain/gap"
	"github.com/okian/plotpath/internal/domain/scoring"
)

// Verdict is the recommendation for a role.
type Verdict string

const (
	Go               Verdict = "GO"
	Maybe            Verdict = "MAYBE"
	NoGo             Verdict = "NO_GO"
	InsufficientData Verdict = "INSUFFICIENT_DATA"
)

// Reason codes carried in Decision.Rationale.
const (
	ReasonDesirabilityIncomplete = "DESIRABILITY_INCOMPLETE"
	ReasonRequiredMatchLow       = "REQUIRED_MATCH_BELOW_THRESHOLD"
	ReasonMatchHigh              = "MATCH_AT_OR_ABOVE_THRESHOLD"
	ReasonMatchLow               = "MATCH_BELOW_THRESHOLD"
	ReasonDesirabilityHigh       = "DESIRABILITY_AT_OR_ABOVE_THRESHOLD"
	ReasonDesirabilityLow        = "DESIRABILITY_BELOW_THRESHOLD"
	ReasonNoRequirements         = "NO_REQUIREMENTS"
)

// Policy holds the decision thresholds.
type Policy struct {
	MinMatch         float64
	MinDesirability  float64
	MinRequiredMatch float64
}

// DefaultPolicy returns GO at 80% match and 6.0 desirability, NO_GO under 50% required match.
func DefaultPolicy() Policy {
	return Policy{MinMatch: 0.8, MinDesirability: 6.0, MinRequiredMatch: 0.5}
}

// Decision is the outcome of Synthesize.
type Decision struct {
	Role          string
	Entity        string
	Verdict       Verdict
	Desirability  *float64
	Match         float64
	RequiredMatch float64
	// Missing lists the stale factors when the verdict is INSUFFICIENT_DATA.
	Missing []string
	// Rationale holds reason codes in evaluation order.
	Rationale []string
}

// Synthesize applies the decision table in this order:
// incomplete desirability, required match floor, GO thresholds, otherwise MAYBE.
func (p Policy) Synthesize(outcome scoring.Outcome, report gap.Report) Decision {
	d := Decision{
		Role:          report.Role,
		Entity:        outcome.Entity,
		Match:         report.Match,
		RequiredMatch: report.RequiredMatch,
		Rationale:     []string{},
	}
	if report.Required.Total+report.Preferred.Total == 0 {
		d.Rationale = append(d.Rationale, ReasonNoRequirements)
	}

	if !outcome.Complete() {
		d.Verdict = InsufficientData
		d.Missing = append([]string(nil), outcome.Missing...)
		d.Rationale = append(d.Rationale, ReasonDesirabilityIncomplete)
		return d
	}
	overall := outcome.Score.Overall
	d.Desirability = &overall

	if report.RequiredMatch < p.MinRequiredMatch {
		d.Verdict = NoGo
		d.Rationale = append(d.Rationale, ReasonRequiredMatchLow)
		return d
	}

	matchOK := report.Match >= p.MinMatch
	desirableOK := overall >= p.MinDesirability
	if matchOK {
		d.Rationale = append(d.Rationale, ReasonMatchHigh)
	} else {
		d.Rationale = append(d.Rationale, ReasonMatchLow)
	}
	if desirableOK {
		d.Rationale = append(d.Rationale, ReasonDesirabilityHigh)
	} else {
		d.Rationale = append(d.Rationale, ReasonDesirabilityLow)
	}

	if matchOK && desirableOK {
		d.Verdict = Go
	} else {
		d.Verdict = Maybe
	}
	return d
}
