// Package scoring turns fresh per-factor findings into an overall desirability score.
package scoring

import (
	"context"
	"math"
	"time"

	"github.com/okian/plotpath/internal/domain/factor"
	"github.com/okian/plotpath/internal/domain/research"
)

// FactorScore is the per-factor input captured in a score snapshot.
type FactorScore struct {
	Factor     string
	Score      int
	Weight     float64
	CapturedAt time.Time
}

// Desirability is a complete score for one entity.
type Desirability struct {
	Entity string
	// Overall is the weighted mean of factor scores, rounded to two decimals.
	Overall float64
	// Confidence is the share of registered factors that carry weight.
	Confidence      float64
	Factors         []FactorScore
	ComputedAt      time.Time
	RegistryVersion uint64
}

// Outcome is either a complete score or the exact set of stale factors.
// Incomplete outcomes are values, not errors.
type Outcome struct {
	Entity  string
	Score   *Desirability
	Missing []string
}

// Complete reports whether the outcome carries a score.
func (o Outcome) Complete() bool { return o.Score != nil && len(o.Missing) == 0 }

// Aggregate computes overall and confidence from factor scores.
// Zero-weight factors are excluded from both numerator and denominator.
func Aggregate(scores []FactorScore) (overall, confidence float64, err error) {
	if len(scores) == 0 {
		return 0, 0, ErrNoFactors
	}
	var sum, weights float64
	weighted := 0
	for _, s := range scores {
		if s.Weight <= 0 {
			continue
		}
		sum += float64(s.Score) * s.Weight
		weights += s.Weight
		weighted++
	}
	if weighted == 0 {
		return 0, 0, ErrNoWeightedFactors
	}
	return Round2(sum / weights), Round2(float64(weighted) / float64(len(scores))), nil
}

// halfTolerance absorbs float error in the mean. An exact mean of 2.875 can
// come out as 2.8749999999999996 for one weight scale and 2.875 for another;
// both must round to 2.88.
const halfTolerance = 1e-7

// Round2 rounds half away from zero to two decimal places. Values within
// halfTolerance of a half step are treated as the half step.
func Round2(x float64) float64 {
	if x < 0 {
		return -Round2(-x)
	}
	cents := x * 100
	whole := math.Floor(cents)
	if cents-whole >= 0.5-halfTolerance {
		whole++
	}
	return whole / 100
}

// Aggregator computes desirability from the research cache.
type Aggregator struct {
	cache    *research.Cache
	registry *factor.Registry
}

// NewAggregator creates an aggregator reading from cache.
func NewAggregator(cache *research.Cache) *Aggregator {
	return &Aggregator{cache: cache, registry: cache.Registry()}
}

// Compute requires every registered factor to be fresh at now. If any is not,
// the outcome names exactly the stale factors, in key order.
func (a *Aggregator) Compute(ctx context.Context, entity string, now time.Time) (Outcome, error) {
	version := a.registry.Version()
	factors := a.registry.All()
	if len(factors) == 0 {
		return Outcome{}, ErrNoFactors
	}

	out := Outcome{Entity: entity}
	scores := make([]FactorScore, 0, len(factors))
	for _, f := range factors {
		ttl, err := a.registry.TTL(f.Key)
		if err != nil {
			return Outcome{}, err
		}
		finding, ok := a.cache.Get(ctx, entity, f.Key)
		if !ok || !now.Before(finding.ExpiresAt(ttl)) {
			out.Missing = append(out.Missing, f.Key)
			continue
		}
		scores = append(scores, FactorScore{
			Factor:     f.Key,
			Score:      finding.Score,
			Weight:     f.Weight,
			CapturedAt: finding.CapturedAt,
		})
	}
	if len(out.Missing) > 0 {
		return out, nil
	}

	overall, confidence, err := Aggregate(scores)
	if err != nil {
		return Outcome{}, err
	}
	out.Score = &Desirability{
		Entity:          entity,
		Overall:         overall,
		Confidence:      confidence,
		Factors:         scores,
		ComputedAt:      now,
		RegistryVersion: version,
	}
	return out, nil
}
