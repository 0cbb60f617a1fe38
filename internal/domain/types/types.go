// Package types contains the read-only JSON views handed to presentation.
package types

import (
	"time"

	"github.com/okian/plotpath/internal/domain/factor"
	"github.com/okian/plotpath/internal/domain/gap"
	"github.com/okian/plotpath/internal/domain/scoring"
	"github.com/okian/plotpath/internal/domain/skill"
	"github.com/okian/plotpath/internal/domain/verdict"
)

// FactorScoreView is one factor inside a desirability snapshot.
type FactorScoreView struct {
	Factor     string    `json:"factor"`
	Score      int       `json:"score"`
	Weight     float64   `json:"weight"`
	CapturedAt time.Time `json:"captured_at"`
}

// DesirabilityView is either a complete score or the list of stale factors.
type DesirabilityView struct {
	Entity          string            `json:"entity"`
	Complete        bool              `json:"complete"`
	Overall         *float64          `json:"overall,omitempty"`
	Confidence      *float64          `json:"confidence,omitempty"`
	Factors         []FactorScoreView `json:"factors,omitempty"`
	Missing         []string          `json:"missing,omitempty"`
	ComputedAt      *time.Time        `json:"computed_at,omitempty"`
	RegistryVersion uint64            `json:"registry_version,omitempty"`
}

// NewDesirabilityView converts a scoring outcome.
func NewDesirabilityView(o scoring.Outcome) DesirabilityView {
	v := DesirabilityView{Entity: o.Entity, Complete: o.Complete()}
	if !v.Complete {
		v.Missing = append([]string{}, o.Missing...)
		return v
	}
	s := o.Score
	overall, confidence, at := s.Overall, s.Confidence, s.ComputedAt.UTC()
	v.Overall = &overall
	v.Confidence = &confidence
	v.ComputedAt = &at
	v.RegistryVersion = s.RegistryVersion
	v.Factors = make([]FactorScoreView, 0, len(s.Factors))
	for _, f := range s.Factors {
		v.Factors = append(v.Factors, FactorScoreView{
			Factor:     f.Factor,
			Score:      f.Score,
			Weight:     f.Weight,
			CapturedAt: f.CapturedAt.UTC(),
		})
	}
	return v
}

// RatioView is met over total.
type RatioView struct {
	Met   int `json:"met"`
	Total int `json:"total"`
}

// GapItemView is a single gap.
type GapItemView struct {
	Skill     string   `json:"skill"`
	Level     string   `json:"level"`
	Severity  string   `json:"severity"`
	Tracked   bool     `json:"tracked"`
	Status    string   `json:"status,omitempty"`
	Priority  *float64 `json:"priority,omitempty"`
	Unlocks   int      `json:"unlocks"`
	Escalated bool     `json:"escalated"`
}

// GapView is a gap report. Percentages are in [0,100] with two decimals.
type GapView struct {
	Role          string        `json:"role"`
	MatchPct      float64       `json:"match_pct"`
	RequiredPct   float64       `json:"required_pct"`
	PreferredPct  float64       `json:"preferred_pct"`
	Required      RatioView     `json:"required"`
	Preferred     RatioView     `json:"preferred"`
	Gaps          []GapItemView `json:"gaps"`
	LearningOrder []string      `json:"learning_order"`
}

// NewGapView converts a gap report.
func NewGapView(r gap.Report) GapView {
	v := GapView{
		Role:          r.Role,
		MatchPct:      pct(r.Match),
		RequiredPct:   pct(r.RequiredMatch),
		PreferredPct:  pct(r.PreferredMatch),
		Required:      RatioView{Met: r.Required.Met, Total: r.Required.Total},
		Preferred:     RatioView{Met: r.Preferred.Met, Total: r.Preferred.Total},
		Gaps:          make([]GapItemView, 0, len(r.Gaps)),
		LearningOrder: append([]string{}, r.LearningOrder...),
	}
	for _, g := range r.Gaps {
		item := GapItemView{
			Skill:     g.Skill,
			Level:     string(g.Level),
			Severity:  string(g.Severity),
			Tracked:   g.Tracked,
			Unlocks:   g.Unlocks,
			Escalated: g.Escalated,
		}
		if g.Tracked {
			item.Status = g.Status.String()
		}
		if g.Priority != nil {
			p := scoring.Round2(*g.Priority)
			item.Priority = &p
		}
		v.Gaps = append(v.Gaps, item)
	}
	return v
}

// VerdictView is a recommendation for one role.
type VerdictView struct {
	Role         string   `json:"role"`
	Entity       string   `json:"entity"`
	Verdict      string   `json:"verdict"`
	Desirability *float64 `json:"desirability,omitempty"`
	MatchPct     float64  `json:"match_pct"`
	RequiredPct  float64  `json:"required_pct"`
	Missing      []string `json:"missing,omitempty"`
	Rationale    []string `json:"rationale"`
}

// NewVerdictView converts a decision.
func NewVerdictView(d verdict.Decision) VerdictView {
	v := VerdictView{
		Role:        d.Role,
		Entity:      d.Entity,
		Verdict:     string(d.Verdict),
		MatchPct:    pct(d.Match),
		RequiredPct: pct(d.RequiredMatch),
		Rationale:   append([]string{}, d.Rationale...),
	}
	if d.Desirability != nil {
		x := *d.Desirability
		v.Desirability = &x
	}
	if len(d.Missing) > 0 {
		v.Missing = append([]string{}, d.Missing...)
	}
	return v
}

// FactorView is a registered factor. TTLHours is zero when the class TTL applies.
type FactorView struct {
	Key          string  `json:"key"`
	Name         string  `json:"name"`
	Volatility   string  `json:"volatility"`
	Weight       float64 `json:"weight"`
	TTLHours     float64 `json:"ttl_hours"`
	Instructions string  `json:"instructions,omitempty"`
}

// NewFactorView converts a factor.
func NewFactorView(f factor.Factor) FactorView {
	return FactorView{
		Key:          f.Key,
		Name:         f.Name,
		Volatility:   string(f.Volatility),
		Weight:       f.Weight,
		TTLHours:     f.TTL.Hours(),
		Instructions: f.Instructions,
	}
}

// SkillView is a skill graph node.
type SkillView struct {
	Name          string   `json:"name"`
	Category      string   `json:"category,omitempty"`
	Prerequisites []string `json:"prerequisites"`
}

// NewSkillView converts a skill.
func NewSkillView(s skill.Skill) SkillView {
	return SkillView{
		Name:          s.Name,
		Category:      string(s.Category),
		Prerequisites: append([]string{}, s.Prerequisites...),
	}
}

// LearningView is a learning record. Priority is omitted while a rating is unknown.
type LearningView struct {
	Skill    string   `json:"skill"`
	Status   string   `json:"status"`
	Ease     *int     `json:"ease,omitempty"`
	Demand   *int     `json:"demand,omitempty"`
	Passion  *int     `json:"passion,omitempty"`
	Priority *float64 `json:"priority,omitempty"`
}

// NewLearningView converts a learning record.
func NewLearningView(l skill.Learning) LearningView {
	v := LearningView{
		Skill:   l.Skill,
		Status:  l.Status.String(),
		Ease:    l.Ease,
		Demand:  l.Demand,
		Passion: l.Passion,
	}
	if p, ok := l.Priority(); ok {
		p = scoring.Round2(p)
		v.Priority = &p
	}
	return v
}

// RequirementView is one skill a role asks for.
type RequirementView struct {
	Skill string `json:"skill"`
	Level string `json:"level"`
}

// RoleView is a stored role.
type RoleView struct {
	Name         string            `json:"name"`
	Entity       string            `json:"entity,omitempty"`
	Requirements []RequirementView `json:"requirements"`
}

// NewRoleView converts a role.
func NewRoleView(r skill.Role) RoleView {
	v := RoleView{Name: r.Name, Entity: r.Entity, Requirements: make([]RequirementView, 0, len(r.Requirements))}
	for _, req := range r.Requirements {
		v.Requirements = append(v.Requirements, RequirementView{Skill: req.Skill, Level: string(req.Level)})
	}
	return v
}

func pct(fraction float64) float64 {
	return scoring.Round2(fraction * 100)
}
