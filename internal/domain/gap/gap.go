// Package gap compares a role's skill requirements with the user's learning records.
package gap

import (
	"context"
	"sort"

	"github.com/okian/plotpath/internal/domain/skill"
	"github.com/okian/plotpath/internal/domain/skillgraph"
)

// DefaultEscalationThreshold is how many other gaps a preferred gap must
// unlock before it is treated as critical.
const DefaultEscalationThreshold = 2

// Severity ranks a gap.
type Severity string

const (
	Critical  Severity = "CRITICAL"
	Important Severity = "IMPORTANT"
)

// Gap is a requirement the user has not met.
type Gap struct {
	Skill    string
	Level    skill.Level
	Severity Severity
	// Tracked is false when the user has no learning record for the skill.
	Tracked bool
	Status  skill.Status
	// Priority is nil when ease, demand or passion is unknown.
	Priority *float64
	// Unlocks counts the other gap skills that require this one.
	Unlocks   int
	Escalated bool
}

// Ratio is met over total for one requirement level.
type Ratio struct {
	Met   int
	Total int
}

// Fraction returns Met/Total, or 1 when there is nothing to meet.
func (r Ratio) Fraction() float64 {
	if r.Total == 0 {
		return 1
	}
	return float64(r.Met) / float64(r.Total)
}

// Report is the derived match summary for a role.
type Report struct {
	Role           string
	Match          float64
	RequiredMatch  float64
	PreferredMatch float64
	Required       Ratio
	Preferred      Ratio
	// Gaps are ordered critical first, then by learning order.
	Gaps          []Gap
	LearningOrder []string
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithEscalationThreshold overrides DefaultEscalationThreshold. Values below 1 are ignored.
func WithEscalationThreshold(n int) Option {
	return func(a *Analyzer) {
		if n >= 1 {
			a.threshold = n
		}
	}
}

// Analyzer builds gap reports against a skill graph.
type Analyzer struct {
	graph     *skillgraph.Graph
	threshold int
}

// NewAnalyzer creates an analyzer over graph.
func NewAnalyzer(graph *skillgraph.Graph, opts ...Option) *Analyzer {
	a := &Analyzer{graph: graph, threshold: DefaultEscalationThreshold}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Threshold returns the escalation threshold in use.
func (a *Analyzer) Threshold() int { return a.threshold }

// Analyze builds the report for role. learnings is keyed by skill name in any
// spelling. Every required skill must exist in the graph.
func (a *Analyzer) Analyze(_ context.Context, role string, reqs []skill.Requirement, learnings map[string]skill.Learning) (Report, error) {
	if len(reqs) == 0 {
		// Nothing to meet: vacuously a full match.
		return Report{
			Role:           role,
			Match:          1,
			RequiredMatch:  1,
			PreferredMatch: 1,
			Gaps:           []Gap{},
			LearningOrder:  []string{},
		}, nil
	}
	if err := skill.ValidateRequirements(reqs); err != nil {
		return Report{}, err
	}

	byKey := make(map[string]skill.Learning, len(learnings))
	for name, l := range learnings {
		byKey[skill.Key(name)] = l
	}

	rep := Report{Role: role}
	gaps := make(map[string]*Gap)
	var gapNames []string
	for _, r := range reqs {
		node, ok := a.graph.Skill(r.Skill)
		if !ok {
			return Report{}, &skillgraph.UnknownSkillError{Skill: skill.Normalize(r.Skill)}
		}
		name := node.Name
		ratio := &rep.Preferred
		if r.Level == skill.Required {
			ratio = &rep.Required
		}
		ratio.Total++

		l, tracked := byKey[skill.Key(name)]
		if tracked && l.Status.Met() {
			ratio.Met++
			continue
		}
		g := &Gap{Skill: name, Level: r.Level, Tracked: tracked, Severity: Important}
		if r.Level == skill.Required {
			g.Severity = Critical
		}
		if tracked {
			g.Status = l.Status
			if p, ok := l.Priority(); ok {
				g.Priority = &p
			}
		}
		gaps[skill.Key(name)] = g
		gapNames = append(gapNames, name)
	}

	rep.RequiredMatch = rep.Required.Fraction()
	rep.PreferredMatch = rep.Preferred.Fraction()
	rep.Match = Ratio{
		Met:   rep.Required.Met + rep.Preferred.Met,
		Total: rep.Required.Total + rep.Preferred.Total,
	}.Fraction()

	for _, name := range gapNames {
		deps, err := a.graph.Dependents(name, gapNames)
		if err != nil {
			return Report{}, err
		}
		g := gaps[skill.Key(name)]
		g.Unlocks = len(deps)
		if g.Level == skill.Preferred && g.Unlocks >= a.threshold {
			g.Severity = Critical
			g.Escalated = true
		}
	}

	order, err := a.learningOrder(gapNames, gaps)
	if err != nil {
		return Report{}, err
	}
	rep.LearningOrder = order

	position := make(map[string]int, len(order))
	for i, name := range order {
		position[skill.Key(name)] = i
	}
	rep.Gaps = make([]Gap, 0, len(gaps))
	for _, g := range gaps {
		rep.Gaps = append(rep.Gaps, *g)
	}
	sort.Slice(rep.Gaps, func(i, j int) bool {
		x, y := rep.Gaps[i], rep.Gaps[j]
		if x.Severity != y.Severity {
			return x.Severity == Critical
		}
		return position[skill.Key(x.Skill)] < position[skill.Key(y.Skill)]
	})
	return rep, nil
}

// learningOrder is the topological order of the gap set, stable-sorted by
// depth tier and then by descending priority with unknown priorities last.
func (a *Analyzer) learningOrder(names []string, gaps map[string]*Gap) ([]string, error) {
	order, err := a.graph.TopologicalOrder(names)
	if err != nil {
		return nil, err
	}
	depths, err := a.graph.Depths(names)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(order, func(i, j int) bool {
		di, dj := depths[order[i]], depths[order[j]]
		if di != dj {
			return di < dj
		}
		pi, pj := gaps[skill.Key(order[i])].Priority, gaps[skill.Key(order[j])].Priority
		switch {
		case pi == nil:
			return false
		case pj == nil:
			return true
		default:
			return *pi > *pj
		}
	})
	return order, nil
}
