package app

import (
	"context"

	"github.com/okian/plotpath/internal/domain/factor"
	"github.com/okian/plotpath/internal/domain/research"
	"github.com/okian/plotpath/internal/domain/skill"
	"github.com/okian/plotpath/internal/domain/types"
)

// Loader bulk-loads user configuration and cached findings at Start.
type Loader interface {
	LoadFactors(ctx context.Context) ([]factor.Factor, error)
	LoadSkills(ctx context.Context) ([]skill.Skill, error)
	LoadLearnings(ctx context.Context) ([]skill.Learning, error)
	LoadRoles(ctx context.Context) ([]skill.Role, error)
	LoadFindings(ctx context.Context) ([]research.Finding, error)
}

// Writer receives idempotent upserts of accepted changes and deletes for
// dropped findings.
type Writer interface {
	SaveFactor(ctx context.Context, f factor.Factor) error
	SaveSkill(ctx context.Context, s skill.Skill) error
	SaveLearning(ctx context.Context, l skill.Learning) error
	SaveRole(ctx context.Context, r skill.Role) error
	SaveFinding(ctx context.Context, f research.Finding) error
	DeleteFinding(ctx context.Context, entity, factor string) error
	SaveDesirability(ctx context.Context, v types.DesirabilityView) error
	SaveGapReport(ctx context.Context, v types.GapView) error
}

// Publisher exposes snapshots to presentation. The redis snapshot cache implements it.
type Publisher interface {
	Put(ctx context.Context, kind, id string, v any) error
	Delete(ctx context.Context, id string, kinds ...string) error
	Flush(ctx context.Context, kind string) error
}

// Snapshot kinds handed to the Publisher.
const (
	SnapshotDesirability = "desirability"
	SnapshotGap          = "gap"
	SnapshotVerdict      = "verdict"
)
