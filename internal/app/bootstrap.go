package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/okian/plotpath/internal/domain/factor"
	"github.com/okian/plotpath/internal/domain/research"
	"github.com/okian/plotpath/internal/domain/skill"
	"github.com/okian/plotpath/pkg/logger"
)

type snapshot struct {
	factors   []factor.Factor
	skills    []skill.Skill
	learnings []skill.Learning
	roles     []skill.Role
	findings  []research.Finding
}

// bootstrap loads persisted state in parallel and applies it in dependency
// order. Callers hold s.mu.
func (s *Service) bootstrap(ctx context.Context) error {
	if s.loader == nil {
		return nil
	}
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { snap.factors, err = s.loader.LoadFactors(gctx); return wrapLoad("factors", err) })
	g.Go(func() (err error) { snap.skills, err = s.loader.LoadSkills(gctx); return wrapLoad("skills", err) })
	g.Go(func() (err error) { snap.learnings, err = s.loader.LoadLearnings(gctx); return wrapLoad("learnings", err) })
	g.Go(func() (err error) { snap.roles, err = s.loader.LoadRoles(gctx); return wrapLoad("roles", err) })
	g.Go(func() (err error) { snap.findings, err = s.loader.LoadFindings(gctx); return wrapLoad("findings", err) })
	if err := g.Wait(); err != nil {
		return err
	}

	for _, f := range snap.factors {
		if err := s.applyFactor(f); err != nil {
			return fmt.Errorf("bootstrap factor %q: %w", f.Key, err)
		}
	}
	if err := s.graph.Load(snap.skills); err != nil {
		return fmt.Errorf("bootstrap skills: %w", err)
	}
	for _, l := range snap.learnings {
		if err := l.Validate(); err != nil {
			s.logger.Warn(ctx, "skipping invalid learning", logger.String("skill", l.Skill), logger.Error(err))
			continue
		}
		s.learnings[skill.Key(l.Skill)] = l
	}
	for _, r := range snap.roles {
		for _, req := range r.Requirements {
			if s.graph.Has(req.Skill) {
				continue
			}
			if err := s.graph.AddSkill(skill.Skill{Name: req.Skill}); err != nil {
				return fmt.Errorf("bootstrap role %q: %w", r.Name, err)
			}
		}
		s.roles[r.Name] = r
	}
	dropped := 0
	for _, f := range snap.findings {
		if _, err := s.cache.Put(ctx, f); err != nil {
			dropped++
			s.logger.Warn(ctx, "skipping persisted finding",
				logger.String("entity", f.Entity), logger.String("factor", f.Factor), logger.Error(err))
		}
	}
	s.logger.Info(ctx, "bootstrap complete",
		logger.Int("factors", len(snap.factors)),
		logger.Int("skills", len(snap.skills)),
		logger.Int("learnings", len(s.learnings)),
		logger.Int("roles", len(snap.roles)),
		logger.Int("findings", len(snap.findings)-dropped),
	)
	return nil
}

// applyFactor registers a persisted factor or, when it is already seeded,
// takes its weight and TTL.
func (s *Service) applyFactor(f factor.Factor) error {
	if _, ok := s.registry.Lookup(f.Key); !ok {
		return s.registry.Register(f)
	}
	if err := s.registry.SetWeight(f.Key, f.Weight); err != nil {
		return err
	}
	return s.registry.SetTTL(f.Key, f.TTL)
}

func wrapLoad(what string, err error) error {
	if err != nil {
		return fmt.Errorf("load %s: %w", what, err)
	}
	return nil
}
