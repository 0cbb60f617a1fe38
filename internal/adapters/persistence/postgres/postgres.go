// Package postgres persists engine configuration and caches in PostgreSQL.
// Every write is an idempotent upsert so replays are safe.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/plotpath/internal/domain/factor"
	"github.com/okian/plotpath/internal/domain/research"
	"github.com/okian/plotpath/internal/domain/skill"
	"github.com/okian/plotpath/internal/domain/types"
	"github.com/okian/plotpath/pkg/metrics"
)

const pingTimeout = 5 * time.Second

// ErrNotConnected is returned by a Store without a pool.
var ErrNotConnected = errors.New("postgres store not connected")

// Store implements the engine's Loader and Writer over pgxpool.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects, pings and returns a Store. maxConns <= 0 keeps the pgx default.
func Open(ctx context.Context, dsn string, maxConns int) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		pcfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	pingCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, pingTimeout)
		defer cancel()
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return ErrNotConnected
	}
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) exec(ctx context.Context, kind, query string, args ...any) error {
	if s == nil || s.pool == nil {
		return ErrNotConnected
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		metrics.RecordPersistError(kind)
		return fmt.Errorf("%s: %w", kind, err)
	}
	return nil
}

// LoadFactors returns persisted factor configuration ordered by key.
func (s *Store) LoadFactors(ctx context.Context) ([]factor.Factor, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConnected
	}
	rows, err := s.pool.Query(ctx, `SELECT key, name, volatility, ttl_seconds, weight, instructions FROM factors ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("load factors: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (factor.Factor, error) {
		var (
			f          factor.Factor
			volatility string
			ttlSeconds int64
		)
		if err := row.Scan(&f.Key, &f.Name, &volatility, &ttlSeconds, &f.Weight, &f.Instructions); err != nil {
			return f, err
		}
		v, err := factor.ParseVolatility(volatility)
		if err != nil {
			return f, err
		}
		f.Volatility = v
		f.TTL = time.Duration(ttlSeconds) * time.Second
		return f, nil
	})
}

// SaveFactor upserts a factor.
func (s *Store) SaveFactor(ctx context.Context, f factor.Factor) error {
	return s.exec(ctx, "save_factor", `
		INSERT INTO factors (key, name, volatility, ttl_seconds, weight, instructions)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key) DO UPDATE SET
			name = EXCLUDED.name,
			volatility = EXCLUDED.volatility,
			ttl_seconds = EXCLUDED.ttl_seconds,
			weight = EXCLUDED.weight,
			instructions = EXCLUDED.instructions`,
		f.Key, f.Name, string(f.Volatility), int64(f.TTL/time.Second), f.Weight, f.Instructions)
}

// LoadSkills returns every skill with its direct prerequisites, ordered by key.
func (s *Store) LoadSkills(ctx context.Context) ([]skill.Skill, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConnected
	}
	rows, err := s.pool.Query(ctx, `
		SELECT s.name, s.category, COALESCE(array_agg(p.name ORDER BY p.key) FILTER (WHERE p.key IS NOT NULL), '{}')
		FROM skills s
		LEFT JOIN skill_prerequisites sp ON sp.skill = s.key
		LEFT JOIN skills p ON p.key = sp.prerequisite
		GROUP BY s.key, s.name, s.category
		ORDER BY s.key`)
	if err != nil {
		return nil, fmt.Errorf("load skills: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (skill.Skill, error) {
		var (
			sk       skill.Skill
			category string
		)
		if err := row.Scan(&sk.Name, &category, &sk.Prerequisites); err != nil {
			return sk, err
		}
		sk.Category = skill.Category(category)
		return sk, nil
	})
}

// SaveSkill upserts a skill and replaces its prerequisite set. Prerequisites
// must already be saved.
func (s *Store) SaveSkill(ctx context.Context, sk skill.Skill) error {
	if s == nil || s.pool == nil {
		return ErrNotConnected
	}
	key := skill.Key(sk.Name)
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO skills (key, name, category) VALUES ($1, $2, $3)
			ON CONFLICT (key) DO UPDATE SET name = EXCLUDED.name, category = EXCLUDED.category`,
			key, skill.Normalize(sk.Name), string(sk.Category)); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM skill_prerequisites WHERE skill = $1`, key); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for _, p := range sk.Prerequisites {
			batch.Queue(`INSERT INTO skill_prerequisites (skill, prerequisite) VALUES ($1, $2) ON CONFLICT DO NOTHING`, key, skill.Key(p))
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		metrics.RecordPersistError("save_skill")
		return fmt.Errorf("save_skill: %w", err)
	}
	return nil
}

// LoadLearnings returns every learning record ordered by skill.
func (s *Store) LoadLearnings(ctx context.Context) ([]skill.Learning, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConnected
	}
	rows, err := s.pool.Query(ctx, `SELECT skill, status, ease, demand, passion FROM learnings ORDER BY skill`)
	if err != nil {
		return nil, fmt.Errorf("load learnings: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (skill.Learning, error) {
		var (
			l      skill.Learning
			status string
		)
		if err := row.Scan(&l.Skill, &status, &l.Ease, &l.Demand, &l.Passion); err != nil {
			return l, err
		}
		st, err := skill.ParseStatus(status)
		if err != nil {
			return l, err
		}
		l.Status = st
		return l, nil
	})
}

// SaveLearning upserts a learning record.
func (s *Store) SaveLearning(ctx context.Context, l skill.Learning) error {
	return s.exec(ctx, "save_learning", `
		INSERT INTO learnings (skill, status, ease, demand, passion)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (skill) DO UPDATE SET
			status = EXCLUDED.status,
			ease = EXCLUDED.ease,
			demand = EXCLUDED.demand,
			passion = EXCLUDED.passion`,
		skill.Normalize(l.Skill), l.Status.String(), l.Ease, l.Demand, l.Passion)
}

// LoadRoles returns every role with its requirements in saved order.
func (s *Store) LoadRoles(ctx context.Context) ([]skill.Role, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConnected
	}
	rows, err := s.pool.Query(ctx, `SELECT name, entity FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	roles, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (skill.Role, error) {
		var r skill.Role
		err := row.Scan(&r.Name, &r.Entity)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}

	rows, err = s.pool.Query(ctx, `SELECT role, skill, level FROM role_requirements ORDER BY role, pos`)
	if err != nil {
		return nil, fmt.Errorf("load role requirements: %w", err)
	}
	reqs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (skill.Requirement, error) {
		var (
			r     skill.Requirement
			level string
		)
		if err := row.Scan(&r.Role, &r.Skill, &level); err != nil {
			return r, err
		}
		lv, err := skill.ParseLevel(level)
		r.Level = lv
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("load role requirements: %w", err)
	}

	index := make(map[string]int, len(roles))
	for i, r := range roles {
		index[r.Name] = i
	}
	for _, req := range reqs {
		if i, ok := index[req.Role]; ok {
			roles[i].Requirements = append(roles[i].Requirements, req)
		}
	}
	return roles, nil
}

// SaveRole upserts a role and replaces its requirements.
func (s *Store) SaveRole(ctx context.Context, r skill.Role) error {
	if s == nil || s.pool == nil {
		return ErrNotConnected
	}
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO roles (name, entity) VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET entity = EXCLUDED.entity`, r.Name, r.Entity); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_requirements WHERE role = $1`, r.Name); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for i, req := range r.Requirements {
			batch.Queue(`INSERT INTO role_requirements (role, skill, level, pos) VALUES ($1, $2, $3, $4)`,
				r.Name, req.Skill, string(req.Level), i)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		metrics.RecordPersistError("save_role")
		return fmt.Errorf("save_role: %w", err)
	}
	return nil
}

// LoadFindings returns every cached finding.
func (s *Store) LoadFindings(ctx context.Context) ([]research.Finding, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConnected
	}
	rows, err := s.pool.Query(ctx, `
		SELECT entity, factor, score, evidence, source, captured_at
		FROM research_findings ORDER BY entity, factor`)
	if err != nil {
		return nil, fmt.Errorf("load findings: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (research.Finding, error) {
		var f research.Finding
		err := row.Scan(&f.Entity, &f.Factor, &f.Score, &f.Evidence, &f.Source, &f.CapturedAt)
		f.CapturedAt = f.CapturedAt.UTC()
		return f, err
	})
}

// SaveFinding upserts a finding. An older finding never overwrites a newer row.
func (s *Store) SaveFinding(ctx context.Context, f research.Finding) error {
	return s.exec(ctx, "save_finding", `
		INSERT INTO research_findings (entity, factor, score, evidence, source, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (entity, factor) DO UPDATE SET
			score = EXCLUDED.score,
			evidence = EXCLUDED.evidence,
			source = EXCLUDED.source,
			captured_at = EXCLUDED.captured_at
		WHERE research_findings.captured_at <= EXCLUDED.captured_at`,
		f.Entity, f.Factor, f.Score, f.Evidence, f.Source, f.CapturedAt)
}

// DeleteFinding removes a finding after an invalidation or eviction.
func (s *Store) DeleteFinding(ctx context.Context, entity, key string) error {
	return s.exec(ctx, "delete_finding", `DELETE FROM research_findings WHERE entity = $1 AND factor = $2`, entity, key)
}

// SaveDesirability upserts the latest desirability snapshot.
func (s *Store) SaveDesirability(ctx context.Context, v types.DesirabilityView) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode desirability: %w", err)
	}
	return s.exec(ctx, "save_desirability", `
		INSERT INTO desirability_scores (entity, payload, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (entity) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		v.Entity, payload)
}

// SaveGapReport upserts the latest gap report.
func (s *Store) SaveGapReport(ctx context.Context, v types.GapView) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode gap report: %w", err)
	}
	return s.exec(ctx, "save_gap_report", `
		INSERT INTO gap_reports (role, payload, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (role) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		v.Role, payload)
}
