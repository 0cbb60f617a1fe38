package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/okian/plotpath/internal/adapters/extraction"
	"github.com/okian/plotpath/internal/app"
	"github.com/okian/plotpath/internal/config"
	"github.com/okian/plotpath/internal/domain/research"
	"github.com/okian/plotpath/internal/domain/skill"
	"github.com/okian/plotpath/internal/domain/types"
	"github.com/okian/plotpath/pkg/logger"
)

const researchWait = 10 * time.Second

var (
	scenarioFile string
	outputFormat string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run the engine offline over a YAML scenario and print gap reports and verdicts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		cfg, log, err := setup(ctx)
		if err != nil {
			return err
		}
		sc, err := readScenario(scenarioFile)
		if err != nil {
			return err
		}
		return evaluate(ctx, cfg, log, sc, cmd.OutOrStdout(), outputFormat)
	},
}

func init() {
	evaluateCmd.Flags().StringVarP(&scenarioFile, "file", "f", "", "scenario YAML file")
	evaluateCmd.Flags().StringVarP(&outputFormat, "output", "o", "json", "json or yaml")
	_ = evaluateCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(evaluateCmd)
}

// scenario is the offline input: the user's skills and learning records,
// what is known about employers, and the roles to evaluate.
type scenario struct {
	// Now pins the clock; empty means the current time.
	Now       string                `yaml:"now"`
	Factors   []config.FactorConfig `yaml:"factors"`
	Skills    []scenarioSkill       `yaml:"skills"`
	Learnings []scenarioLearning    `yaml:"learnings"`
	Findings  []scenarioFinding     `yaml:"findings"`
	// Research answers are served by the static oracle through the worker pool.
	Research []scenarioFinding `yaml:"research"`
	Roles    []scenarioRole    `yaml:"roles"`
}

type scenarioSkill struct {
	Name          string   `yaml:"name"`
	Category      string   `yaml:"category"`
	Prerequisites []string `yaml:"prerequisites"`
}

type scenarioLearning struct {
	Skill   string `yaml:"skill"`
	Status  string `yaml:"status"`
	Ease    *int   `yaml:"ease"`
	Demand  *int   `yaml:"demand"`
	Passion *int   `yaml:"passion"`
}

type scenarioFinding struct {
	Entity   string `yaml:"entity"`
	Factor   string `yaml:"factor"`
	Score    int    `yaml:"score"`
	Evidence string `yaml:"evidence"`
	// AgeDays backdates the finding relative to now.
	AgeDays int `yaml:"age_days"`
}

type scenarioRole struct {
	Name      string   `yaml:"name"`
	Entity    string   `yaml:"entity"`
	Required  []string `yaml:"required"`
	Preferred []string `yaml:"preferred"`
	// Posting is parsed for requirements when Required and Preferred are empty.
	Posting string `yaml:"posting"`
}

// roleResult is what evaluate prints per role.
type roleResult struct {
	Role    types.RoleView    `json:"role"`
	Gap     types.GapView     `json:"gap"`
	Verdict types.VerdictView `json:"verdict"`
}

type evaluation struct {
	Desirability []types.DesirabilityView `json:"desirability"`
	Roles        []roleResult             `json:"roles"`
}

func readScenario(path string) (scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return scenario{}, fmt.Errorf("read scenario: %w", err)
	}
	return parseScenario(raw)
}

func parseScenario(raw []byte) (scenario, error) {
	var sc scenario
	dec := yaml.NewDecoder(strings.NewReader(string(raw)))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil && !errors.Is(err, io.EOF) {
		return scenario{}, fmt.Errorf("parse scenario: %w", err)
	}
	return sc, nil
}

func (sc scenario) clock() (func() time.Time, error) {
	if sc.Now == "" {
		return time.Now, nil
	}
	now, err := time.Parse(time.RFC3339, sc.Now)
	if err != nil {
		return nil, fmt.Errorf("scenario now: %w", err)
	}
	return func() time.Time { return now }, nil
}

func evaluate(ctx context.Context, cfg *config.Config, log logger.Logger, sc scenario, out io.Writer, format string) error {
	if format != "json" && format != "yaml" {
		return fmt.Errorf("unknown output format %q", format)
	}
	now, err := sc.clock()
	if err != nil {
		return err
	}
	if len(sc.Factors) > 0 {
		cfg.Factors = sc.Factors
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	opts, err := app.ConfigOptions(cfg)
	if err != nil {
		return err
	}

	oracle := extraction.NewStaticResearcher()
	oracle.SetClock(now)
	for _, r := range sc.Research {
		oracle.Set(research.EntityID(r.Entity), r.Factor, r.Score, r.Evidence)
	}
	svc := app.New(append(opts,
		app.WithLogger(log.Named("evaluate")),
		app.WithClock(now),
		app.WithResearcher(oracle),
		app.WithExtractor(extraction.LineExtractor{}),
	)...)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	if err := addSkills(ctx, svc, sc.Skills); err != nil {
		return err
	}
	for _, l := range sc.Learnings {
		u := app.LearningUpdate{Skill: l.Skill, Ease: l.Ease, Demand: l.Demand, Passion: l.Passion}
		if l.Status != "" {
			st, err := skill.ParseStatus(l.Status)
			if err != nil {
				return fmt.Errorf("learning %q: %w", l.Skill, err)
			}
			u.Status = &st
		}
		if _, err := svc.SetLearning(ctx, u); err != nil {
			return fmt.Errorf("learning %q: %w", l.Skill, err)
		}
	}
	for _, f := range sc.Findings {
		_, err := svc.RecordFinding(ctx, research.Finding{
			Entity:     f.Entity,
			Factor:     f.Factor,
			Score:      f.Score,
			Evidence:   f.Evidence,
			Source:     "scenario",
			CapturedAt: now().Add(-time.Duration(f.AgeDays) * 24 * time.Hour),
		})
		if err != nil {
			return fmt.Errorf("finding %s/%s: %w", f.Entity, f.Factor, err)
		}
	}
	if err := runResearch(ctx, svc, sc.Research); err != nil {
		return err
	}

	var result evaluation
	entities := map[string]struct{}{}
	for _, r := range sc.Roles {
		res, err := evaluateRole(ctx, svc, r)
		if err != nil {
			return err
		}
		if res.Role.Entity != "" {
			entities[res.Role.Entity] = struct{}{}
		}
		result.Roles = append(result.Roles, res)
	}
	for _, f := range sc.Findings {
		entities[research.EntityID(f.Entity)] = struct{}{}
	}
	ids := make([]string, 0, len(entities))
	for id := range entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		o, err := svc.Desirability(ctx, id)
		if err != nil {
			return fmt.Errorf("desirability %s: %w", id, err)
		}
		result.Desirability = append(result.Desirability, types.NewDesirabilityView(o))
	}

	if format == "yaml" {
		return writeYAML(out, result)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// writeYAML goes through JSON first so YAML keys match the API field names.
func writeYAML(out io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func addSkills(ctx context.Context, svc *app.Service, skills []scenarioSkill) error {
	batch := make([]skill.Skill, 0, len(skills))
	for _, s := range skills {
		batch = append(batch, skill.Skill{
			Name:          s.Name,
			Category:      skill.Category(s.Category),
			Prerequisites: s.Prerequisites,
		})
	}
	if _, err := svc.LoadSkills(ctx, batch); err != nil {
		return fmt.Errorf("skills: %w", err)
	}
	return nil
}

// runResearch queues research for every entity with oracle answers and waits
// for the workers to finish.
func runResearch(ctx context.Context, svc *app.Service, answers []scenarioFinding) error {
	seen := map[string]struct{}{}
	for _, a := range answers {
		id := research.EntityID(a.Entity)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if _, err := svc.RequestResearch(ctx, id); err != nil {
			return fmt.Errorf("research %s: %w", id, err)
		}
	}
	deadline := time.Now().Add(researchWait)
	for svc.InFlight() > 0 {
		if time.Now().After(deadline) {
			return fmt.Errorf("research still in flight after %s", researchWait)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
	return nil
}

func evaluateRole(ctx context.Context, svc *app.Service, r scenarioRole) (roleResult, error) {
	var (
		role skill.Role
		err  error
	)
	if len(r.Required)+len(r.Preferred) == 0 && strings.TrimSpace(r.Posting) != "" {
		role, err = svc.ExtractRequirements(ctx, r.Name, r.Entity, r.Posting)
	} else {
		role, err = svc.SetRole(ctx, skill.Role{
			Name:         r.Name,
			Entity:       r.Entity,
			Requirements: skill.BuildRequirements(r.Name, r.Required, r.Preferred),
		})
	}
	if err != nil {
		return roleResult{}, fmt.Errorf("role %q: %w", r.Name, err)
	}
	rep, err := svc.Gap(ctx, role.Name)
	if err != nil {
		return roleResult{}, fmt.Errorf("gap %q: %w", role.Name, err)
	}
	d, err := svc.Verdict(ctx, role.Name)
	if err != nil {
		return roleResult{}, fmt.Errorf("verdict %q: %w", role.Name, err)
	}
	return roleResult{Role: types.NewRoleView(role), Gap: types.NewGapView(rep), Verdict: types.NewVerdictView(d)}, nil
}
