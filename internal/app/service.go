// Package app wires the engine components into the service used by the HTTP API and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/okian/plotpath/internal/adapters/extraction"
	"github.com/okian/plotpath/internal/adapters/mq/queue"
	"github.com/okian/plotpath/internal/adapters/mq/worker"
	"github.com/okian/plotpath/internal/adapters/repository"
	"github.com/okian/plotpath/internal/domain/dedupe"
	"github.com/okian/plotpath/internal/domain/factor"
	"github.com/okian/plotpath/internal/domain/gap"
	"github.com/okian/plotpath/internal/domain/model"
	"github.com/okian/plotpath/internal/domain/research"
	"github.com/okian/plotpath/internal/domain/scoring"
	"github.com/okian/plotpath/internal/domain/skill"
	"github.com/okian/plotpath/internal/domain/skillgraph"
	"github.com/okian/plotpath/internal/domain/types"
	"github.com/okian/plotpath/internal/domain/verdict"
	"github.com/okian/plotpath/pkg/logger"
	"github.com/okian/plotpath/pkg/metrics"
)

// Service owns the engine state for a single user.
type Service struct {
	mu sync.RWMutex

	registry   *factor.Registry
	graph      *skillgraph.Graph
	store      *repository.ShardedStore
	cache      *research.Cache
	aggregator *scoring.Aggregator
	analyzer   *gap.Analyzer
	policy     verdict.Policy
	tracker    dedupe.Tracker
	queue      *queue.InMemoryQueue
	pool       *worker.Pool

	learnings map[string]skill.Learning // keyed by skill.Key
	roles     map[string]skill.Role

	researcher extraction.Researcher
	extractor  extraction.RequirementExtractor
	loader     Loader
	writer     Writer
	publisher  Publisher

	workerCount     int
	queueSize       int
	dedupeSize      int
	shardCount      int
	researchTimeout time.Duration
	escalation      int
	seedFactors     []factor.Factor
	classTTL        map[factor.Volatility]time.Duration
	now             func() time.Time

	started bool
	cancel  context.CancelFunc
	logger  logger.Logger
}

// New constructs a Service. Nothing runs until Start.
func New(opts ...Option) *Service {
	s := &Service{
		policy:          verdict.DefaultPolicy(),
		learnings:       make(map[string]skill.Learning),
		roles:           make(map[string]skill.Role),
		workerCount:     runtime.NumCPU() * 2,
		queueSize:       10_000,
		dedupeSize:      50_000,
		shardCount:      16,
		researchTimeout: 30 * time.Second,
		escalation:      gap.DefaultEscalationThreshold,
		classTTL:        make(map[factor.Volatility]time.Duration),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the components, bootstraps from the Loader and starts the workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting engine")

	var regOpts []factor.Option
	for v, ttl := range s.classTTL {
		regOpts = append(regOpts, factor.WithClassTTL(v, ttl))
	}
	s.registry = factor.NewRegistry(regOpts...)
	for _, f := range s.seedFactors {
		if err := s.registry.Register(f); err != nil {
			return fmt.Errorf("register factor %q: %w", f.Key, err)
		}
	}
	s.graph = skillgraph.New()
	s.analyzer = gap.NewAnalyzer(s.graph, gap.WithEscalationThreshold(s.escalation))

	runCtx, cancel := context.WithCancel(ctx)
	s.store = repository.NewShardedStore(runCtx, repository.WithShardCount(s.shardCount))
	s.cache = research.NewCache(s.registry, s.store)
	s.aggregator = scoring.NewAggregator(s.cache)

	if err := s.bootstrap(ctx); err != nil {
		cancel()
		_ = s.store.Close()
		return err
	}

	s.tracker = dedupe.NewInMemoryTracker(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	if s.researcher != nil {
		s.pool = worker.NewPool(s.workerCount, s.queue, s.researcher, s.cache, s.tracker,
			worker.WithTimeout(s.researchTimeout),
			worker.WithClock(s.now),
			worker.WithOnStored(s.afterStore),
		)
		s.pool.Start(runCtx)
	}

	s.cancel = cancel
	s.started = true
	metrics.UpdateRegisteredSkills(s.graph.Len())
	metrics.UpdateTrackedEntities(len(s.cache.Entities(ctx)))
	s.logger.Info(ctx, "engine started",
		logger.Int("factors", s.registry.Len()),
		logger.Int("skills", s.graph.Len()),
		logger.Int("roles", len(s.roles)),
		logger.Int("findings", s.store.Count()),
		logger.Int("workers", s.workerCount),
		logger.Bool("research_enabled", s.pool != nil),
	)
	return nil
}

// Stop shuts down the workers and releases the store.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	pool, q, store, cancel := s.pool, s.queue, s.store, s.cancel
	s.mu.Unlock()

	// Workers call back into the service while draining, so the lock is not held here.
	ctx := context.Background()
	s.logger.Info(ctx, "stopping engine")
	if pool != nil {
		if err := pool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
		}
	} else {
		_ = q.Close()
	}
	if cancel != nil {
		cancel()
	}
	_ = store.Close()
	s.logger.Info(ctx, "engine stopped")
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

func entityID(name string) (string, error) {
	id := research.EntityID(name)
	if id == "" {
		return "", ErrInvalidEntity
	}
	return id, nil
}

// RecordFinding validates and stores an untrusted finding. It returns false
// when a newer finding for the pair is already cached.
func (s *Service) RecordFinding(ctx context.Context, f research.Finding) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	id, err := entityID(f.Entity)
	if err != nil {
		metrics.RecordFindingRejected("invalid_entity")
		return false, err
	}
	f.Entity = id
	if f.CapturedAt.IsZero() {
		f.CapturedAt = s.now()
	}
	f.CapturedAt = f.CapturedAt.UTC()

	stored, err := s.cache.Put(ctx, f)
	if err != nil {
		reason := "invalid"
		if errors.Is(err, factor.ErrUnknownFactor) {
			reason = "unknown_factor"
		} else if errors.Is(err, research.ErrInvalidScore) {
			reason = "invalid_score"
		}
		metrics.RecordFindingRejected(reason)
		return false, err
	}
	if !stored {
		metrics.RecordFindingRejected("older")
		return false, nil
	}
	s.afterStore(ctx, f)
	return true, nil
}

// afterStore mirrors a stored finding and drops snapshots that depended on the old one.
func (s *Service) afterStore(ctx context.Context, f research.Finding) {
	metrics.UpdateTrackedEntities(len(s.cache.Entities(ctx)))
	if s.writer != nil {
		if err := s.writer.SaveFinding(ctx, f); err != nil {
			s.logger.Error(ctx, "persist finding", logger.String("entity", f.Entity), logger.String("factor", f.Factor), logger.Error(err))
		}
	}
	s.dropEntitySnapshots(ctx, f.Entity)
}

func (s *Service) dropEntitySnapshots(ctx context.Context, entity string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Delete(ctx, entity, SnapshotDesirability); err != nil {
		s.logger.Warn(ctx, "drop snapshot", logger.String("entity", entity), logger.Error(err))
	}
	s.mu.RLock()
	var roles []string
	for name, r := range s.roles {
		if r.Entity == entity {
			roles = append(roles, name)
		}
	}
	s.mu.RUnlock()
	for _, name := range roles {
		_ = s.publisher.Delete(ctx, name, SnapshotVerdict)
	}
}

func (s *Service) flushSnapshots(ctx context.Context, kinds ...string) {
	if s.publisher == nil {
		return
	}
	for _, k := range kinds {
		if err := s.publisher.Flush(ctx, k); err != nil {
			s.logger.Warn(ctx, "flush snapshots", logger.String("kind", k), logger.Error(err))
		}
	}
}

// RequestResearch queues a task for every stale factor of entity that is not
// already in flight. It returns the tasks it queued.
func (s *Service) RequestResearch(ctx context.Context, entity string) ([]model.Task, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	// Without workers nothing would ever release a claim.
	if s.pool == nil {
		return nil, ErrNoResearcher
	}
	id, err := entityID(entity)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var queued []model.Task
	for _, key := range s.cache.StaleFactors(ctx, id, now) {
		f, err := s.registry.Factor(key)
		if err != nil {
			continue
		}
		t := model.NewTask(id, key, f.Instructions, now)
		switch err := s.tracker.Claim(ctx, t.Key()); {
		case errors.Is(err, dedupe.ErrInFlight):
			continue
		case err != nil:
			return queued, fmt.Errorf("%w: %v", ErrBackpressure, err)
		}
		if !s.queue.Enqueue(ctx, t) {
			s.tracker.Release(ctx, t.Key())
			return queued, ErrBackpressure
		}
		queued = append(queued, t)
	}
	metrics.UpdateResearchInFlight(int(s.tracker.Size()))
	s.logger.Debug(ctx, "research requested", logger.String("entity", id), logger.Int("queued", len(queued)))
	return queued, nil
}

// InFlight returns the number of research tasks queued or running.
func (s *Service) InFlight() int {
	if s.ready() != nil {
		return 0
	}
	return int(s.tracker.Size())
}

// Invalidate drops a finding so its factor is stale until researched again.
func (s *Service) Invalidate(ctx context.Context, entity, key string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	id, err := entityID(entity)
	if err != nil {
		return false, err
	}
	removed, err := s.cache.Invalidate(ctx, id, key)
	if err != nil {
		return false, err
	}
	if !removed {
		return false, nil
	}
	metrics.RecordInvalidation()
	if s.writer != nil {
		if err := s.writer.DeleteFinding(ctx, id, key); err != nil {
			s.logger.Error(ctx, "persist invalidation", logger.String("entity", id), logger.Error(err))
		}
	}
	s.dropEntitySnapshots(ctx, id)
	return true, nil
}

// EvictStale removes expired findings for every entity and reports them by entity.
func (s *Service) EvictStale(ctx context.Context) (map[string][]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	now := s.now()
	out := make(map[string][]string)
	total := 0
	for _, entity := range s.cache.Entities(ctx) {
		evicted := s.cache.EvictStale(ctx, entity, now)
		if len(evicted) == 0 {
			continue
		}
		out[entity] = evicted
		total += len(evicted)
		for _, key := range evicted {
			if s.writer == nil {
				break
			}
			if err := s.writer.DeleteFinding(ctx, entity, key); err != nil {
				s.logger.Error(ctx, "persist eviction", logger.String("entity", entity), logger.Error(err))
			}
		}
		s.dropEntitySnapshots(ctx, entity)
	}
	metrics.RecordEvictions(total)
	metrics.UpdateTrackedEntities(len(s.cache.Entities(ctx)))
	return out, nil
}

// SetFactorWeight changes a factor weight. The next read recomputes.
func (s *Service) SetFactorWeight(ctx context.Context, key string, w float64) (factor.Factor, error) {
	if err := s.ready(); err != nil {
		return factor.Factor{}, err
	}
	if err := s.registry.SetWeight(key, w); err != nil {
		return factor.Factor{}, err
	}
	return s.afterFactorChange(ctx, key)
}

// SetFactorTTL overrides a factor TTL; zero reverts to the class TTL.
func (s *Service) SetFactorTTL(ctx context.Context, key string, ttl time.Duration) (factor.Factor, error) {
	if err := s.ready(); err != nil {
		return factor.Factor{}, err
	}
	if err := s.registry.SetTTL(key, ttl); err != nil {
		return factor.Factor{}, err
	}
	return s.afterFactorChange(ctx, key)
}

func (s *Service) afterFactorChange(ctx context.Context, key string) (factor.Factor, error) {
	f, err := s.registry.Factor(key)
	if err != nil {
		return factor.Factor{}, err
	}
	if s.writer != nil {
		if err := s.writer.SaveFactor(ctx, f); err != nil {
			s.logger.Error(ctx, "persist factor", logger.String("factor", key), logger.Error(err))
		}
	}
	s.flushSnapshots(ctx, SnapshotDesirability, SnapshotVerdict)
	s.logger.Info(ctx, "factor updated",
		logger.String("factor", key),
		logger.Float64("weight", f.Weight),
		logger.Duration("ttl", f.TTL),
		logger.Any("registry_version", s.registry.Version()),
	)
	return f, nil
}

// Factors lists the registered factors ordered by key.
func (s *Service) Factors() []factor.Factor {
	if s.ready() != nil {
		return nil
	}
	return s.registry.All()
}

// Desirability computes the score for entity. An entity with no findings that
// no role refers to is unknown.
func (s *Service) Desirability(ctx context.Context, entity string) (scoring.Outcome, error) {
	if err := s.ready(); err != nil {
		return scoring.Outcome{}, err
	}
	id, err := entityID(entity)
	if err != nil {
		return scoring.Outcome{}, err
	}
	if len(s.cache.Findings(ctx, id)) == 0 && !s.entityReferenced(id) {
		return scoring.Outcome{}, fmt.Errorf("%w: %s", ErrUnknownEntity, id)
	}
	return s.computeDesirability(ctx, id)
}

func (s *Service) entityReferenced(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.roles {
		if r.Entity == id {
			return true
		}
	}
	return false
}

func (s *Service) computeDesirability(ctx context.Context, id string) (scoring.Outcome, error) {
	start := time.Now()
	out, err := s.aggregator.Compute(ctx, id, s.now())
	metrics.RecordAnalysisLatency("desirability", float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		metrics.RecordScoreOutcome("error")
		return scoring.Outcome{}, err
	}
	if !out.Complete() {
		metrics.RecordScoreOutcome("incomplete")
		return out, nil
	}
	metrics.RecordScoreOutcome("complete")
	metrics.ObserveDesirability(out.Score.Overall)

	view := types.NewDesirabilityView(out)
	if s.writer != nil {
		if err := s.writer.SaveDesirability(ctx, view); err != nil {
			s.logger.Error(ctx, "persist desirability", logger.String("entity", id), logger.Error(err))
		}
	}
	s.publish(ctx, SnapshotDesirability, id, view)
	return out, nil
}

func (s *Service) publish(ctx context.Context, kind, id string, v any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Put(ctx, kind, id, v); err != nil {
		s.logger.Warn(ctx, "publish snapshot", logger.String("kind", kind), logger.String("id", id), logger.Error(err))
	}
}

// AddSkill adds a skill or replaces its prerequisites.
func (s *Service) AddSkill(ctx context.Context, sk skill.Skill) (skill.Skill, error) {
	if err := s.ready(); err != nil {
		return skill.Skill{}, err
	}
	cat, err := skill.ParseCategory(string(sk.Category))
	if err != nil {
		return skill.Skill{}, err
	}
	sk.Category = cat
	if err := s.graph.AddSkill(sk); err != nil {
		return skill.Skill{}, err
	}
	stored, _ := s.graph.Skill(sk.Name)
	if s.writer != nil {
		if err := s.writer.SaveSkill(ctx, stored); err != nil {
			s.logger.Error(ctx, "persist skill", logger.String("skill", stored.Name), logger.Error(err))
		}
	}
	metrics.UpdateRegisteredSkills(s.graph.Len())
	s.flushSnapshots(ctx, SnapshotGap, SnapshotVerdict)
	return stored, nil
}

// LoadSkills adds a batch of skills in dependency order, so prerequisites may
// appear after the skills that need them. Either every skill is added or none is.
func (s *Service) LoadSkills(ctx context.Context, skills []skill.Skill) ([]skill.Skill, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	batch := make([]skill.Skill, len(skills))
	for i, sk := range skills {
		cat, err := skill.ParseCategory(string(sk.Category))
		if err != nil {
			return nil, fmt.Errorf("skill %q: %w", sk.Name, err)
		}
		sk.Category = cat
		batch[i] = sk
	}
	if err := s.graph.Load(batch); err != nil {
		return nil, err
	}

	stored := make([]skill.Skill, 0, len(batch))
	for _, sk := range batch {
		got, ok := s.graph.Skill(sk.Name)
		if !ok {
			continue
		}
		stored = append(stored, got)
		if s.writer != nil {
			if err := s.writer.SaveSkill(ctx, got); err != nil {
				s.logger.Error(ctx, "persist skill", logger.String("skill", got.Name), logger.Error(err))
			}
		}
	}
	metrics.UpdateRegisteredSkills(s.graph.Len())
	s.flushSnapshots(ctx, SnapshotGap, SnapshotVerdict)
	return stored, nil
}

// LearningUpdate changes a learning record. Nil fields are left as they are.
type LearningUpdate struct {
	Skill   string
	Status  *skill.Status
	Reset   bool
	Ease    *int
	Demand  *int
	Passion *int
}

// SetLearning creates or updates a learning record. Status only moves forward
// unless Reset is set; Reset is applied before Status.
func (s *Service) SetLearning(ctx context.Context, u LearningUpdate) (skill.Learning, error) {
	if err := s.ready(); err != nil {
		return skill.Learning{}, err
	}
	name := skill.Normalize(u.Skill)
	if name == "" {
		return skill.Learning{}, skill.ErrEmptyName
	}
	key := skill.Key(name)

	s.mu.Lock()
	l, ok := s.learnings[key]
	if !ok {
		l = skill.Learning{Skill: name, Status: skill.StatusToDo}
	}
	if u.Reset {
		l.Reset()
	}
	if u.Status != nil {
		if err := l.Advance(*u.Status); err != nil {
			s.mu.Unlock()
			return skill.Learning{}, err
		}
	}
	if u.Ease != nil {
		l.Ease = u.Ease
	}
	if u.Demand != nil {
		l.Demand = u.Demand
	}
	if u.Passion != nil {
		l.Passion = u.Passion
	}
	if err := l.Validate(); err != nil {
		s.mu.Unlock()
		return skill.Learning{}, err
	}
	s.learnings[key] = l
	s.mu.Unlock()

	if s.writer != nil {
		if err := s.writer.SaveLearning(ctx, l); err != nil {
			s.logger.Error(ctx, "persist learning", logger.String("skill", name), logger.Error(err))
		}
	}
	s.flushSnapshots(ctx, SnapshotGap, SnapshotVerdict)
	return l, nil
}

// Learnings returns every learning record ordered by skill.
func (s *Service) Learnings() []skill.Learning {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]skill.Learning, 0, len(s.learnings))
	for _, l := range s.learnings {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return skill.Key(out[i].Skill) < skill.Key(out[j].Skill) })
	return out
}

// SetRole stores a role and its requirements. Skills the graph does not know
// yet are added without prerequisites.
func (s *Service) SetRole(ctx context.Context, r skill.Role) (skill.Role, error) {
	if err := s.ready(); err != nil {
		return skill.Role{}, err
	}
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return skill.Role{}, ErrInvalidRole
	}
	if strings.TrimSpace(r.Entity) != "" {
		id, err := entityID(r.Entity)
		if err != nil {
			return skill.Role{}, err
		}
		r.Entity = id
	}
	reqs := make([]skill.Requirement, 0, len(r.Requirements))
	for _, req := range r.Requirements {
		req.Role = r.Name
		req.Skill = skill.Normalize(req.Skill)
		reqs = append(reqs, req)
	}
	if err := skill.ValidateRequirements(reqs); err != nil {
		return skill.Role{}, err
	}

	for i, req := range reqs {
		if existing, ok := s.graph.Skill(req.Skill); ok {
			reqs[i].Skill = existing.Name
			continue
		}
		created, err := s.AddSkill(ctx, skill.Skill{Name: req.Skill})
		if err != nil {
			return skill.Role{}, err
		}
		reqs[i].Skill = created.Name
	}
	r.Requirements = reqs

	s.mu.Lock()
	s.roles[r.Name] = r
	s.mu.Unlock()

	if s.writer != nil {
		if err := s.writer.SaveRole(ctx, r); err != nil {
			s.logger.Error(ctx, "persist role", logger.String("role", r.Name), logger.Error(err))
		}
	}
	if s.publisher != nil {
		_ = s.publisher.Delete(ctx, r.Name, SnapshotGap, SnapshotVerdict)
	}
	return r, nil
}

// Role returns a stored role.
func (s *Service) Role(name string) (skill.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[strings.TrimSpace(name)]
	if !ok {
		return skill.Role{}, fmt.Errorf("%w: %s", ErrUnknownRole, name)
	}
	return r, nil
}

// ExtractRequirements runs the extractor over posting text and stores the
// result as role. An empty entity falls back to the company the extractor found.
func (s *Service) ExtractRequirements(ctx context.Context, role, entity, text string) (skill.Role, error) {
	if err := s.ready(); err != nil {
		return skill.Role{}, err
	}
	if s.extractor == nil {
		return skill.Role{}, ErrNoExtractor
	}
	posting, err := s.extractor.ExtractRequirements(ctx, text)
	if err != nil {
		return skill.Role{}, fmt.Errorf("extract requirements: %w", err)
	}
	reqs := posting.Requirements(role)
	if len(reqs) == 0 {
		return skill.Role{}, ErrNoRequirements
	}
	if strings.TrimSpace(entity) == "" {
		entity = posting.Company
	}
	return s.SetRole(ctx, skill.Role{Name: role, Entity: entity, Requirements: reqs})
}

func (s *Service) learningSnapshot() map[string]skill.Learning {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]skill.Learning, len(s.learnings))
	for k, l := range s.learnings {
		out[k] = l
	}
	return out
}

// Gap analyzes a stored role against the learning records.
func (s *Service) Gap(ctx context.Context, role string) (gap.Report, error) {
	if err := s.ready(); err != nil {
		return gap.Report{}, err
	}
	r, err := s.Role(role)
	if err != nil {
		return gap.Report{}, err
	}
	return s.analyze(ctx, r)
}

func (s *Service) analyze(ctx context.Context, r skill.Role) (gap.Report, error) {
	start := time.Now()
	rep, err := s.analyzer.Analyze(ctx, r.Name, r.Requirements, s.learningSnapshot())
	metrics.RecordAnalysisLatency("gap", float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		return gap.Report{}, err
	}
	critical := 0
	for _, g := range rep.Gaps {
		if g.Severity == gap.Critical {
			critical++
		}
	}
	metrics.RecordGapAnalysis(critical, len(rep.Gaps)-critical)

	view := types.NewGapView(rep)
	if s.writer != nil {
		if err := s.writer.SaveGapReport(ctx, view); err != nil {
			s.logger.Error(ctx, "persist gap report", logger.String("role", r.Name), logger.Error(err))
		}
	}
	s.publish(ctx, SnapshotGap, r.Name, view)
	return rep, nil
}

// Verdict combines the role's gap report with its entity's desirability.
func (s *Service) Verdict(ctx context.Context, role string) (verdict.Decision, error) {
	if err := s.ready(); err != nil {
		return verdict.Decision{}, err
	}
	r, err := s.Role(role)
	if err != nil {
		return verdict.Decision{}, err
	}
	rep, err := s.analyze(ctx, r)
	if err != nil {
		return verdict.Decision{}, err
	}

	var out scoring.Outcome
	if r.Entity == "" {
		// No employer to score: every factor counts as missing.
		out = scoring.Outcome{Missing: s.registry.Keys()}
	} else if out, err = s.computeDesirability(ctx, r.Entity); err != nil {
		return verdict.Decision{}, err
	}

	d := s.policy.Synthesize(out, rep)
	metrics.RecordVerdict(string(d.Verdict))
	s.publish(ctx, SnapshotVerdict, r.Name, types.NewVerdictView(d))
	return d, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}
	if !s.started {
		return stats
	}
	ctx := context.Background()
	queueLen := s.queue.Len(ctx)
	entities := len(s.cache.Entities(ctx))
	stats["queueLength"] = queueLen
	stats["inFlight"] = s.tracker.Size()
	stats["factors"] = s.registry.Len()
	stats["registryVersion"] = s.registry.Version()
	stats["findings"] = s.store.Count()
	stats["entities"] = entities
	stats["skills"] = s.graph.Len()
	stats["learnings"] = len(s.learnings)
	stats["roles"] = len(s.roles)
	stats["researchEnabled"] = s.pool != nil
	if s.pool != nil {
		stats["busyWorkers"] = s.pool.Busy()
	}

	metrics.UpdateQueueSize(queueLen)
	metrics.UpdateTrackedEntities(entities)
	metrics.UpdateResearchInFlight(int(s.tracker.Size()))
	return stats
}
