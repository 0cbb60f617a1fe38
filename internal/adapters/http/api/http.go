// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/plotpath/internal/app"
	"github.com/okian/plotpath/internal/domain/factor"
	"github.com/okian/plotpath/internal/domain/gap"
	"github.com/okian/plotpath/internal/domain/model"
	"github.com/okian/plotpath/internal/domain/research"
	"github.com/okian/plotpath/internal/domain/scoring"
	"github.com/okian/plotpath/internal/domain/skill"
	"github.com/okian/plotpath/internal/domain/verdict"
)

// maxBodyBytes bounds request bodies. Posting text is the largest payload.
const maxBodyBytes = 1 << 20

// Engine is the slice of the service the handlers need.
type Engine interface {
	RecordFinding(ctx context.Context, f research.Finding) (bool, error)
	Invalidate(ctx context.Context, entity, key string) (bool, error)
	RequestResearch(ctx context.Context, entity string) ([]model.Task, error)
	EvictStale(ctx context.Context) (map[string][]string, error)

	Desirability(ctx context.Context, entity string) (scoring.Outcome, error)
	Factors() []factor.Factor
	SetFactorWeight(ctx context.Context, key string, w float64) (factor.Factor, error)
	SetFactorTTL(ctx context.Context, key string, ttl time.Duration) (factor.Factor, error)

	AddSkill(ctx context.Context, s skill.Skill) (skill.Skill, error)
	SetLearning(ctx context.Context, u app.LearningUpdate) (skill.Learning, error)
	Learnings() []skill.Learning
	SetRole(ctx context.Context, r skill.Role) (skill.Role, error)
	Role(name string) (skill.Role, error)
	ExtractRequirements(ctx context.Context, role, entity, text string) (skill.Role, error)

	Gap(ctx context.Context, role string) (gap.Report, error)
	Verdict(ctx context.Context, role string) (verdict.Decision, error)
}

// Server wires HTTP routes for the engine API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	findingsHandler *FindingsHandler
	factorsHandler  *FactorsHandler
	skillsHandler   *SkillsHandler
	analysisHandler *AnalysisHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(engine Engine, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		findingsHandler: NewFindingsHandler(engine),
		factorsHandler:  NewFactorsHandler(engine),
		skillsHandler:   NewSkillsHandler(engine),
		analysisHandler: NewAnalysisHandler(engine),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, MetricsMiddleware(h, endpoint))
	}

	route("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	route("GET /stats", "stats", s.statsHandler.HandleStats)

	route("POST /findings", "findings", s.findingsHandler.HandlePostFinding)
	route("DELETE /findings/{entity}/{factor}", "findings", s.findingsHandler.HandleInvalidate)
	route("POST /evictions", "evictions", s.findingsHandler.HandleEvict)
	route("POST /research/{entity}", "research", s.findingsHandler.HandleRequestResearch)

	route("GET /desirability/{entity}", "desirability", s.factorsHandler.HandleGetDesirability)
	route("GET /factors", "factors", s.factorsHandler.HandleListFactors)
	route("PUT /factors/{key}", "factors", s.factorsHandler.HandlePutFactor)

	route("POST /skills", "skills", s.skillsHandler.HandlePostSkill)
	route("GET /learnings", "learnings", s.skillsHandler.HandleListLearnings)
	route("PUT /learnings/{skill}", "learnings", s.skillsHandler.HandlePutLearning)
	route("GET /roles/{role}", "roles", s.skillsHandler.HandleGetRole)
	route("PUT /roles/{role}", "roles", s.skillsHandler.HandlePutRole)
	route("POST /roles/{role}/extract", "roles", s.skillsHandler.HandleExtractRole)

	route("GET /gap/{role}", "gap", s.analysisHandler.HandleGetGap)
	route("GET /verdict/{role}", "verdict", s.analysisHandler.HandleGetVerdict)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps err to a status code and writes it.
func writeFailure(w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	writeError(w, status, code, fmt.Errorf("%s: %w", op, err))
}

// decode reads a single JSON object, rejecting unknown fields.
func decode(r *http.Request, w http.ResponseWriter, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrBadRequest)
		}
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}
