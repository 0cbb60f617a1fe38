package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okian/plotpath/internal/domain/research"
)

// FindingsHandler accepts research results and manages the research queue.
type FindingsHandler struct {
	engine Engine
}

// NewFindingsHandler creates a new findings handler.
func NewFindingsHandler(engine Engine) *FindingsHandler {
	return &FindingsHandler{engine: engine}
}

// findingRequest mirrors the OpenAPI schema for POST /findings.
type findingRequest struct {
	Entity     string `json:"entity"`
	Factor     string `json:"factor"`
	Score      int    `json:"score"`
	Evidence   string `json:"evidence"`
	Source     string `json:"source"`
	CapturedAt string `json:"captured_at"`
}

func (f findingRequest) finding() (research.Finding, error) {
	switch {
	case strings.TrimSpace(f.Entity) == "":
		return research.Finding{}, fmt.Errorf("%w: missing entity", ErrBadRequest)
	case strings.TrimSpace(f.Factor) == "":
		return research.Finding{}, fmt.Errorf("%w: missing factor", ErrBadRequest)
	}
	out := research.Finding{
		Entity:   f.Entity,
		Factor:   strings.TrimSpace(f.Factor),
		Score:    f.Score,
		Evidence: f.Evidence,
		Source:   f.Source,
	}
	if f.CapturedAt != "" {
		ts, err := time.Parse(time.RFC3339, f.CapturedAt)
		if err != nil {
			return research.Finding{}, fmt.Errorf("%w: invalid captured_at; must be RFC3339", ErrBadRequest)
		}
		out.CapturedAt = ts
	}
	return out, nil
}

type findingAck struct {
	Status string `json:"status"`
	Stored bool   `json:"stored"`
}

// HandlePostFinding handles POST /findings.
func (h *FindingsHandler) HandlePostFinding(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_finding"
	var req findingRequest
	if err := decode(r, w, &req); err != nil {
		writeFailure(w, op, err)
		return
	}
	f, err := req.finding()
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	stored, err := h.engine.RecordFinding(r.Context(), f)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	if !stored {
		writeJSON(w, http.StatusOK, findingAck{Status: "superseded"})
		return
	}
	writeJSON(w, http.StatusCreated, findingAck{Status: "stored", Stored: true})
}

// HandleInvalidate handles DELETE /findings/{entity}/{factor}.
func (h *FindingsHandler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	removed, err := h.engine.Invalidate(r.Context(), r.PathValue("entity"), r.PathValue("factor"))
	if err != nil {
		writeFailure(w, "api.invalidate", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

// HandleEvict handles POST /evictions.
func (h *FindingsHandler) HandleEvict(w http.ResponseWriter, r *http.Request) {
	evicted, err := h.engine.EvictStale(r.Context())
	if err != nil {
		writeFailure(w, "api.evict", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"evicted": evicted})
}

type researchResponse struct {
	Entity string         `json:"entity"`
	Queued []queuedTask   `json:"queued"`
	Error  *errorResponse `json:"error,omitempty"`
}

type queuedTask struct {
	ID     string `json:"id"`
	Factor string `json:"factor"`
}

// HandleRequestResearch handles POST /research/{entity}. Tasks queued before
// the queue filled up are reported alongside the 429.
func (h *FindingsHandler) HandleRequestResearch(w http.ResponseWriter, r *http.Request) {
	entity := r.PathValue("entity")
	tasks, err := h.engine.RequestResearch(r.Context(), entity)
	resp := researchResponse{Entity: research.EntityID(entity), Queued: make([]queuedTask, 0, len(tasks))}
	for _, t := range tasks {
		resp.Queued = append(resp.Queued, queuedTask{ID: t.ID, Factor: t.Factor})
	}
	if err != nil {
		if len(tasks) == 0 {
			writeFailure(w, "api.request_research", err)
			return
		}
		status, code := classify(err)
		resp.Error = &errorResponse{Code: code, Message: err.Error()}
		writeJSON(w, status, resp)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}
