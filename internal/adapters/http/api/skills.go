package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/plotpath/internal/app"
	"github.com/okian/plotpath/internal/domain/skill"
	"github.com/okian/plotpath/internal/domain/types"
)

// SkillsHandler manages the skill graph, learning records and roles.
type SkillsHandler struct {
	engine Engine
}

// NewSkillsHandler creates a new skills handler.
func NewSkillsHandler(engine Engine) *SkillsHandler {
	return &SkillsHandler{engine: engine}
}

type skillRequest struct {
	Name          string   `json:"name"`
	Category      string   `json:"category"`
	Prerequisites []string `json:"prerequisites"`
}

// HandlePostSkill handles POST /skills.
func (h *SkillsHandler) HandlePostSkill(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_skill"
	var req skillRequest
	if err := decode(r, w, &req); err != nil {
		writeFailure(w, op, err)
		return
	}
	s, err := h.engine.AddSkill(r.Context(), skill.Skill{
		Name:          req.Name,
		Category:      skill.Category(req.Category),
		Prerequisites: req.Prerequisites,
	})
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.NewSkillView(s))
}

// learningRequest mirrors the OpenAPI schema for PUT /learnings/{skill}.
type learningRequest struct {
	Status  *string `json:"status"`
	Reset   bool    `json:"reset"`
	Ease    *int    `json:"ease"`
	Demand  *int    `json:"demand"`
	Passion *int    `json:"passion"`
}

// HandlePutLearning handles PUT /learnings/{skill}.
func (h *SkillsHandler) HandlePutLearning(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_learning"
	var req learningRequest
	if err := decode(r, w, &req); err != nil {
		writeFailure(w, op, err)
		return
	}
	u := app.LearningUpdate{
		Skill:   r.PathValue("skill"),
		Reset:   req.Reset,
		Ease:    req.Ease,
		Demand:  req.Demand,
		Passion: req.Passion,
	}
	if req.Status != nil {
		st, err := skill.ParseStatus(*req.Status)
		if err != nil {
			writeFailure(w, op, err)
			return
		}
		u.Status = &st
	}
	l, err := h.engine.SetLearning(r.Context(), u)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewLearningView(l))
}

// HandleListLearnings handles GET /learnings.
func (h *SkillsHandler) HandleListLearnings(w http.ResponseWriter, _ *http.Request) {
	ls := h.engine.Learnings()
	out := make([]types.LearningView, 0, len(ls))
	for _, l := range ls {
		out = append(out, types.NewLearningView(l))
	}
	writeJSON(w, http.StatusOK, out)
}

type requirementRequest struct {
	Skill string `json:"skill"`
	Level string `json:"level"`
}

// roleRequest mirrors the OpenAPI schema for PUT /roles/{role}.
type roleRequest struct {
	Entity       string               `json:"entity"`
	Requirements []requirementRequest `json:"requirements"`
}

func (req roleRequest) role(name string) (skill.Role, error) {
	out := skill.Role{Name: name, Entity: req.Entity}
	for i, rr := range req.Requirements {
		level, err := skill.ParseLevel(rr.Level)
		if err != nil {
			return skill.Role{}, fmt.Errorf("requirements[%d]: %w", i, err)
		}
		out.Requirements = append(out.Requirements, skill.Requirement{Role: name, Skill: rr.Skill, Level: level})
	}
	return out, nil
}

// HandlePutRole handles PUT /roles/{role}. The requirement list replaces the old one.
func (h *SkillsHandler) HandlePutRole(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_role"
	var req roleRequest
	if err := decode(r, w, &req); err != nil {
		writeFailure(w, op, err)
		return
	}
	role, err := req.role(r.PathValue("role"))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	stored, err := h.engine.SetRole(r.Context(), role)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewRoleView(stored))
}

// HandleGetRole handles GET /roles/{role}.
func (h *SkillsHandler) HandleGetRole(w http.ResponseWriter, r *http.Request) {
	role, err := h.engine.Role(r.PathValue("role"))
	if err != nil {
		writeFailure(w, "api.get_role", err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewRoleView(role))
}

type extractRequest struct {
	Entity string `json:"entity"`
	Text   string `json:"text"`
}

// HandleExtractRole handles POST /roles/{role}/extract: requirements are read
// from posting text and stored as the role.
func (h *SkillsHandler) HandleExtractRole(w http.ResponseWriter, r *http.Request) {
	const op = "api.extract_role"
	var req extractRequest
	if err := decode(r, w, &req); err != nil {
		writeFailure(w, op, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeFailure(w, op, fmt.Errorf("%w: missing text", ErrBadRequest))
		return
	}
	role, err := h.engine.ExtractRequirements(r.Context(), r.PathValue("role"), req.Entity, req.Text)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewRoleView(role))
}
