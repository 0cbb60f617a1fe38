package api

import (
	"net/http"

	"github.com/okian/plotpath/internal/domain/types"
)

// AnalysisHandler serves gap reports and verdicts.
type AnalysisHandler struct {
	engine Engine
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(engine Engine) *AnalysisHandler {
	return &AnalysisHandler{engine: engine}
}

// HandleGetGap handles GET /gap/{role}.
func (h *AnalysisHandler) HandleGetGap(w http.ResponseWriter, r *http.Request) {
	rep, err := h.engine.Gap(r.Context(), r.PathValue("role"))
	if err != nil {
		writeFailure(w, "api.gap", err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewGapView(rep))
}

// HandleGetVerdict handles GET /verdict/{role}.
func (h *AnalysisHandler) HandleGetVerdict(w http.ResponseWriter, r *http.Request) {
	d, err := h.engine.Verdict(r.Context(), r.PathValue("role"))
	if err != nil {
		writeFailure(w, "api.verdict", err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewVerdictView(d))
}
