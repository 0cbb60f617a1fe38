package api

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/okian/plotpath/internal/domain/factor"
	"github.com/okian/plotpath/internal/domain/types"
)

// FactorsHandler exposes the factor registry and desirability scores.
type FactorsHandler struct {
	engine Engine
}

// NewFactorsHandler creates a new factors handler.
func NewFactorsHandler(engine Engine) *FactorsHandler {
	return &FactorsHandler{engine: engine}
}

// HandleGetDesirability handles GET /desirability/{entity}. An incomplete
// score is a normal 200 response listing the missing factors.
func (h *FactorsHandler) HandleGetDesirability(w http.ResponseWriter, r *http.Request) {
	out, err := h.engine.Desirability(r.Context(), r.PathValue("entity"))
	if err != nil {
		writeFailure(w, "api.desirability", err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewDesirabilityView(out))
}

// HandleListFactors handles GET /factors.
func (h *FactorsHandler) HandleListFactors(w http.ResponseWriter, _ *http.Request) {
	fs := h.engine.Factors()
	out := make([]types.FactorView, 0, len(fs))
	for _, f := range fs {
		out = append(out, types.NewFactorView(f))
	}
	writeJSON(w, http.StatusOK, out)
}

// factorUpdate mirrors the OpenAPI schema for PUT /factors/{key}.
// A ttl_hours of zero reverts to the class TTL.
type factorUpdate struct {
	Weight   *float64 `json:"weight"`
	TTLHours *float64 `json:"ttl_hours"`
}

func (u factorUpdate) validate() error {
	if u.Weight == nil && u.TTLHours == nil {
		return fmt.Errorf("%w: weight or ttl_hours is required", ErrBadRequest)
	}
	if u.Weight != nil && (*u.Weight < factor.MinWeight || *u.Weight > factor.MaxWeight) {
		return fmt.Errorf("%w: %v", factor.ErrInvalidWeight, *u.Weight)
	}
	if u.TTLHours != nil && (*u.TTLHours < 0 || math.IsNaN(*u.TTLHours) || math.IsInf(*u.TTLHours, 0)) {
		return fmt.Errorf("%w: %v hours", factor.ErrInvalidTTL, *u.TTLHours)
	}
	return nil
}

// HandlePutFactor handles PUT /factors/{key}. Both fields are checked before
// either is applied.
func (h *FactorsHandler) HandlePutFactor(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_factor"
	var req factorUpdate
	if err := decode(r, w, &req); err != nil {
		writeFailure(w, op, err)
		return
	}
	if err := req.validate(); err != nil {
		writeFailure(w, op, err)
		return
	}
	key := r.PathValue("key")
	var (
		f   factor.Factor
		err error
	)
	if req.Weight != nil {
		if f, err = h.engine.SetFactorWeight(r.Context(), key, *req.Weight); err != nil {
			writeFailure(w, op, err)
			return
		}
	}
	if req.TTLHours != nil {
		ttl := time.Duration(*req.TTLHours * float64(time.Hour))
		if f, err = h.engine.SetFactorTTL(r.Context(), key, ttl); err != nil {
			writeFailure(w, op, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, types.NewFactorView(f))
}
