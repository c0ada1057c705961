package api

import (
	"fmt"
	"net/http"
	"strconv"

	service "github.com/okian/co2risk/internal/app"
	"github.com/okian/co2risk/internal/domain/model"
	"github.com/okian/co2risk/internal/domain/reasons"
)

// decisionRequest mirrors the OpenAPI schema for POST /v1/decisions.
type decisionRequest struct {
	Model    string           `json:"model"`
	Mode     string           `json:"mode"`
	CO2GKm   *float64         `json:"co2_pred_g_km"`
	LimitGKm *float64         `json:"limit_g_km"`
	Features model.FeatureRow `json:"features"`
}

// batchRequest mirrors the OpenAPI schema for POST /v1/decisions/batch.
type batchRequest struct {
	Model    string          `json:"model"`
	Mode     string          `json:"mode"`
	LimitGKm *float64        `json:"limit_g_km"`
	Policy   string          `json:"policy"`
	Vehicles []model.Vehicle `json:"vehicles"`
}

// DecisionsHandler handles single and batch decision requests.
type DecisionsHandler struct {
	deps Dependencies
}

// NewDecisionsHandler creates a new decisions handler.
func NewDecisionsHandler(deps Dependencies) *DecisionsHandler {
	return &DecisionsHandler{deps: deps}
}

// HandleDecide handles POST /v1/decisions requests.
func (h *DecisionsHandler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if req.CO2GKm == nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing co2_pred_g_km", ErrBadRequest))
		return
	}
	mode, err := reasons.ParseMode(req.Mode)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	limit, err := limitFrom(r, req.LimitGKm)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	d, err := h.deps.Decide(r.Context(), service.DecisionRequest{
		Model:    req.Model,
		Mode:     mode,
		CO2GKm:   *req.CO2GKm,
		LimitGKm: limit,
		Features: req.Features,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// HandleBatch handles POST /v1/decisions/batch requests.
func (h *DecisionsHandler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	mode, err := reasons.ParseMode(req.Mode)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	limit, err := limitFrom(r, req.LimitGKm)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	res, err := h.deps.DecideBatch(r.Context(), service.BatchRequest{
		Model:    req.Model,
		Mode:     mode,
		LimitGKm: limit,
		Policy:   req.Policy,
		Vehicles: req.Vehicles,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// limitFrom prefers the body limit and falls back to the ?limit= query
// parameter. Nil means the service default.
func limitFrom(r *http.Request, body *float64) (*float64, error) {
	if body != nil {
		return body, nil
	}
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: limit %q is not a number", ErrBadRequest, raw)
	}
	return &v, nil
}

