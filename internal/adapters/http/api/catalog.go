package api

import (
	"net/http"

	"github.com/okian/co2risk/internal/domain/model"
	"github.com/okian/co2risk/internal/domain/policy"
)

type policiesResponse struct {
	PenaltyRatePerGram float64         `json:"penalty_rate_per_gram"`
	Policies           []policy.Policy `json:"policies"`
}

// CatalogHandler serves the read-only lookup tables.
type CatalogHandler struct {
	deps Dependencies
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(deps Dependencies) *CatalogHandler {
	return &CatalogHandler{deps: deps}
}

// HandlePolicies handles GET /v1/policies requests.
func (h *CatalogHandler) HandlePolicies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, policiesResponse{
		PenaltyRatePerGram: h.deps.PenaltyRate(),
		Policies:           h.deps.Policies(),
	})
}

// HandleFuelTypes handles GET /v1/fuel-types requests.
func (h *CatalogHandler) HandleFuelTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"fuel_types": model.FuelTypes()})
}
