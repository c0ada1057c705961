package api

import (
	"fmt"
	"net/http"
)

// fleetRequest mirrors the OpenAPI schema for POST /v1/fleet/compliance.
// Values are pointers so a null entry is rejected rather than read as 0.
type fleetRequest struct {
	CO2Predictions []*float64 `json:"co2_predictions"`
	Policy         string     `json:"policy"`
}

func (f fleetRequest) values() ([]float64, error) {
	out := make([]float64, len(f.CO2Predictions))
	for i, v := range f.CO2Predictions {
		if v == nil {
			return nil, fmt.Errorf("%w: co2_predictions[%d] is null", ErrBadRequest, i)
		}
		out[i] = *v
	}
	return out, nil
}

// FleetHandler handles fleet compliance requests.
type FleetHandler struct {
	deps Dependencies
}

// NewFleetHandler creates a new fleet handler.
func NewFleetHandler(deps Dependencies) *FleetHandler {
	return &FleetHandler{deps: deps}
}

// HandleCompliance handles POST /v1/fleet/compliance requests.
func (h *FleetHandler) HandleCompliance(w http.ResponseWriter, r *http.Request) {
	var req fleetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	values, err := req.values()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	res, err := h.deps.FleetCompliance(r.Context(), values, req.Policy)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
