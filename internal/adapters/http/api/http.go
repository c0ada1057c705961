// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	service "github.com/okian/co2risk/internal/app"
	"github.com/okian/co2risk/internal/domain/fleet"
	"github.com/okian/co2risk/internal/domain/policy"
	"github.com/okian/co2risk/internal/domain/reasons"
	"github.com/okian/co2risk/internal/domain/risk"
	"github.com/okian/co2risk/internal/domain/types"
)

const (
	maxBodyBytes   = 8 << 20
	requestTimeout = 30 * time.Second
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Decide(ctx context.Context, req service.DecisionRequest) (types.Decision, error)
	DecideBatch(ctx context.Context, req service.BatchRequest) (types.BatchDecision, error)
	FleetCompliance(ctx context.Context, values []float64, policyKey string) (types.FleetCompliance, error)

	Policies() []policy.Policy
	PenaltyRate() float64
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	decisionsHandler *DecisionsHandler
	fleetHandler     *FleetHandler
	catalogHandler   *CatalogHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		decisionsHandler: NewDecisionsHandler(deps),
		fleetHandler:     NewFleetHandler(deps),
		catalogHandler:   NewCatalogHandler(deps),
	}
}

// NewRouter returns a chi router with the standard middleware stack.
func NewRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(Metrics)
	return r
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(r chi.Router) {
	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Get("/stats", s.statsHandler.HandleStats)
	r.Handle("/metrics", MetricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/decisions", s.decisionsHandler.HandleDecide)
		r.Post("/decisions/batch", s.decisionsHandler.HandleBatch)
		r.Post("/fleet/compliance", s.fleetHandler.HandleCompliance)
		r.Get("/policies", s.catalogHandler.HandlePolicies)
		r.Get("/fuel-types", s.catalogHandler.HandleFuelTypes)
	})
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

// writeDomainError translates service and domain errors to HTTP responses.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), service.ErrorKind(err), err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, policy.ErrUnknownPolicy):
		return http.StatusNotFound
	case errors.Is(err, service.ErrBatchTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	case errors.Is(err, risk.ErrInvalidLimit),
		errors.Is(err, risk.ErrInvalidEstimate),
		errors.Is(err, fleet.ErrEmptyFleet),
		errors.Is(err, service.ErrEmptyBatch),
		errors.Is(err, reasons.ErrUnknownMode):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}
