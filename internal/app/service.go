// Package service provides the core business service that implements
// the dependencies required by the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/co2risk/internal/domain/fleet"
	"github.com/okian/co2risk/internal/domain/model"
	"github.com/okian/co2risk/internal/domain/policy"
	"github.com/okian/co2risk/internal/domain/reasons"
	"github.com/okian/co2risk/internal/domain/risk"
	"github.com/okian/co2risk/internal/domain/types"
	"github.com/okian/co2risk/pkg/logger"
	"github.com/okian/co2risk/pkg/metrics"
)

const (
	co2Precision        = 2
	defaultMaxBatchSize = 10_000
	defaultStrictModel  = "rf_strict_v1"
	defaultFullModel    = "rf_full_v1"
	nanosPerMillisecond = 1e6
)

// DecisionRequest carries one upstream prediction. A nil LimitGKm selects
// the service default; an empty Model selects the default id for Mode.
type DecisionRequest struct {
	Model    string
	Mode     reasons.Mode
	CO2GKm   float64
	LimitGKm *float64
	Features model.FeatureRow
}

// BatchRequest decides many vehicles with shared settings. When Policy is
// set the batch is also summarized as a fleet.
type BatchRequest struct {
	Model    string
	Mode     reasons.Mode
	LimitGKm *float64
	Policy   string
	Vehicles []model.Vehicle
}

// Service implements the API dependencies for CO₂ risk decisions.
type Service struct {
	mu sync.RWMutex

	// Core components
	table      *policy.Table
	generator  *reasons.Generator
	aggregator *fleet.Aggregator
	reasonOpts []reasons.Option

	// Configuration
	defaultLimit     float64
	strictModel      string
	fullModel        string
	batchConcurrency int
	maxBatchSize     int

	// State
	started   bool
	startedAt time.Time

	decisions        atomic.Int64
	fleetEvaluations atomic.Int64
	batches          atomic.Int64
	rejected         atomic.Int64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPolicyTable sets the fleet policy table.
func WithPolicyTable(t *policy.Table) Option {
	return func(s *Service) {
		if t != nil {
			s.table = t
		}
	}
}

// WithDefaultLimit sets the limit used when a request carries none.
func WithDefaultLimit(limit float64) Option {
	return func(s *Service) {
		if risk.ValidateLimit(limit) == nil {
			s.defaultLimit = limit
		}
	}
}

// WithModelIDs sets the model ids reported per mode when a request names none.
func WithModelIDs(strict, full string) Option {
	return func(s *Service) {
		if strict != "" {
			s.strictModel = strict
		}
		if full != "" {
			s.fullModel = full
		}
	}
}

// WithBatchConcurrency bounds the goroutines used by one batch.
func WithBatchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchConcurrency = n
		}
	}
}

// WithMaxBatchSize caps vehicles per batch and values per fleet.
func WithMaxBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBatchSize = n
		}
	}
}

// WithReasonOptions passes options to the reason generator built by Start.
func WithReasonOptions(opts ...reasons.Option) Option {
	return func(s *Service) {
		s.reasonOpts = append(s.reasonOpts, opts...)
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		defaultLimit:     risk.DefaultLimitGKm,
		strictModel:      defaultStrictModel,
		fullModel:        defaultFullModel,
		batchConcurrency: runtime.NumCPU(),
		maxBatchSize:     defaultMaxBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start compiles the reason rules and builds the fleet aggregator.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.table == nil {
		s.table = policy.Default()
	}

	gen, err := reasons.New(s.reasonOpts...)
	if err != nil {
		return fmt.Errorf("build reason generator: %w", err)
	}
	s.generator = gen
	s.aggregator = fleet.NewAggregator(s.table)

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "co2 risk service started",
		logger.Float64("defaultLimit", s.defaultLimit),
		logger.Int("policies", s.table.Len()),
		logger.Float64("penaltyRate", s.table.PenaltyRate()),
		logger.Int("batchConcurrency", s.batchConcurrency),
	)
	return nil
}

// Stop marks the service as stopped. Calls in flight finish normally.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "co2 risk service stopped",
		logger.Int("decisions", int(s.decisions.Load())),
		logger.Int("fleetEvaluations", int(s.fleetEvaluations.Load())),
	)
}

func (s *Service) components() (*reasons.Generator, *fleet.Aggregator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.generator, s.aggregator, nil
}

// Decide produces the decision record for one vehicle.
func (s *Service) Decide(ctx context.Context, req DecisionRequest) (types.Decision, error) {
	gen, _, err := s.components()
	if err != nil {
		return types.Decision{}, err
	}
	start := time.Now()

	mode, err := reasons.ParseMode(string(req.Mode))
	if err != nil {
		s.reject(ctx, "decision", err)
		return types.Decision{}, err
	}
	limit := s.defaultLimit
	if req.LimitGKm != nil {
		limit = *req.LimitGKm
	}

	verdict, err := risk.Evaluate(req.CO2GKm, limit)
	if err != nil {
		s.reject(ctx, "decision", err)
		return types.Decision{}, err
	}
	msgs := gen.Generate(req.Features, mode)

	d := types.Decision{
		Model:      s.modelID(req.Model, mode),
		CO2PredGKm: risk.Round(req.CO2GKm, co2Precision),
		RiskScore:  verdict.Score,
		Compliance: verdict.Category.String(),
		Reasons:    msgs,
		LimitGKm:   limit,
	}

	s.decisions.Add(1)
	latencyMs := float64(time.Since(start).Nanoseconds()) / nanosPerMillisecond
	metrics.RecordDecision(string(mode), d.Compliance, d.RiskScore, len(msgs), latencyMs)
	s.logger.Debug(ctx, "decision",
		logger.String("model", d.Model),
		logger.String("mode", string(mode)),
		logger.Float64("co2", d.CO2PredGKm),
		logger.Float64("limit", limit),
		logger.String("compliance", d.Compliance),
	)
	return d, nil
}

// DecideBatch decides every vehicle concurrently and keeps input order. The
// first failing vehicle fails the whole batch.
func (s *Service) DecideBatch(ctx context.Context, req BatchRequest) (types.BatchDecision, error) {
	if _, _, err := s.components(); err != nil {
		return types.BatchDecision{}, err
	}
	if err := s.checkSize(len(req.Vehicles), ErrEmptyBatch); err != nil {
		s.reject(ctx, "batch", err)
		return types.BatchDecision{}, err
	}
	mode, err := reasons.ParseMode(string(req.Mode))
	if err != nil {
		s.reject(ctx, "batch", err)
		return types.BatchDecision{}, err
	}
	// Unknown policies fail before any vehicle is decided or counted.
	if req.Policy != "" {
		if _, err := s.policyTable().Lookup(req.Policy); err != nil {
			s.reject(ctx, "batch", err)
			return types.BatchDecision{}, err
		}
	}

	out := make([]types.VehicleDecision, len(req.Vehicles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchConcurrency)
	for i, v := range req.Vehicles {
		i, v := i, v
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d, err := s.Decide(gctx, DecisionRequest{
				Model:    req.Model,
				Mode:     mode,
				CO2GKm:   v.CO2GKm,
				LimitGKm: req.LimitGKm,
				Features: v.Features,
			})
			if err != nil {
				return fmt.Errorf("vehicle %d %s: %w", i, v.ID, err)
			}
			out[i] = types.VehicleDecision{ID: v.ID, Decision: d}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return types.BatchDecision{}, err
	}

	res := types.BatchDecision{BatchID: uuid.NewString(), Decisions: out}
	if req.Policy != "" {
		values := make([]float64, len(req.Vehicles))
		for i, v := range req.Vehicles {
			values[i] = v.CO2GKm
		}
		fc, err := s.FleetCompliance(ctx, values, req.Policy)
		if err != nil {
			return types.BatchDecision{}, err
		}
		res.Fleet = &fc
	}

	s.batches.Add(1)
	metrics.RecordBatch(len(req.Vehicles))
	s.logger.Info(ctx, "batch decided",
		logger.String("batchID", res.BatchID),
		logger.Int("vehicles", len(out)),
		logger.String("policy", req.Policy),
	)
	return res, nil
}

// FleetCompliance summarizes values against the policy named by policyKey.
func (s *Service) FleetCompliance(ctx context.Context, values []float64, policyKey string) (types.FleetCompliance, error) {
	_, agg, err := s.components()
	if err != nil {
		return types.FleetCompliance{}, err
	}
	if len(values) > s.maxBatchSize {
		err := fmt.Errorf("%w: %d values, max %d", ErrBatchTooLarge, len(values), s.maxBatchSize)
		s.reject(ctx, "fleet", err)
		return types.FleetCompliance{}, err
	}

	r, err := agg.Summarize(values, policyKey)
	if err != nil {
		s.reject(ctx, "fleet", err)
		return types.FleetCompliance{}, err
	}

	s.fleetEvaluations.Add(1)
	metrics.RecordFleetEvaluation(r.Policy, r.Compliant, r.Vehicles, r.EstimatedPenaltyEUR)
	s.logger.Info(ctx, "fleet evaluated",
		logger.String("policy", r.Policy),
		logger.Int("vehicles", r.Vehicles),
		logger.Float64("avg", r.FleetAvgGKm),
		logger.Bool("compliant", r.Compliant),
		logger.Float64("penalty", r.EstimatedPenaltyEUR),
	)
	return types.NewFleetCompliance(r), nil
}

// Policies lists the fleet policies in effect.
func (s *Service) Policies() []policy.Policy {
	return s.policyTable().Policies()
}

// PenaltyRate returns the per-gram penalty rate in effect.
func (s *Service) PenaltyRate() float64 {
	return s.policyTable().PenaltyRate()
}

func (s *Service) policyTable() *policy.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.table == nil {
		return policy.Default()
	}
	return s.table
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"decisions":        s.decisions.Load(),
		"fleetEvaluations": s.fleetEvaluations.Load(),
		"batches":          s.batches.Load(),
		"rejected":         s.rejected.Load(),
		"defaultLimit":     s.defaultLimit,
		"batchConcurrency": s.batchConcurrency,
	}
	if s.started {
		stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())
		stats["policies"] = s.table.Len()
	}
	return stats
}

func (s *Service) modelID(requested string, mode reasons.Mode) string {
	if requested != "" {
		return requested
	}
	if mode == reasons.Full {
		return s.fullModel
	}
	return s.strictModel
}

func (s *Service) checkSize(n int, empty error) error {
	switch {
	case n == 0:
		return empty
	case n > s.maxBatchSize:
		return fmt.Errorf("%w: %d vehicles, max %d", ErrBatchTooLarge, n, s.maxBatchSize)
	}
	return nil
}

func (s *Service) reject(ctx context.Context, op string, err error) {
	s.rejected.Add(1)
	kind := ErrorKind(err)
	metrics.RecordDecisionError(kind)
	s.logger.Debug(ctx, "request rejected",
		logger.String("op", op),
		logger.String("kind", kind),
		logger.Error(err),
	)
}

// ErrorKind maps an error to a short, stable label.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, risk.ErrInvalidLimit):
		return "invalid_limit"
	case errors.Is(err, risk.ErrInvalidEstimate):
		return "invalid_estimate"
	case errors.Is(err, policy.ErrUnknownPolicy):
		return "unknown_policy"
	case errors.Is(err, fleet.ErrEmptyFleet):
		return "empty_fleet"
	case errors.Is(err, ErrEmptyBatch):
		return "empty_batch"
	case errors.Is(err, ErrBatchTooLarge):
		return "batch_too_large"
	case errors.Is(err, reasons.ErrUnknownMode):
		return "unknown_mode"
	case errors.Is(err, ErrNotStarted):
		return "not_started"
	default:
		return "internal"
	}
}
