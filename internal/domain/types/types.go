// Package types contains the records returned to API and CLI callers.
package types

import "github.com/okian/co2risk/internal/domain/fleet"

// Decision is the single-vehicle verdict.
type Decision struct {
	Model      string   `json:"model" yaml:"model"`
	CO2PredGKm float64  `json:"co2_pred_g_km" yaml:"co2_pred_g_km"`
	RiskScore  float64  `json:"risk_score" yaml:"risk_score"`
	Compliance string   `json:"compliance" yaml:"compliance"`
	Reasons    []string `json:"reasons" yaml:"reasons"`
	LimitGKm   float64  `json:"limit_g_km" yaml:"limit_g_km"`
}

// FleetCompliance is the fleet-average verdict.
type FleetCompliance struct {
	Policy              string  `json:"policy" yaml:"policy"`
	TargetGKm           float64 `json:"target_g_km" yaml:"target_g_km"`
	FleetAvgGKm         float64 `json:"fleet_avg_g_km" yaml:"fleet_avg_g_km"`
	Compliant           bool    `json:"compliant" yaml:"compliant"`
	ExcessGKm           float64 `json:"excess_g_km" yaml:"excess_g_km"`
	EstimatedPenaltyEUR float64 `json:"estimated_penalty_eur" yaml:"estimated_penalty_eur"`
}

// NewFleetCompliance converts an aggregator result into its wire shape.
func NewFleetCompliance(r fleet.Result) FleetCompliance {
	return FleetCompliance{
		Policy:              r.Policy,
		TargetGKm:           r.TargetGKm,
		FleetAvgGKm:         r.FleetAvgGKm,
		Compliant:           r.Compliant,
		ExcessGKm:           r.ExcessGKm,
		EstimatedPenaltyEUR: r.EstimatedPenaltyEUR,
	}
}

// VehicleDecision pairs a batch entry's caller id with its decision.
type VehicleDecision struct {
	ID string `json:"id,omitempty" yaml:"id,omitempty"`
	Decision `yaml:",inline"`
}

// BatchDecision is the result of deciding many vehicles at once. Fleet is
// present only when a policy was requested.
type BatchDecision struct {
	BatchID   string            `json:"batch_id" yaml:"batch_id"`
	Decisions []VehicleDecision `json:"decisions" yaml:"decisions"`
	Fleet     *FleetCompliance  `json:"fleet,omitempty" yaml:"fleet,omitempty"`
}
