// Package fleet reduces per-vehicle CO₂ estimates to a fleet-average
// compliance verdict against a regulatory policy.
package fleet

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/okian/co2risk/internal/domain/policy"
	"github.com/okian/co2risk/internal/domain/risk"
)

const displayPrecision = 2

// Result is the fleet verdict. Average, excess and penalty are rounded to
// two decimals.
type Result struct {
	Policy              string
	TargetGKm           float64
	FleetAvgGKm         float64
	Compliant           bool
	ExcessGKm           float64
	EstimatedPenaltyEUR float64
	Vehicles            int
}

// Aggregator summarizes fleets against a policy table.
type Aggregator struct {
	table *policy.Table
}

// NewAggregator returns an Aggregator backed by table. A nil table selects
// the built-in defaults.
func NewAggregator(table *policy.Table) *Aggregator {
	if table == nil {
		table = policy.Default()
	}
	return &Aggregator{table: table}
}

// Table returns the policy table in use.
func (a *Aggregator) Table() *policy.Table {
	return a.table
}

// Summarize compares the mean of values to the target of policyKey.
// Arithmetic is exact decimal, so the result does not depend on the order
// of values.
func (a *Aggregator) Summarize(values []float64, policyKey string) (Result, error) {
	p, err := a.table.Lookup(policyKey)
	if err != nil {
		return Result{}, err
	}
	if len(values) == 0 {
		return Result{}, fmt.Errorf("%w: at least one co2 value is required", ErrEmptyFleet)
	}

	sum := decimal.Zero
	for i, v := range values {
		if err := risk.ValidateEstimate(v); err != nil {
			return Result{}, fmt.Errorf("value %d: %w", i, err)
		}
		sum = sum.Add(decimal.NewFromFloat(v))
	}

	count := decimal.NewFromInt(int64(len(values)))
	avg := sum.Div(count)
	target := decimal.NewFromFloat(p.TargetGKm)

	excess := avg.Sub(target)
	if excess.IsNegative() {
		excess = decimal.Zero
	}
	penalty := excess.Mul(decimal.NewFromFloat(a.table.PenaltyRate())).Mul(count)

	return Result{
		Policy:              p.Key,
		TargetGKm:           p.TargetGKm,
		FleetAvgGKm:         display(avg),
		Compliant:           excess.IsZero(),
		ExcessGKm:           display(excess),
		EstimatedPenaltyEUR: display(penalty),
		Vehicles:            len(values),
	}, nil
}

func display(d decimal.Decimal) float64 {
	f, _ := d.RoundBank(displayPrecision).Float64()
	return f
}
