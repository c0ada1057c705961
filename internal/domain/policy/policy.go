// Package policy holds the regulatory fleet targets and the penalty rate used
// to price an excess over them.
package policy

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Default penalty and target values for the EU passenger car regime.
const (
	DefaultPenaltyRatePerGram = 95.0

	EU20202024 = "EU_2020_2024"
	EU20252029 = "EU_2025_2029"
	EU20302034 = "EU_2030_2034"
	EU2035Plus = "EU_2035+"
)

// DefaultTargets returns a fresh copy of the built-in fleet targets in g/km.
func DefaultTargets() map[string]float64 {
	return map[string]float64{
		EU20202024: 95.0,
		EU20252029: 93.6,
		EU20302034: 49.5,
		EU2035Plus: 0.0,
	}
}

// Policy is a named regulatory period and its fleet-average target.
type Policy struct {
	Key       string  `json:"key" yaml:"key"`
	TargetGKm float64 `json:"target_g_km" yaml:"target_g_km"`
}

// Table is an immutable set of policies sharing one penalty rate.
// A Table is safe for concurrent use once built.
type Table struct {
	targets map[string]float64
	rate    float64
}

// New builds a Table from the given targets and per-gram penalty rate.
// The targets map is copied.
func New(targets map[string]float64, ratePerGram float64) (*Table, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: no targets", ErrInvalidTable)
	}
	if ratePerGram <= 0 || math.IsNaN(ratePerGram) || math.IsInf(ratePerGram, 0) {
		return nil, fmt.Errorf("%w: penalty rate must be positive, got %v", ErrInvalidTable, ratePerGram)
	}

	t := &Table{
		targets: make(map[string]float64, len(targets)),
		rate:    ratePerGram,
	}
	for key, target := range targets {
		if strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("%w: blank policy key", ErrInvalidTable)
		}
		if target < 0 || math.IsNaN(target) || math.IsInf(target, 0) {
			return nil, fmt.Errorf("%w: target for %s must be a finite value >= 0, got %v", ErrInvalidTable, key, target)
		}
		t.targets[key] = target
	}
	return t, nil
}

// Default returns the built-in EU table.
func Default() *Table {
	t, err := New(DefaultTargets(), DefaultPenaltyRatePerGram)
	if err != nil {
		panic(err) // built-in values are valid
	}
	return t
}

// Lookup returns the policy registered under key.
func (t *Table) Lookup(key string) (Policy, error) {
	target, ok := t.targets[key]
	if !ok {
		return Policy{}, fmt.Errorf("%w: %q", ErrUnknownPolicy, key)
	}
	return Policy{Key: key, TargetGKm: target}, nil
}

// Policies lists every policy ordered by key.
func (t *Table) Policies() []Policy {
	out := make([]Policy, 0, len(t.targets))
	for key, target := range t.targets {
		out = append(out, Policy{Key: key, TargetGKm: target})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// PenaltyRate returns the penalty per g/km of excess per vehicle.
func (t *Table) PenaltyRate() float64 {
	return t.rate
}

// Len reports the number of policies.
func (t *Table) Len() int {
	return len(t.targets)
}
