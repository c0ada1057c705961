// Package risk turns a single CO₂ estimate into a bounded score and a
// compliance category relative to a caller-chosen limit.
package risk

import (
	"fmt"
	"math"
	"strconv"
)

// Scoring constants.
const (
	// DefaultLimitGKm is used by callers that do not supply a limit.
	DefaultLimitGKm = 200.0

	scoreAtLimit   = 50.0
	minScore       = 0.0
	maxScore       = 100.0
	scorePrecision = 1
	marginRatio    = 0.10
)

// Category is the three-way compliance verdict.
type Category string

// Compliance categories.
const (
	Pass   Category = "PASS"
	AtRisk Category = "AT_RISK"
	Fail   Category = "FAIL"
)

// String implements fmt.Stringer.
func (c Category) String() string { return string(c) }

// Decision is the score and category for one estimate.
type Decision struct {
	Score    float64
	Category Category
}

// Score maps co2 to [0,100] where 50 means exactly at limit.
func Score(co2, limit float64) (float64, error) {
	if err := validate(co2, limit); err != nil {
		return 0, err
	}

	raw := co2 / limit * scoreAtLimit
	return math.Max(minScore, math.Min(maxScore, Round(raw, scorePrecision))), nil
}

// Round rounds v to places decimals using its exact binary value, with
// exact ties going to even. 0.35 is stored just below 0.35 and rounds to 0.3.
func Round(v float64, places int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// Classify places co2 in one of the three bands below, near or above limit.
// Band upper bounds are inclusive.
func Classify(co2, limit float64) (Category, error) {
	if err := validate(co2, limit); err != nil {
		return "", err
	}

	margin := marginRatio * limit
	switch {
	case co2 <= limit-margin:
		return Pass, nil
	case co2 <= limit:
		return AtRisk, nil
	default:
		return Fail, nil
	}
}

// Evaluate runs Score and Classify on the same inputs.
func Evaluate(co2, limit float64) (Decision, error) {
	score, err := Score(co2, limit)
	if err != nil {
		return Decision{}, err
	}
	category, err := Classify(co2, limit)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Score: score, Category: category}, nil
}

// ValidateLimit reports whether limit can be used for scoring.
func ValidateLimit(limit float64) error {
	if limit <= 0 || math.IsNaN(limit) || math.IsInf(limit, 0) {
		return fmt.Errorf("%w: must be a finite value > 0, got %v", ErrInvalidLimit, limit)
	}
	return nil
}

// ValidateEstimate reports whether co2 is a usable estimate in g/km.
func ValidateEstimate(co2 float64) error {
	if co2 < 0 || math.IsNaN(co2) || math.IsInf(co2, 0) {
		return fmt.Errorf("%w: must be a finite value >= 0, got %v", ErrInvalidEstimate, co2)
	}
	return nil
}

func validate(co2, limit float64) error {
	if err := ValidateLimit(limit); err != nil {
		return err
	}
	return ValidateEstimate(co2)
}
