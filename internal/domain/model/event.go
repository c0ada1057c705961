// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Canonical feature names.
const (
	FeatureMake            = "make"
	FeatureModel           = "model"
	FeatureVehicleClass    = "vehicle_class"
	FeatureTransmission    = "transmission"
	FeatureFuelType        = "fuel_type"
	FeatureEngineSize      = "engine_size_l"
	FeatureCylinders       = "cylinders"
	FeatureFuelConsumption = "fuel_consumption_comb_l_100km"
)

// featureAliases maps accepted spellings to canonical names. Catalog column
// headers and the JSON field names used by older clients are both accepted.
var featureAliases = map[string]string{
	"Make":                             FeatureMake,
	"Model":                            FeatureModel,
	"Vehicle Class":                    FeatureVehicleClass,
	"Vehicle_Class":                    FeatureVehicleClass,
	"Transmission":                     FeatureTransmission,
	"Fuel Type":                        FeatureFuelType,
	"Fuel_Type":                        FeatureFuelType,
	"Engine Size(L)":                   FeatureEngineSize,
	"Engine_Size_L":                    FeatureEngineSize,
	"Cylinders":                        FeatureCylinders,
	"Fuel Consumption Comb (L/100 km)": FeatureFuelConsumption,
	"Fuel_Consumption_Comb_L_100km":    FeatureFuelConsumption,
}

var numericFeatures = map[string]bool{
	FeatureEngineSize:      true,
	FeatureCylinders:       true,
	FeatureFuelConsumption: true,
}

// FeatureRow maps vehicle attribute names to the values used for prediction.
// Keys may be canonical names or any accepted alias.
type FeatureRow map[string]any

// Normalize returns a copy keyed by canonical names. Numeric features become
// float64, textual features become strings. Values that cannot be converted,
// and nil values, are left out so that rules see them as absent.
func (r FeatureRow) Normalize() map[string]any {
	out := make(map[string]any, len(r))
	for key, val := range r {
		if val == nil {
			continue
		}
		name := CanonicalName(key)
		if numericFeatures[name] {
			if f, ok := toFloat(val); ok {
				out[name] = f
			}
			continue
		}
		switch v := val.(type) {
		case string:
			out[name] = v
		case fmt.Stringer:
			out[name] = v.String()
		default:
			out[name] = fmt.Sprint(v)
		}
	}
	return out
}

// CanonicalName resolves an alias to its canonical feature name. Unknown keys
// are returned unchanged.
func CanonicalName(key string) string {
	if name, ok := featureAliases[key]; ok {
		return name
	}
	return key
}

func toFloat(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Vehicle is one upstream prediction: the CO₂ estimate and the feature row it
// was produced from.
type Vehicle struct {
	ID       string     `json:"id,omitempty"`
	CO2GKm   float64    `json:"co2_pred_g_km"`
	Features FeatureRow `json:"features,omitempty"`
}

// UnmarshalJSON requires co2_pred_g_km to be present and non-null so a
// missing estimate is never read as 0 g/km.
func (v *Vehicle) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID       string     `json:"id"`
		CO2GKm   *float64   `json:"co2_pred_g_km"`
		Features FeatureRow `json:"features"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.CO2GKm == nil {
		if raw.ID != "" {
			return fmt.Errorf("%w: vehicle %s", ErrMissingEstimate, raw.ID)
		}
		return ErrMissingEstimate
	}
	*v = Vehicle{ID: raw.ID, CO2GKm: *raw.CO2GKm, Features: raw.Features}
	return nil
}
