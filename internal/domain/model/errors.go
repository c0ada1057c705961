package model

import "errors"

// Sentinel kinds for model decoding errors.
var (
	ErrMissingEstimate = errors.New("missing co2_pred_g_km")
)
