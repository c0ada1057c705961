package model

import "sort"

// FuelType is a single-letter fuel code and its display name.
type FuelType struct {
	Code string `json:"code" yaml:"code"`
	Name string `json:"name" yaml:"name"`
}

var fuelTypeNames = map[string]string{
	"X": "Regular gasoline",
	"Z": "Premium gasoline",
	"D": "Diesel",
	"E": "Ethanol (E85)",
	"N": "Natural gas",
}

// FuelTypeName returns the display name for a fuel code.
func FuelTypeName(code string) (string, bool) {
	name, ok := fuelTypeNames[code]
	return name, ok
}

// FuelTypes lists the known fuel codes ordered by code.
func FuelTypes() []FuelType {
	out := make([]FuelType, 0, len(fuelTypeNames))
	for code, name := range fuelTypeNames {
		out = append(out, FuelType{Code: code, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
