package reasons

// Rule identifiers for the built-in table.
const (
	RuleFuelConsumption = "fuel_consumption"
	RuleEngineSize      = "engine_size"
	RuleCylinders       = "cylinders"
	RuleVehicleClass    = "vehicle_class"
	RuleFuelType        = "fuel_type"
)

// FallbackMessage is returned when no rule triggers.
const FallbackMessage = "Emissions are mainly influenced by engine and efficiency-related factors."

// Rule is one explanation candidate. Expression is a CEL predicate over the
// normalized feature row, available as the map variable "row". Lower
// priorities are reported first.
type Rule struct {
	ID         string
	Priority   int
	FullOnly   bool
	Expression string
	Message    string
}

// DefaultRules returns the built-in rule table.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:         RuleFuelConsumption,
			Priority:   0,
			FullOnly:   true,
			Expression: `has(row.fuel_consumption_comb_l_100km) && row.fuel_consumption_comb_l_100km >= 9.0`,
			Message:    "High combined fuel consumption is the main driver of CO₂ emissions.",
		},
		{
			ID:         RuleEngineSize,
			Priority:   10,
			Expression: `has(row.engine_size_l) && row.engine_size_l >= 3.0`,
			Message:    "Large engine size increases CO₂ emissions.",
		},
		{
			ID:         RuleCylinders,
			Priority:   20,
			Expression: `has(row.cylinders) && row.cylinders >= 6.0`,
			Message:    "Higher cylinder count usually increases fuel use and CO₂.",
		},
		{
			ID:       RuleVehicleClass,
			Priority: 30,
			Expression: `has(row.vehicle_class) && (row.vehicle_class.contains("SUV") ||
				row.vehicle_class.contains("VAN") || row.vehicle_class.contains("PICKUP"))`,
			Message: "Vehicle class (SUV/Van/Pickup) tends to have higher emissions.",
		},
		{
			ID:         RuleFuelType,
			Priority:   40,
			FullOnly:   true,
			Expression: `has(row.fuel_type) && row.fuel_type in ["D", "E"]`,
			Message:    "Fuel type affects CO₂ output (diesel/ethanol blends can differ).",
		},
	}
}
