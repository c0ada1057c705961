package cli

import (
	"fmt"
	"strings"

	urfave "github.com/urfave/cli/v2"

	service "github.com/okian/co2risk/internal/app"
	"github.com/okian/co2risk/internal/domain/model"
	"github.com/okian/co2risk/internal/domain/reasons"
)

var (
	co2Flag = &urfave.Float64Flag{
		Name:     "co2",
		Usage:    "Predicted CO₂ emissions in g/km",
		Required: true,
	}

	limitFlag = &urfave.Float64Flag{
		Name:  "limit",
		Usage: "Regulatory limit in g/km (optional, default from config)",
	}

	modeFlag = &urfave.StringFlag{
		Name:  "mode",
		Usage: "Feature mode [STRICT, FULL]",
		Value: string(reasons.Strict),
	}

	modelFlag = &urfave.StringFlag{
		Name:  "model",
		Usage: "Model id to report (optional, default per mode)",
	}

	featureFlag = &urfave.StringSliceFlag{
		Name:    "feature",
		Aliases: []string{"f"},
		Usage:   "Vehicle feature as key=value, repeatable (e.g. -f engine_size_l=3.5 -f vehicle_class=SUV)",
	}

	scoreCmd = &urfave.Command{
		Name:    "score",
		Aliases: []string{"s"},
		Usage:   "Decide risk, compliance and reasons for one vehicle",
		Flags: []urfave.Flag{
			co2Flag,
			limitFlag,
			modeFlag,
			modelFlag,
			featureFlag,
		},
		Action: cmdScore,
	}
)

func cmdScore(c *urfave.Context) error {
	mode, err := reasons.ParseMode(c.String(modeFlag.Name))
	if err != nil {
		return err
	}
	features, err := parseFeatures(c.StringSlice(featureFlag.Name))
	if err != nil {
		return err
	}

	d, err := getService(c).Decide(c.Context, service.DecisionRequest{
		Model:    c.String(modelFlag.Name),
		Mode:     mode,
		CO2GKm:   c.Float64(co2Flag.Name),
		LimitGKm: optionalLimit(c),
		Features: features,
	})
	if err != nil {
		return err
	}
	return encode(c, d)
}

func optionalLimit(c *urfave.Context) *float64 {
	if !c.IsSet(limitFlag.Name) {
		return nil
	}
	v := c.Float64(limitFlag.Name)
	return &v
}

// parseFeatures turns key=value pairs into a feature row. Values stay
// strings; numeric features are converted during normalization.
func parseFeatures(pairs []string) (model.FeatureRow, error) {
	row := make(model.FeatureRow, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid feature %q, expected key=value", p)
		}
		row[k] = strings.TrimSpace(v)
	}
	return row, nil
}
