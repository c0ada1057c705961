package cli

import (
	"encoding/json"
	"fmt"
	"os"

	urfave "github.com/urfave/cli/v2"

	service "github.com/okian/co2risk/internal/app"
	"github.com/okian/co2risk/internal/domain/model"
	"github.com/okian/co2risk/internal/domain/reasons"
)

var (
	vehiclesFileFlag = &urfave.StringFlag{
		Name:     "file",
		Usage:    "JSON file with an array of vehicles ({id, co2_pred_g_km, features})",
		Required: true,
	}

	batchPolicyFlag = &urfave.StringFlag{
		Name:  "policy",
		Usage: "Fleet policy key; adds a fleet summary when set",
	}

	batchCmd = &urfave.Command{
		Name:  "batch",
		Usage: "Decide every vehicle in a JSON file",
		Flags: []urfave.Flag{
			vehiclesFileFlag,
			batchPolicyFlag,
			limitFlag,
			modeFlag,
			modelFlag,
		},
		Action: cmdBatch,
	}
)

func cmdBatch(c *urfave.Context) error {
	mode, err := reasons.ParseMode(c.String(modeFlag.Name))
	if err != nil {
		return err
	}
	vehicles, err := readVehicles(c.String(vehiclesFileFlag.Name))
	if err != nil {
		return err
	}

	res, err := getService(c).DecideBatch(c.Context, service.BatchRequest{
		Model:    c.String(modelFlag.Name),
		Mode:     mode,
		LimitGKm: optionalLimit(c),
		Policy:   c.String(batchPolicyFlag.Name),
		Vehicles: vehicles,
	})
	if err != nil {
		return err
	}
	return encode(c, res)
}

func readVehicles(path string) ([]model.Vehicle, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var vehicles []model.Vehicle
	if err := json.Unmarshal(b, &vehicles); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return vehicles, nil
}
