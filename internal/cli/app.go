// Package cli implements the co2risk command line tool.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	urfave "github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	service "github.com/okian/co2risk/internal/app"
	"github.com/okian/co2risk/internal/config"
	"github.com/okian/co2risk/pkg/logger"
)

const (
	appServiceKey = "service"

	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""

	debugFlag = &urfave.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs (optional, default: false)",
	}

	formatFlag = &urfave.StringFlag{
		Name:  "format",
		Usage: "Output format [json, yaml]",
		Value: formatJSON,
	}
)

// Execute creates and runs the CLI application.
func Execute() {
	app := NewApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// NewApp builds the CLI application. Output goes to the app's Writer.
func NewApp() *urfave.App {
	return &urfave.App{
		Name:                 "co2risk",
		Version:              fmt.Sprintf("%s (%s - %s)", version, commit, date),
		Compiled:             time.Now(),
		EnableBashCompletion: true,
		HideHelpCommand:      true,
		Usage:                "Score predicted CO₂ emissions and evaluate fleet compliance",
		Flags: []urfave.Flag{
			debugFlag,
			formatFlag,
		},
		Commands: []*urfave.Command{
			scoreCmd,
			batchCmd,
			fleetCmd,
			policiesCmd,
		},
		Before: func(c *urfave.Context) error {
			if err := initLogging(c.App.ErrWriter, c.Bool(debugFlag.Name)); err != nil {
				return err
			}
			switch f := strings.ToLower(c.String(formatFlag.Name)); f {
			case formatJSON, formatYAML, "yml":
			default:
				return fmt.Errorf("unknown format %q", f)
			}

			svc, err := newService(c.Context)
			if err != nil {
				return err
			}
			c.App.Metadata[appServiceKey] = svc
			return nil
		},
		After: func(c *urfave.Context) error {
			if svc, ok := c.App.Metadata[appServiceKey].(*service.Service); ok {
				svc.Stop()
			}
			return nil
		},
	}
}

func initLogging(w io.Writer, debug bool) error {
	if w == nil {
		w = os.Stderr
	}
	if err := logger.Init(logger.WithWriter(w)); err != nil {
		return err
	}
	level := "warn"
	if debug {
		level = "debug"
	}
	return logger.SetLevelString(level)
}

// newService builds a started service from the layered configuration.
func newService(ctx context.Context) (*service.Service, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	table, err := cfg.PolicyTable()
	if err != nil {
		return nil, err
	}
	svc := service.New(
		service.WithLogger(logger.Named("cli")),
		service.WithPolicyTable(table),
		service.WithDefaultLimit(cfg.DefaultLimitGKm),
		service.WithModelIDs(cfg.StrictModelID, cfg.FullModelID),
		service.WithBatchConcurrency(cfg.BatchConcurrency),
		service.WithMaxBatchSize(cfg.MaxBatchSize),
	)
	if err := svc.Start(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}

func getService(c *urfave.Context) *service.Service {
	return c.App.Metadata[appServiceKey].(*service.Service)
}

func encode(c *urfave.Context, v any) error {
	w := c.App.Writer
	if w == nil {
		w = os.Stdout
	}
	switch strings.ToLower(c.String(formatFlag.Name)) {
	case formatYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		e := json.NewEncoder(w)
		e.SetIndent("", "  ")
		return e.Encode(v)
	}
}
