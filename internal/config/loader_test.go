package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/co2risk/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.DefaultLimitGKm, convey.ShouldEqual, 200.0)
				convey.So(cfg.FleetTargets, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("CO2RISK_ADDR", ":8080")
			_ = os.Setenv("CO2RISK_DEFAULT_LIMIT_G_KM", "130")
			_ = os.Setenv("CO2RISK_PENALTY_RATE_PER_GRAM", "100")
			_ = os.Setenv("CO2RISK_BATCH_CONCURRENCY", "4")
			_ = os.Setenv("CO2RISK_LOG_FORMAT", "json")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.DefaultLimitGKm, convey.ShouldEqual, 130.0)
				convey.So(cfg.PenaltyRatePerGram, convey.ShouldEqual, 100.0)
				convey.So(cfg.BatchConcurrency, convey.ShouldEqual, 4)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
default_limit_g_km: 180
full_model_id: gbr_full_v2
fleet_targets:
  CITY_2030: 70
  CITY_2035: 35.5
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("CO2RISK_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file and keep other defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.DefaultLimitGKm, convey.ShouldEqual, 180.0)
				convey.So(cfg.FullModelID, convey.ShouldEqual, "gbr_full_v2")
				convey.So(cfg.StrictModelID, convey.ShouldEqual, "rf_strict_v1")
			})

			convey.Convey("And the file targets replace the built-in table", func() {
				table, err := cfg.PolicyTable()
				convey.So(err, convey.ShouldBeNil)
				convey.So(table.Len(), convey.ShouldEqual, 2)
				p, err := table.Lookup("CITY_2035")
				convey.So(err, convey.ShouldBeNil)
				convey.So(p.TargetGKm, convey.ShouldEqual, 35.5)
			})
		})

		convey.Convey("When both file and environment variables are set", func() {
			tmpFile := createTempConfigFile("addr: \":9090\"\ndefault_limit_g_km: 180\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("CO2RISK_CONFIG", tmpFile)
			_ = os.Setenv("CO2RISK_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.DefaultLimitGKm, convey.ShouldEqual, 180.0)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("CO2RISK_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("CO2RISK_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("CO2RISK_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the default limit is not positive", func() {
			_ = os.Setenv("CO2RISK_DEFAULT_LIMIT_G_KM", "-5")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("CO2RISK_BATCH_CONCURRENCY", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"CO2RISK_CONFIG",
		"CO2RISK_ADDR",
		"CO2RISK_DEFAULT_LIMIT_G_KM",
		"CO2RISK_PENALTY_RATE_PER_GRAM",
		"CO2RISK_BATCH_CONCURRENCY",
		"CO2RISK_LOG_FORMAT",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "co2risk-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
