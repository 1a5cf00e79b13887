package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/review360/internal/config"
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
				convey.So(cfg, convey.ShouldResemble, config.New())
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("REVIEW360_ADDR", ":8080")
			_ = os.Setenv("REVIEW360_MAX_SESSIONS", "25")
			_ = os.Setenv("REVIEW360_CONFIDENCE_LEVEL", "0.9")
			_ = os.Setenv("REVIEW360_EVALUATORS", "Self,Peers,Manager")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.MaxSessions, convey.ShouldEqual, 25)
				convey.So(cfg.ConfidenceLevel, convey.ShouldEqual, 0.9)
				convey.So(cfg.Evaluators, convey.ShouldResemble, []string{"Self", "Peers", "Manager"})
			})
		})

		convey.Convey("When list variables carry blanks and empty items", func() {
			_ = os.Setenv("REVIEW360_COMPETENCIES", " Ethics , Teamwork,,Communication ")
			_ = os.Setenv("REVIEW360_EVALUATORS", "Self, Peers")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then each list is split on commas and trimmed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Competencies, convey.ShouldResemble, []string{"Ethics", "Teamwork", "Communication"})
				convey.So(cfg.Evaluators, convey.ShouldResemble, []string{"Self", "Peers"})
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			yamlContent := `
# layout for the pilot team
addr: ":9090"
log_format: json
session_ttl_seconds: 3600
score_max: 10
competencies:
  - Leadership
  - Teamwork
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("REVIEW360_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values are merged over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.SessionTTLSeconds, convey.ShouldEqual, 3600)
				convey.So(cfg.ScoreMax, convey.ShouldEqual, 10.0)
				convey.So(cfg.ScoreMin, convey.ShouldEqual, 1.0)
				convey.So(cfg.Competencies, convey.ShouldResemble, []string{"Leadership", "Teamwork"})
			})
		})

		convey.Convey("When both file and environment variables are set", func() {
			tmpFile := createTempConfigFile("addr: \":9090\"\ntop_k: 5\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("REVIEW360_CONFIG", tmpFile)
			_ = os.Setenv("REVIEW360_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.TopK, convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When the YAML file is invalid", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("REVIEW360_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the file does not exist", func() {
			_ = os.Setenv("REVIEW360_CONFIG", "/nonexistent/review360.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When a numeric variable does not parse", func() {
			_ = os.Setenv("REVIEW360_MAX_SESSIONS", "lots")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the addr is emptied", func() {
			_ = os.Setenv("REVIEW360_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"REVIEW360_CONFIG",
		"REVIEW360_ADDR",
		"REVIEW360_MAX_SESSIONS",
		"REVIEW360_CONFIDENCE_LEVEL",
		"REVIEW360_EVALUATORS",
		"REVIEW360_COMPETENCIES",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "review360-config-*.yaml")
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
