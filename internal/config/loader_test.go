package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/casetag/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.BatchSize, convey.ShouldEqual, 5)
				convey.So(cfg.Concurrency, convey.ShouldEqual, 3)
				convey.So(cfg.WorkDir, convey.ShouldEqual, ".")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("CASETAG_BATCH_SIZE", "8")
			_ = os.Setenv("CASETAG_CONCURRENCY", "4")
			_ = os.Setenv("CASETAG_PROVIDER", "simulated")
			_ = os.Setenv("CASETAG_CONFIDENCE_THRESHOLD", "0.55")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.BatchSize, convey.ShouldEqual, 8)
				convey.So(cfg.Concurrency, convey.ShouldEqual, 4)
				convey.So(cfg.Provider, convey.ShouldEqual, config.ProviderSimulated)
				convey.So(cfg.ConfidenceThreshold, convey.ShouldEqual, 0.55)
			})
		})

		convey.Convey("When loading config with a YAML file and env overrides", func() {
			tmpFile := createTempConfigFile(`
work_dir: /tmp/casetag
batch_size: 10
concurrency: 2
sample_seed: 7
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("CASETAG_CONFIG", tmpFile)
			_ = os.Setenv("CASETAG_CONCURRENCY", "5")

			cfg, err := config.Load(ctx)

			convey.Convey("Then env wins over the file and the file over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.WorkDir, convey.ShouldEqual, "/tmp/casetag")
				convey.So(cfg.BatchSize, convey.ShouldEqual, 10)
				convey.So(cfg.Concurrency, convey.ShouldEqual, 5)
				convey.So(cfg.SampleSeed, convey.ShouldEqual, 7)
				convey.So(cfg.DiscoverySampleSize, convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When the YAML file is invalid", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("CASETAG_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the YAML file does not exist", func() {
			_ = os.Setenv("CASETAG_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When a numeric env var is not a number", func() {
			_ = os.Setenv("CASETAG_BATCH_SIZE", "lots")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When validation fails", func() {
			_ = os.Setenv("CASETAG_CONCURRENCY", "6")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the key comes from the conventional provider variable", func() {
			_ = os.Setenv("ANTHROPIC_API_KEY", "sk-from-env")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it is picked up", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.APIKey, convey.ShouldEqual, "sk-from-env")
				convey.So(cfg.ValidateCredentials(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When CASETAG_API_KEY is set as well", func() {
			_ = os.Setenv("ANTHROPIC_API_KEY", "sk-from-env")
			_ = os.Setenv("CASETAG_API_KEY", "sk-explicit")

			cfg, err := config.Load(ctx)

			convey.Convey("Then the explicit key wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.APIKey, convey.ShouldEqual, "sk-explicit")
			})
		})
	})
}

// createTempConfigFile creates a temporary YAML config file for testing.
func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "casetag-config-*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = tmpFile.Close() }()

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}

// clearConfigEnvVars clears all config-related environment variables.
func clearConfigEnvVars() {
	for _, key := range []string{
		"CASETAG_CONFIG",
		"CASETAG_BATCH_SIZE",
		"CASETAG_CONCURRENCY",
		"CASETAG_PROVIDER",
		"CASETAG_CONFIDENCE_THRESHOLD",
		"CASETAG_API_KEY",
		"ANTHROPIC_API_KEY",
		"GEMINI_API_KEY",
	} {
		_ = os.Unsetenv(key)
	}
}
