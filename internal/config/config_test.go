package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/casetag/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should carry the pipeline defaults", func() {
			convey.So(cfg.BatchSize, convey.ShouldEqual, 5)
			convey.So(cfg.Concurrency, convey.ShouldEqual, 3)
			convey.So(cfg.BatchPause(), convey.ShouldEqual, 2*time.Second)
			convey.So(cfg.SampleSeed, convey.ShouldEqual, 42)
			convey.So(cfg.DiscoverySampleSize, convey.ShouldEqual, 10)
			convey.So(cfg.RequestTimeout(), convey.ShouldEqual, 120*time.Second)
			convey.So(cfg.DiscoveryTimeout(), convey.ShouldEqual, 60*time.Second)
			convey.So(cfg.Provider, convey.ShouldEqual, config.ProviderAnthropic)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the simulated latency bounds convert to durations", func() {
			lo, hi := cfg.SimulatedLatency()
			convey.So(lo, convey.ShouldEqual, 80*time.Millisecond)
			convey.So(hi, convey.ShouldEqual, 150*time.Millisecond)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with invalid settings", t, func() {
		cases := []struct {
			name   string
			mutate func(c *config.Config)
		}{
			{"zero batch size", func(c *config.Config) { c.BatchSize = 0 }},
			{"zero concurrency", func(c *config.Config) { c.Concurrency = 0 }},
			{"concurrency over batch", func(c *config.Config) { c.Concurrency = 9 }},
			{"negative pause", func(c *config.Config) { c.BatchPauseMS = -1 }},
			{"threshold above one", func(c *config.Config) { c.ConfidenceThreshold = 1.5 }},
			{"zero timeout", func(c *config.Config) { c.RequestTimeoutMS = 0 }},
			{"unknown provider", func(c *config.Config) { c.Provider = "oracle-of-delphi" }},
			{"empty work dir", func(c *config.Config) { c.WorkDir = "" }},
			{"inverted latency", func(c *config.Config) { c.SimulatedLatencyMaxMS = 10 }},
		}
		for _, tc := range cases {
			cfg := config.New()
			tc.mutate(cfg)

			convey.Convey("Then "+tc.name+" is rejected", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}

func TestConfig_ValidateCredentials(t *testing.T) {
	convey.Convey("Given provider credentials", t, func() {
		cfg := config.New()

		convey.Convey("When the anthropic key is missing", func() {
			cfg.APIKey = ""
			convey.So(errors.Is(cfg.ValidateCredentials(), config.ErrMissingCredential), convey.ShouldBeTrue)
		})

		convey.Convey("When the anthropic key has the wrong prefix", func() {
			cfg.APIKey = "pk-123"
			convey.So(errors.Is(cfg.ValidateCredentials(), config.ErrMalformedCredential), convey.ShouldBeTrue)
		})

		convey.Convey("When the key contains whitespace", func() {
			cfg.APIKey = "sk-abc def"
			convey.So(errors.Is(cfg.ValidateCredentials(), config.ErrMalformedCredential), convey.ShouldBeTrue)
		})

		convey.Convey("When the anthropic key is well formed", func() {
			cfg.APIKey = "sk-ant-123"
			convey.So(cfg.ValidateCredentials(), convey.ShouldBeNil)
		})

		convey.Convey("When the gemini key is present", func() {
			cfg.Provider = config.ProviderGemini
			cfg.APIKey = "AIza-test"
			convey.So(cfg.ValidateCredentials(), convey.ShouldBeNil)
		})

		convey.Convey("When the simulated provider is used", func() {
			cfg.Provider = config.ProviderSimulated
			cfg.APIKey = ""
			convey.So(cfg.ValidateCredentials(), convey.ShouldBeNil)
		})
	})
}
