package config_test

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/plotpath/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.StableTTL(), convey.ShouldEqual, 90*24*time.Hour)
			convey.So(cfg.VolatileTTL(), convey.ShouldEqual, 7*24*time.Hour)
			convey.So(cfg.EscalationThreshold, convey.ShouldEqual, 2)
			convey.So(cfg.GoMatchThreshold, convey.ShouldEqual, 0.8)
			convey.So(cfg.GoDesirabilityThreshold, convey.ShouldEqual, 6.0)
			convey.So(cfg.NoGoRequiredThreshold, convey.ShouldEqual, 0.5)
			convey.So(cfg.Extraction.Provider, convey.ShouldEqual, config.ProviderStatic)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the stock factor set has eight equally weighted factors", func() {
			convey.So(len(cfg.Factors), convey.ShouldEqual, 8)
			for _, f := range cfg.Factors {
				convey.So(f.Weight, convey.ShouldEqual, 1.0)
				convey.So(f.TTL(), convey.ShouldEqual, time.Duration(0))
			}
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("When a factor weight is out of range", func() {
			cfg.Factors[0].Weight = 2.5
			err := cfg.Validate()

			convey.Convey("Then validation fails with ErrInvalidConfig", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "weight must be within [0,2]")
			})
		})

		convey.Convey("When two factors share a key", func() {
			cfg.Factors[1].Key = cfg.Factors[0].Key
			err := cfg.Validate()

			convey.Convey("Then the duplicate is reported", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "duplicate key")
			})
		})

		convey.Convey("When volatility is unknown", func() {
			cfg.Factors[2].Volatility = "SOMETIMES"
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When the provider is unknown", func() {
			cfg.Extraction.Provider = "oracle"
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When thresholds leave their ranges", func() {
			cfg.GoMatchThreshold = 1.5
			cfg.GoDesirabilityThreshold = 0
			cfg.EscalationThreshold = 0
			err := cfg.Validate()

			convey.Convey("Then every problem is listed", func() {
				convey.So(err.Error(), convey.ShouldContainSubstring, "go_match_threshold")
				convey.So(err.Error(), convey.ShouldContainSubstring, "go_desirability_threshold")
				convey.So(err.Error(), convey.ShouldContainSubstring, "escalation_threshold")
			})
		})

		convey.Convey("When all factors are removed", func() {
			cfg.Factors = nil
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})
	})
}
