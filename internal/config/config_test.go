package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/festa/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8000")
			convey.So(cfg.CatalogTable, convey.ShouldEqual, "festivals")
			convey.So(cfg.UnpopularDistricts, convey.ShouldResemble, []int{3, 8, 9, 10, 22, 25})
			convey.So(cfg.DefaultTopN, convey.ShouldEqual, 5)
			convey.So(cfg.MaxTopN, convey.ShouldEqual, 50)
			convey.So(cfg.RateLimitWindow, convey.ShouldEqual, time.Minute)
			convey.So(cfg.MetricsEnabled, convey.ShouldBeTrue)
			convey.So(cfg.MetricsRefreshInterval, convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs that break one rule each", t, func() {
		cases := []struct {
			name   string
			mutate func(c *config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = "" }},
			{"unknown format", func(c *config.Config) { c.LogFormat = "xml" }},
			{"no catalog", func(c *config.Config) { c.CatalogPath = "" }},
			{"no matrix", func(c *config.Config) { c.MatrixPath = "" }},
			{"table injection", func(c *config.Config) { c.CatalogTable = "festivals; drop" }},
			{"zero max", func(c *config.Config) { c.MaxTopN = 0 }},
			{"default above max", func(c *config.Config) { c.DefaultTopN = 60 }},
			{"negative district", func(c *config.Config) { c.UnpopularDistricts = []int{-1} }},
			{"negative rate", func(c *config.Config) { c.RateLimitRequests = -1 }},
			{"rate without window", func(c *config.Config) { c.RateLimitWindow = 0 }},
			{"no metrics refresh", func(c *config.Config) { c.MetricsRefreshInterval = 0 }},
		}

		for _, tc := range cases {
			cfg := config.New()
			tc.mutate(cfg)
			err := cfg.Validate()

			convey.Convey("Then "+tc.name+" is rejected as invalid config", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}

		convey.Convey("Then disabling the rate limiter needs no window", func() {
			cfg := config.New()
			cfg.RateLimitRequests = 0
			cfg.RateLimitWindow = 0
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
