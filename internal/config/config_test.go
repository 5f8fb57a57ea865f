package config_test

import (
	"context"
	"errors"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/matchlog/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
			convey.So(cfg.WorkerCount, convey.ShouldBeBetweenOrEqual, 1, 4)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 1024)
			convey.So(cfg.DatabasePath, convey.ShouldEqual, "matchlog.sqlite3")
			convey.So(cfg.TryWindowSeconds, convey.ShouldEqual, 120.0)
			convey.So(cfg.TeamWindowSeconds, convey.ShouldEqual, 30.0)
			convey.So(cfg.OurTeamLabel, convey.ShouldEqual, "OUR_TEAM")
			convey.So(cfg.AMQPURL, convey.ShouldBeEmpty)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Origins(t *testing.T) {
	convey.Convey("Given a comma-separated origin list", t, func() {
		cfg := config.New(context.Background())
		cfg.CORSOrigins = " https://a.example.com, ,https://b.example.com "

		convey.So(cfg.Origins(), convey.ShouldResemble, []string{"https://a.example.com", "https://b.example.com"})

		cfg.CORSOrigins = ""
		convey.So(cfg.Origins(), convey.ShouldBeEmpty)
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with invalid values", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":      func(c *config.Config) { c.Addr = " " },
			"empty database":  func(c *config.Config) { c.DatabasePath = "" },
			"zero queue":      func(c *config.Config) { c.QueueSize = 0 },
			"zero workers":    func(c *config.Config) { c.WorkerCount = 0 },
			"negative window": func(c *config.Config) { c.BreakWindowSeconds = -1 },
			"unknown format":  func(c *config.Config) { c.LogFormat = "xml" },
		}
		for name, mutate := range cases {
			convey.Convey("Then "+name+" is rejected", func() {
				cfg := config.New(context.Background())
				mutate(cfg)
				err := cfg.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}
