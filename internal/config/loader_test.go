package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	config "github.com/pitchline/pitchline/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoadDefaults(t *testing.T) {
	Convey("Given no file and no environment overrides", t, func() {
		cfg, err := config.Load(context.Background())
		So(err, ShouldBeNil)

		Convey("Then the defaults apply", func() {
			So(cfg.Addr, ShouldEqual, ":9090")
			So(cfg.LogLevel, ShouldEqual, "info")
			So(cfg.MaxConcurrent, ShouldBeGreaterThan, 0)
			So(cfg.BacklogLimit, ShouldEqual, 256)
			So(cfg.TickRate, ShouldEqual, 60)
			So(cfg.QueueCapacity, ShouldEqual, 1024)
			So(cfg.ThrottleWindowMS, ShouldEqual, 1000)
			So(cfg.ThrottleMaxRequests, ShouldEqual, 10)
			So(cfg.SubscriberBuffer, ShouldEqual, 64)
			So(cfg.StreamRetentionS, ShouldEqual, 120)
			So(cfg.EnableStatistics, ShouldBeTrue)
			So(cfg.EnableCommentary, ShouldBeFalse)
		})
	})
}

func TestLoadEnvOverrides(t *testing.T) {
	Convey("Given environment overrides", t, func() {
		t.Setenv("PITCHLINE_ADDR", ":7070")
		t.Setenv("PITCHLINE_MAX_CONCURRENT", "2")
		t.Setenv("PITCHLINE_LOG_LEVEL", "debug")
		t.Setenv("PITCHLINE_THROTTLE_MAX_REQUESTS", "25")

		cfg, err := config.Load(context.Background())
		So(err, ShouldBeNil)

		Convey("Then they take precedence over defaults", func() {
			So(cfg.Addr, ShouldEqual, ":7070")
			So(cfg.MaxConcurrent, ShouldEqual, 2)
			So(cfg.LogLevel, ShouldEqual, "debug")
			So(cfg.ThrottleMaxRequests, ShouldEqual, 25)

			// Untouched fields keep their defaults.
			So(cfg.TickRate, ShouldEqual, 60)
		})
	})
}

func TestLoadFile(t *testing.T) {
	Convey("Given a YAML config file", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "pitchline.yaml")
		content := []byte("addr: \":6060\"\nbacklog_limit: 16\ntick_rate: 30\n")
		So(os.WriteFile(path, content, 0o600), ShouldBeNil)
		t.Setenv("PITCHLINE_CONFIG", path)

		Convey("Then its values layer over the defaults", func() {
			cfg, err := config.Load(context.Background())
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":6060")
			So(cfg.BacklogLimit, ShouldEqual, 16)
			So(cfg.TickRate, ShouldEqual, 30)
			So(cfg.QueueCapacity, ShouldEqual, 1024)
		})

		Convey("And environment variables still win over the file", func() {
			t.Setenv("PITCHLINE_ADDR", ":5050")
			cfg, err := config.Load(context.Background())
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":5050")
			So(cfg.BacklogLimit, ShouldEqual, 16)
		})
	})

	Convey("Given a missing config file", t, func() {
		t.Setenv("PITCHLINE_CONFIG", "/nonexistent/pitchline.yaml")

		_, err := config.Load(context.Background())
		So(err, ShouldWrap, config.ErrLoadConfig)
	})
}

func TestLoadValidation(t *testing.T) {
	Convey("Given invalid configuration values", t, func() {
		Convey("A non-positive max_concurrent is rejected", func() {
			t.Setenv("PITCHLINE_MAX_CONCURRENT", "0")
			_, err := config.Load(context.Background())
			So(err, ShouldWrap, config.ErrInvalidConfig)
		})

		Convey("A non-positive tick_rate is rejected", func() {
			t.Setenv("PITCHLINE_TICK_RATE", "-5")
			_, err := config.Load(context.Background())
			So(err, ShouldWrap, config.ErrInvalidConfig)
		})

		Convey("An empty addr is rejected", func() {
			t.Setenv("PITCHLINE_ADDR", "")
			_, err := config.Load(context.Background())
			So(err, ShouldWrap, config.ErrInvalidConfig)
		})
	})
}
