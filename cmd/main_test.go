package main

import (
	"context"
	"os"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/courtside/courtside/internal/adapters/eventstore"
	app "github.com/courtside/courtside/internal/app"
	"github.com/courtside/courtside/internal/config"
	"github.com/courtside/courtside/pkg/logger"
)

func init() {
	_ = logger.Init()
}

func TestMainWiring(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("COURTSIDE_ADDR", ":8080")
			_ = os.Setenv("COURTSIDE_TOLERANCE_SECONDS", "45")
			defer func() {
				_ = os.Unsetenv("COURTSIDE_ADDR")
				_ = os.Unsetenv("COURTSIDE_TOLERANCE_SECONDS")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())

				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.ToleranceSeconds, convey.ShouldEqual, 45)
			})
		})

		convey.Convey("When building the default store", func() {
			cfg := config.New()

			store, cleanup, err := buildStore(context.Background(), cfg, logger.Get())
			defer cleanup()

			convey.Convey("Then it should be the in-memory backend", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(store, convey.ShouldHaveSameTypeAs, &eventstore.MemoryStore{})
			})
		})

		convey.Convey("When testing service creation", func() {
			convey.Convey("Then service should be creatable with default options", func() {
				svc := app.New()
				convey.So(svc, convey.ShouldNotBeNil)
			})
		})
	})
}
