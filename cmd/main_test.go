package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	service "github.com/okian/pitwall/internal/app"
	"github.com/okian/pitwall/internal/config"
	"github.com/okian/pitwall/internal/domain/strategy"
	"github.com/okian/pitwall/pkg/logger"
)

func run(ctx context.Context, args ...string) (string, error) {
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func TestCommands(t *testing.T) {
	convey.Convey("Given a synthetic dataset", t, func() {
		ctx := context.Background()
		dir := t.TempDir()

		out, err := run(ctx, "synth", "--data-dir", dir, "--tracks", "sonoma,indy", "--laps", "2")
		convey.So(err, convey.ShouldBeNil)
		convey.So(out, convey.ShouldContainSubstring, "telemetry_sonoma_R1.parquet")
		convey.So(out, convey.ShouldContainSubstring, "laps.parquet")

		convey.Convey("build writes metadata for the requested tracks", func() {
			output := filepath.Join(dir, "out", "meta.json")
			out, err := run(ctx, "build", "--data-dir", dir, "-o", output, "sonoma", "indy")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "sonoma")
			convey.So(out, convey.ShouldContainSubstring, "corners=8")
			convey.So(out, convey.ShouldContainSubstring, "zones=8")

			data, err := os.ReadFile(output)
			convey.So(err, convey.ShouldBeNil)
			var doc map[string]map[string]json.RawMessage
			convey.So(json.Unmarshal(data, &doc), convey.ShouldBeNil)
			convey.So(doc, convey.ShouldContainKey, "sonoma")
			convey.So(doc, convey.ShouldContainKey, "indy")
			convey.So(doc["sonoma"], convey.ShouldContainKey, "braking_points")
		})

		convey.Convey("build of a track without telemetry still succeeds", func() {
			output := filepath.Join(dir, "barber.json")
			out, err := run(ctx, "build", "--data-dir", dir, "-o", output, "barber")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "warnings=3")
		})

		convey.Convey("strategy prints the comparison table", func() {
			out, err := run(ctx, "strategy", "--data-dir", dir, "--track", "indy", "--car", "7", "--laps", "20")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "STRATEGY")
			convey.So(out, convey.ShouldContainSubstring, "best:")
		})

		convey.Convey("strategy can print JSON", func() {
			out, err := run(ctx, "strategy", "--data-dir", dir, "--track", "indy", "--car", "7", "--json")
			convey.So(err, convey.ShouldBeNil)
			var res strategy.Result
			convey.So(json.Unmarshal([]byte(out), &res), convey.ShouldBeNil)
			convey.So(res.RaceLaps, convey.ShouldEqual, config.New().Strategy.RaceLaps)
			convey.So(res.Comparison, convey.ShouldNotBeEmpty)
		})

		convey.Convey("strategy lists cars", func() {
			out, err := run(ctx, "strategy", "--data-dir", dir, "--track", "indy", "--list-cars")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldEqual, "13\n7\n")
		})

		convey.Convey("strategy fails for an unknown car", func() {
			_, err := run(ctx, "strategy", "--data-dir", dir, "--track", "indy", "--car", "99")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("strategy requires a car", func() {
			_, err := run(ctx, "strategy", "--data-dir", dir, "--track", "indy")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestRootOptions(t *testing.T) {
	convey.Convey("Given root flags", t, func() {
		convey.Convey("an invalid log format is rejected", func() {
			_, err := run(context.Background(), "synth", "--data-dir", t.TempDir(), "--log-format", "xml")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("a missing config file is rejected", func() {
			t.Setenv(config.EnvConfig, "")
			_, err := run(context.Background(), "synth", "--config", filepath.Join(t.TempDir(), "none.yaml"))
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestServiceMetricsUpdater(t *testing.T) {
	convey.Convey("Given a service", t, func() {
		convey.So(logger.Init(logger.WithWriter(&bytes.Buffer{})), convey.ShouldBeNil)
		svc := service.New()

		convey.Convey("the updater returns once the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			convey.So(func() { startServiceMetricsUpdater(ctx, svc) }, convey.ShouldNotPanic)
		})
	})
}
