package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	service "github.com/okian/pitwall/internal/app"
	"github.com/okian/pitwall/internal/domain/strategy"
)

type strategyFlags struct {
	track    string
	car      string
	laps     int
	asJSON   bool
	listCars bool
}

func newStrategyCmd(opts *rootOptions) *cobra.Command {
	f := &strategyFlags{}

	cmd := &cobra.Command{
		Use:   "strategy",
		Short: "Compare 0, 1 and 2 stop pit strategies for one car",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStrategy(cmd.Context(), cmd.OutOrStdout(), opts, f)
		},
	}
	cmd.Flags().StringVar(&f.track, "track", "", "track name")
	cmd.Flags().StringVar(&f.car, "car", "", "car number")
	cmd.Flags().IntVar(&f.laps, "laps", 0, "race length in laps (default strategy.race_laps)")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print the full result as JSON")
	cmd.Flags().BoolVar(&f.listCars, "list-cars", false, "list cars with lap data on the track and exit")
	_ = cmd.MarkFlagRequired("track")
	return cmd
}

func runStrategy(ctx context.Context, out io.Writer, opts *rootOptions, f *strategyFlags) error {
	if f.laps < 0 {
		return errors.New("--laps must not be negative")
	}
	svc := service.New(service.WithConfig(opts.cfg), service.WithLogger(opts.log.Named("service")))

	if f.listCars {
		cars, err := svc.Cars(ctx, f.track)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, strings.Join(cars, "\n"))
		return nil
	}
	if f.car == "" {
		return errors.New("--car is required")
	}

	res, err := svc.Strategy(ctx, f.track, f.car, f.laps)
	if err != nil {
		return err
	}
	if f.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	return printComparison(out, f.track, f.car, res)
}

func printComparison(out io.Writer, track, car string, res strategy.Result) error {
	fmt.Fprintf(out, "track %s car %s: %d laps, pit loss %.1fs (%s), pace %.3fs + %.3fs/lap\n",
		track, car, res.RaceLaps, res.PitLoss, res.PitLossSource, res.Model.Intercept, res.Model.Slope)
	if res.Fillers > 0 {
		fmt.Fprintf(out, "note: %d filler laps padded a sparse history\n", res.Fillers)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STRATEGY\tSTOPS\tSTOP LAPS\tTOTAL (s)\tTOTAL (min)")
	for _, row := range res.Comparison {
		laps := strings.Join(lo.Map(row.StopLaps, func(l int, _ int) string { return fmt.Sprint(l) }), ",")
		if laps == "" {
			laps = "-"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%.1f\t%.2f\n", row.Strategy, row.StopCount, laps, row.TotalSeconds, row.TotalMinutes)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "best: %s (%.1fs)\n", res.Best.Strategy, res.Best.TotalSeconds)
	return nil
}
