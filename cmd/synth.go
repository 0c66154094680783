package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/pitwall/internal/synth"
	"github.com/okian/pitwall/pkg/logger"
)

func newSynthCmd(opts *rootOptions) *cobra.Command {
	var (
		tracks   []string
		cars     []int
		laps     int
		raceLaps int
		pitLap   int
	)

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Write a synthetic parquet dataset into the data directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir := opts.cfg.DataDir
			sum, err := synth.Generate(dir,
				synth.WithTracks(tracks...),
				synth.WithCars(cars...),
				synth.WithLaps(laps),
				synth.WithRaceLaps(raceLaps, pitLap),
			)
			if err != nil {
				return err
			}
			opts.log.Info(cmd.Context(), "synthetic dataset written",
				logger.String("dir", dir),
				logger.Int("files", len(sum.Files)),
				logger.Int("samples", sum.Samples),
			)
			for _, f := range sum.Files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&tracks, "tracks", synth.DefaultTracks, "tracks to generate")
	cmd.Flags().IntSliceVar(&cars, "cars", []int{7, 13}, "car numbers")
	cmd.Flags().IntVar(&laps, "laps", 3, "telemetry laps per car")
	cmd.Flags().IntVar(&raceLaps, "race-laps", 20, "laps per car in the lap table")
	cmd.Flags().IntVar(&pitLap, "pit-lap", 10, "lap with the pit stop")
	return cmd
}
