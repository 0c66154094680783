package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	service "github.com/okian/pitwall/internal/app"
	"github.com/okian/pitwall/pkg/logger"
)

func newBuildCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "build [track...]",
		Short: "Build track metadata and write it as JSON",
		Long:  "Build corners, braking points and sector statistics for the given tracks (default: configured tracks) and write them to one JSON file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "" {
				opts.cfg.OutputFile = output
			}
			return build(cmd.Context(), cmd.OutOrStdout(), opts, args)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output JSON file (default output_file)")
	return cmd
}

func build(ctx context.Context, out io.Writer, opts *rootOptions, tracks []string) error {
	svc := service.New(service.WithConfig(opts.cfg), service.WithLogger(opts.log.Named("service")))
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	built, buildErr := svc.BuildAll(ctx, tracks)

	names := lo.Keys(built)
	sort.Strings(names)
	for _, name := range names {
		meta := built[name]
		fmt.Fprintf(out, "%-14s corners=%-3d braking=%-3d zones=%-3d sectors=%-2d warnings=%d\n",
			name, len(meta.Corners), len(meta.BrakingPoints), len(meta.BrakingZones), len(meta.Sectors), len(meta.Warnings))
	}

	if len(built) > 0 {
		if err := svc.Export(ctx, opts.cfg.OutputFile); err != nil {
			return err
		}
		opts.log.Info(ctx, "track metadata exported",
			logger.String("path", opts.cfg.OutputFile),
			logger.Int("tracks", len(built)),
		)
	}
	return buildErr
}
