package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/pitwall/internal/adapters/http/api"
	"github.com/okian/pitwall/internal/adapters/http/swagger"
	service "github.com/okian/pitwall/internal/app"
	"github.com/okian/pitwall/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 30 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var skipBuild bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Build track metadata and serve it over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), opts, skipBuild)
		},
	}
	cmd.Flags().BoolVar(&skipBuild, "skip-build", false, "do not build configured tracks at startup")
	return cmd
}

func serve(ctx context.Context, opts *rootOptions, skipBuild bool) error {
	cfg, log := opts.cfg, opts.log

	svc := service.New(service.WithConfig(cfg), service.WithLogger(log.Named("service")))
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	go startServiceMetricsUpdater(ctx, svc)

	if !skipBuild {
		go buildAtStartup(ctx, svc, opts)
	}

	mux := http.NewServeMux()
	swagger.Register(mux)
	api.NewServer(svc).Register(mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			return err
		}
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
		return err
	}

	log.Info(ctx, "server stopped")
	return nil
}

// buildAtStartup builds the configured tracks and exports them. Failures are
// logged; the server keeps serving whatever was built.
func buildAtStartup(ctx context.Context, svc *service.Service, opts *rootOptions) {
	built, err := svc.BuildAll(ctx, opts.cfg.Tracks)
	if err != nil {
		opts.log.Warn(ctx, "startup build incomplete", logger.Error(err))
	}
	if len(built) == 0 {
		return
	}
	if err := svc.Export(ctx, opts.cfg.OutputFile); err != nil {
		opts.log.Error(ctx, "export failed", logger.String("path", opts.cfg.OutputFile), logger.Error(err))
		return
	}
	opts.log.Info(ctx, "track metadata exported",
		logger.String("path", opts.cfg.OutputFile),
		logger.Int("tracks", len(built)),
	)
}

// startServiceMetricsUpdater refreshes queue and worker gauges until ctx ends.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// GetStats updates the gauges as a side effect.
			_ = svc.GetStats()
		}
	}
}
