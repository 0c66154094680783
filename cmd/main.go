package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/pitwall/internal/config"
	"github.com/okian/pitwall/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// rootOptions holds persistent flags and the state they produce.
type rootOptions struct {
	configFile string
	dataDir    string
	logLevel   string
	logFormat  string

	cfg *config.Config
	log logger.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:          "pitwall",
		Short:        "Track metadata and pit strategy from race telemetry",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "",
		"YAML config file (default from "+config.EnvConfig+")")
	rootCmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "",
		"directory with telemetry, sector and lap parquet files")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "",
		"log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "",
		"log format: text or json")

	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newBuildCmd(opts))
	rootCmd.AddCommand(newStrategyCmd(opts))
	rootCmd.AddCommand(newSynthCmd(opts))
	return rootCmd
}

// setup loads configuration (defaults -> file -> env -> flags) and sets up logging.
func (o *rootOptions) setup(cmd *cobra.Command) error {
	if o.configFile != "" {
		if err := os.Setenv(config.EnvConfig, o.configFile); err != nil {
			return fmt.Errorf("set %s: %w", config.EnvConfig, err)
		}
	}

	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return err
	}
	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		cfg.LogFormat = o.logFormat
	}

	if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr()), logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	o.log = logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		o.log.Warn(cmd.Context(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	o.cfg = cfg
	return nil
}
