package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/passport/internal/config"
	"github.com/MrEthical07/passport/internal/logging"
)

type rootOptions struct {
	configPath string
	debug      bool
	logLevel   string
	logFormat  string

	cfg    config.File
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "passport",
		Short: "passport: credential sign-in and session service",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Server.LogLevel = opts.logLevel
			}
			if cmd.Flags().Changed("log-format") {
				cfg.Server.LogFormat = opts.logFormat
			}
			if opts.debug {
				cfg.Server.LogLevel = "debug"
			}
			opts.cfg = cfg
			opts.logger = logging.NewLoggerWithWriter(logging.ParseLevel(cfg.Server.LogLevel), cfg.Server.LogFormat, cmd.ErrOrStderr())
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to YAML config file")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Shorthand for --log-level=debug")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newServeCmd(opts),
		newHashPasswordCmd(opts),
		newMigrateCmd(opts),
	)
	return root
}
