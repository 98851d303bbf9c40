package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"shape-mapper/internal/config"
	"shape-mapper/internal/telemetry"
)

// app carries what every command needs once persistent flags are parsed.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "shape-mapper",
		Short:        "Map documents into new shapes with declarative rules",
		Long:         `shape-mapper reads JSON, YAML or CSV documents and rewrites them according to a YAML rule file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format (text, json)")

	root.AddCommand(newRunCmd(a), newValidateCmd(a), newFunctionsCmd())

	return root
}

// setup loads the configuration, lets flags override it and builds the
// logger on the command's error stream.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}

	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}

	logger, err := telemetry.NewLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	a.cfg, a.logger = cfg, logger

	return nil
}
