// Package cli wires the ondevice-update commands.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"ondevice-update/internal/config"
	"ondevice-update/internal/logger"
)

// Version is set from main.
var Version = "0.1.0"

type globalFlags struct {
	cfgFile   string
	preset    string
	logLevel  string
	logFormat string
}

// ExecuteContext runs the root command and returns its error.
func ExecuteContext(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "ondevice-update",
		Short: "Incremental model update demo",
		Long: `ondevice-update loads an updatable model, synthesizes random training
samples shaped like its inputs, runs an incremental update and reports
progress as it goes.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&g.cfgFile, "config", "c", "", "config file path")
	cmd.PersistentFlags().StringVarP(&g.preset, "preset", "p", "emotion", fmt.Sprintf("demo preset %v", config.PresetNames()))
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "log format: text or json")

	cmd.AddCommand(initCmd(), trainCmd(g), predictCmd(g))
	return cmd
}

// load resolves the config file or preset, then applies overrides.
func (g *globalFlags) load(o config.Overrides) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if g.cfgFile != "" {
		cfg, err = config.Load(g.cfgFile)
	} else {
		cfg, err = config.Preset(g.preset)
	}
	if err != nil {
		return nil, err
	}

	o.LogLevel = g.logLevel
	o.LogFormat = g.logFormat
	cfg.ApplyOverrides(o)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return logger.NewWithWriter(cmd.OutOrStdout(), cfg.Logging.Level, cfg.Logging.Format)
}
