// Package main is the entry point for the UnixStat agent. It loads the
// layered configuration, selects the command table for the host and runs
// the polling loop, a single cycle, or a table check.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Guliveer/unixstat-agent/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	cli        config.CLIOverrides
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:               "unixstat-agent",
		Short:             "Collects host metrics by running and parsing system commands",
		SilenceUsage:      true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path to configuration file (default: search standard locations)")
	pf.StringVar(&flags.cli.URL, "url", "", "ingestion API base URL")
	pf.StringVar(&flags.cli.Token, "token", "", "machine token")
	pf.StringVar(&flags.cli.Platform, "platform", "", "command table to use instead of the detected one")
	pf.StringVar(&flags.cli.LogLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newRunCmd(flags),
		newOnceCmd(flags),
		newCheckCmd(flags),
		newInstallCmd(flags),
		newUninstallCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the agent version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "unixstat-agent %s\n", version)
		},
	}
}

// loadConfig resolves the configuration for cmd. An explicit --config
// replaces the search of standard locations.
func loadConfig(cmd *cobra.Command, flags *globalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cmd.Flags().Changed("config") {
		cfg, err = config.LoadLayered(flags.cli, embeddedConfig, flags.configPath)
	} else {
		cfg, err = config.LoadLayered(flags.cli, embeddedConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// initLogger creates a zap logger based on the configuration.
// It outputs to both console (human-readable) and optionally a JSON log file.
// Console output goes to stderr so command output on stdout stays clean.
func initLogger(cfg *config.Config) *zap.Logger {
	var level zapcore.Level
	switch cfg.Logging.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	// Console output (human-readable)
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stderr),
		level,
	)

	cores := []zapcore.Core{consoleCore}

	// File output (structured JSON, if configured)
	if cfg.Logging.File != "" {
		file, err := os.OpenFile(cfg.Logging.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
		if err == nil {
			fileCore := zapcore.NewCore(
				zapcore.NewJSONEncoder(encoderConfig),
				zapcore.AddSync(file),
				level,
			)
			cores = append(cores, fileCore)
		}
	}

	return zap.New(zapcore.NewTee(cores...))
}
