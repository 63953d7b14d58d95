package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dataflow-compiler/pkg/config"
	"github.com/dataflow-compiler/pkg/errors"
	"github.com/dataflow-compiler/pkg/telemetry"
	"github.com/dataflow-compiler/pkg/utils"
)

var (
	// Global flags
	verbose    bool
	configPath string

	logger       utils.Logger
	cfg          *config.Config
	otelShutdown telemetry.ShutdownFunc
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dfc",
	Short: "A dataflow-graph to multi-threaded-C compiler",
	Long: `dfc lowers a hierarchical dataflow description (GraphML) into a
scheduled, partitioned intermediate form from which a multi-threaded
imperative program can be emitted.

The compile flow discovers enable, clock-domain, and mux contexts,
encapsulates them into containers, synthesizes state-update nodes, prunes
dead subgraphs, inserts thread-crossing FIFOs with delay absorption, and
topologically schedules each partition.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logLevel := utils.LevelInfo
		if verbose {
			logLevel = utils.LevelDebug
		}
		logger = utils.NewDefaultLogger(logLevel, os.Stdout)
		utils.SetGlobalLogger(logger)

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return errors.Wrap(errors.CodeConfigError, "failed to load configuration", err)
		}

		if cfg.Log.OutputPath != "" {
			fileLogger, err := utils.NewFileLogger(utils.ParseLogLevel(cfg.Log.Level), cfg.Log.OutputPath)
			if err != nil {
				return errors.Wrap(errors.CodeConfigError, "failed to open log file", err)
			}
			logger = fileLogger
			utils.SetGlobalLogger(logger)
		}

		otelShutdown, err = telemetry.Init(cmd.Context())
		if err != nil {
			logger.Warn("failed to initialize telemetry: %v", err)
			otelShutdown = nil
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if otelShutdown != nil {
			if err := otelShutdown(context.Background()); err != nil {
				logger.Warn("failed to shut down telemetry: %v", err)
			}
		}
	},
}

// Execute runs the root command and exits with the status mapped from the
// compile error, so callers can distinguish context errors, scheduling
// cycles, FIFO violations, and missing partitions.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(errors.ExitStatus(err))
	}
}

// BinName returns the binary name for help text.
func BinName() string {
	return filepath.Base(os.Args[0])
}

// GetLogger returns the configured logger.
func GetLogger() utils.Logger {
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, os.Stdout)
	}
	return logger
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}
