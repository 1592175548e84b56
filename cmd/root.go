// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/osisim/internal/config"
	"firestige.xyz/osisim/internal/log"
	"firestige.xyz/osisim/internal/metrics"
	"firestige.xyz/osisim/internal/pipeline"
)

var (
	// Global flags
	configFile string

	// globalConfig is loaded once before any subcommand runs.
	globalConfig *config.GlobalConfig
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "osisim",
	Short: "osisim - OSI seven-layer framing simulator",
	Long: `osisim walks a message down a simulated OSI stack and back up again.

Each layer wraps the payload in its own framing on the way down (markers,
length prefixes, a serialization envelope, finally a string of 0/1 bits)
and strips it on the way up, printing every intermediate frame.

Profiles:
  binary  length-prefixed network and transport framing (default)
  marker  text markers on every layer
  mac     binary profile plus the sender's MAC address in the data link frame`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (defaults only when empty)")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(layersCmd)
	rootCmd.AddCommand(validateCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if err := log.Init(cfg.Log); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	globalConfig = cfg
	return nil
}

// newPipeline builds the configured stack with the observers selected
// by the trace and metrics sections.
func newPipeline(cfg *config.GlobalConfig, out io.Writer) (*pipeline.Pipeline, error) {
	b := pipeline.FromConfig(cfg.Stack)
	if cfg.Trace.Console {
		b.WithObservers(pipeline.NewConsoleTracer(out, cfg.Trace.Color))
	}
	if cfg.Trace.Log {
		b.WithObservers(pipeline.NewLogTracer(log.GetLogger()))
	}
	if cfg.Metrics.Enabled {
		b.WithObservers(metrics.Observer{})
	}
	return b.Build()
}
