// Package cli implements the repurpose maintenance tool: source
// diagnostics, cache warming, corpus rebuilds, history export and MCP
// host setup.
package cli

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/drug-repurposing-engine/internal/config"
	"github.com/drug-repurposing-engine/internal/setup"
)

var (
	cfgFile string
	verbose bool
)

// Version is stamped at build time.
var Version = "v1.0.0"

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "repurpose",
	Short: "Maintenance tool for the drug repurposing engine",
	Long: `repurpose operates the drug repurposing engine from the command line.

It checks upstream evidence sources, warms and flushes caches, rebuilds
the approved-drug corpus snapshot, exports analysis history, and wires
the engine into MCP hosts.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("repurpose %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

// loadEngineConfig loads and validates configuration for engine-backed
// commands.
func loadEngineConfig() (*config.Config, error) {
	_ = godotenv.Load()

	manager, err := config.NewManagerWithFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := manager.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return manager.GetConfig(), nil
}

// commandLogger builds a logger for CLI runs. Quiet by default so
// command output stays readable.
func commandLogger(cfg *config.Config) *logrus.Logger {
	logger := setup.NewLogger(cfg.Logging)
	if !verbose {
		logger.SetLevel(logrus.ErrorLevel)
	}
	return logger
}
