package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/drug-repurposing-engine/internal/setup"
)

var exportOut string

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export analysis and validation history as JSON",
	Long: `Export writes the full analysis and validation history to a JSON
document, for audits or moving records between deployments.

Example:
  repurpose export --out history.json
  repurpose export                       # writes to stdout`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (default: stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadEngineConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	engine, err := setup.BuildEngine(ctx, cfg, commandLogger(cfg), nil)
	if err != nil {
		return err
	}
	defer engine.Close()

	out := os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := engine.History.ExportJSON(ctx, out); err != nil {
		return fmt.Errorf("exporting history: %w", err)
	}

	if exportOut != "" {
		fmt.Fprintf(os.Stderr, "History exported to %s\n", exportOut)
	}
	return nil
}
