package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/drug-repurposing-engine/internal/setup"
)

var (
	rebuildLimit   int
	rebuildTimeout time.Duration
)

// rebuildCmd represents the rebuild command
var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the approved-drug corpus snapshot from live sources",
	Long: `Rebuild fetches the approved-drug corpus from ChEMBL and replaces the
stored snapshot, so analyses keep working when the source is down.

Example:
  repurpose rebuild
  repurpose rebuild --limit 1000`,
	RunE: runRebuild,
}

func init() {
	rootCmd.AddCommand(rebuildCmd)

	rebuildCmd.Flags().IntVar(&rebuildLimit, "limit", 0, "maximum corpus size (0 uses the source default)")
	rebuildCmd.Flags().DurationVar(&rebuildTimeout, "timeout", 10*time.Minute, "overall rebuild timeout")
}

func runRebuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadEngineConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), rebuildTimeout)
	defer cancel()

	engine, err := setup.BuildEngine(ctx, cfg, commandLogger(cfg), nil)
	if err != nil {
		return err
	}
	defer engine.Close()

	fmt.Println("Fetching drug corpus...")
	meta, err := engine.Corpus.Rebuild(ctx, rebuildLimit)
	if err != nil {
		return err
	}

	if meta != nil {
		fmt.Printf("Snapshot rebuilt: %d drugs at %s\n",
			meta.DrugCount, meta.SnapshotAt.Format(time.RFC3339))
	} else {
		fmt.Println("Snapshot rebuilt")
	}
	return nil
}
