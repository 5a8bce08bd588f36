package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/drug-repurposing-engine/internal/setup"
)

var (
	warmFlush   bool
	warmTimeout time.Duration
)

// warmCmd represents the warm command
var warmCmd = &cobra.Command{
	Use:   "warm [disease...]",
	Short: "Pre-resolve diseases so first requests answer from cache",
	Long: `Warm resolves each named disease through the full upstream path and
caches the result. With no arguments, the curated suggestion list is
warmed. --flush clears cached upstream responses first.

Example:
  repurpose warm
  repurpose warm "Parkinson disease" "Gaucher disease"
  repurpose warm --flush`,
	RunE: runWarm,
}

func init() {
	rootCmd.AddCommand(warmCmd)

	warmCmd.Flags().BoolVar(&warmFlush, "flush", false, "flush cached upstream responses before warming")
	warmCmd.Flags().DurationVar(&warmTimeout, "timeout", 5*time.Minute, "overall warm timeout")
}

func runWarm(cmd *cobra.Command, args []string) error {
	cfg, err := loadEngineConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), warmTimeout)
	defer cancel()

	engine, err := setup.BuildEngine(ctx, cfg, commandLogger(cfg), nil)
	if err != nil {
		return err
	}
	defer engine.Close()

	if warmFlush {
		if err := engine.Client.FlushCache(ctx); err != nil {
			fmt.Printf("Cache flush failed: %v\n", err)
		} else {
			fmt.Println("Flushed cached upstream responses")
		}
	}

	diseases := args
	if len(diseases) == 0 {
		diseases = engine.Library.Suggest("", 0)
	}

	warmed := 0
	for _, name := range diseases {
		started := time.Now()
		disease, err := engine.Resolver.Resolve(ctx, name)
		if err != nil {
			fmt.Printf("  %-40s FAILED (%v)\n", name, err)
			continue
		}
		warmed++
		fmt.Printf("  %-40s %d genes, %d pathways (%s)\n",
			disease.Name, len(disease.Genes), len(disease.Pathways),
			time.Since(started).Round(time.Millisecond))
	}

	fmt.Printf("\nWarmed %d of %d diseases\n", warmed, len(diseases))
	if warmed == 0 && len(diseases) > 0 {
		return fmt.Errorf("no diseases could be resolved")
	}
	return nil
}
