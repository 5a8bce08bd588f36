package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/drug-repurposing-engine/pkg/external"
)

var diagnoseTimeout time.Duration

// diagnoseCmd represents the diagnose command
var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Check connectivity to every upstream evidence source",
	Long: `Diagnose probes each upstream evidence source with a lightweight
request and reports reachability, latency and circuit breaker state.

Example:
  repurpose diagnose
  repurpose diagnose --timeout 30s`,
	RunE: runDiagnose,
}

func init() {
	rootCmd.AddCommand(diagnoseCmd)

	diagnoseCmd.Flags().DurationVar(&diagnoseTimeout, "timeout", 20*time.Second, "overall probe timeout")
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	cfg, err := loadEngineConfig()
	if err != nil {
		return err
	}

	// Probes only need the upstream clients, not the full engine.
	client := external.NewResilientClient(cfg.Sources, cfg.Breaker, cfg.Cache, nil, commandLogger(cfg))
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), diagnoseTimeout)
	defer cancel()

	fmt.Println("Probing evidence sources...")
	started := time.Now()
	health := client.HealthCheck(ctx)
	elapsed := time.Since(started)
	states := client.BreakerStates()

	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tSTATUS\tBREAKER")
	failures := 0
	for _, name := range names {
		status := "OK"
		if !health[name] {
			status = "FAIL"
			failures++
		}
		breaker := "closed"
		if state, ok := states[name]; ok {
			breaker = state.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, status, breaker)
	}
	w.Flush()

	fmt.Printf("\nProbed %d sources in %s\n", len(names), elapsed.Round(time.Millisecond))
	if failures > 0 {
		return fmt.Errorf("%d of %d sources unreachable", failures, len(names))
	}
	return nil
}
