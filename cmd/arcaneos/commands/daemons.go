package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/arcanelabs/arcaneos/internal/printer"
)

var daemonsCmd = &cobra.Command{
	Use:   "daemons",
	Short: "Reveal every daemon and its current state",
	Long: `Reveal the full daemon registry: identity, role, activity and
invocation counts.

Example:
  arcaneos daemons`,
	RunE: runDaemons,
}

func init() {
	rootCmd.AddCommand(daemonsCmd)
}

func runDaemons(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	realm, err := openRealm(ctx)
	if err != nil {
		return err
	}
	defer realm.Close()

	snapshots := realm.registry.Reveal()

	printer.Println("The veil parts, revealing the realm:")
	printer.Println()
	for _, snapshot := range snapshots {
		status := "dormant"
		if snapshot.Summoned {
			status = "ACTIVE"
		}
		printer.Printf("  %-24s %-12s %-8s invocations: %d\n",
			printer.Daemon(snapshot.ID), snapshot.Role, status, snapshot.InvocationCount)
		if element, ok := snapshot.Metadata["element"]; ok {
			printer.Printf("  %-24s element: %v, domain: %v\n",
				"", element, snapshot.Metadata["domain"])
		}
	}
	return nil
}

var statsCmd = &cobra.Command{
	Use:   "stats <daemon>",
	Short: "Show cumulative statistics for one daemon",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	id, err := resolveDaemon(args[0])
	if err != nil {
		return err
	}

	realm, err := openRealm(ctx)
	if err != nil {
		return err
	}
	defer realm.Close()

	stats, err := realm.registry.Statistics(id)
	if err != nil {
		return castFailure(err)
	}

	printer.Printf("%s\n", printer.Daemon(stats.DaemonName))
	printer.Printf("  active:               %v\n", stats.IsActive)
	printer.Printf("  total invocations:    %d\n", stats.TotalInvocations)
	printer.Printf("  total execution time: %.3fs\n", stats.TotalExecutionTime)
	if stats.TotalInvocations > 0 {
		printer.Printf("  average per call:     %.3fs\n", stats.AverageExecutionTime)
	}
	if stats.SummonedAt != nil {
		printer.Printf("  summoned at:          %s\n", stats.SummonedAt.Format("2006-01-02 15:04:05 MST"))
	}
	if stats.LastInvokedAt != nil {
		printer.Printf("  last invoked at:      %s\n", stats.LastInvokedAt.Format("2006-01-02 15:04:05 MST"))
	}
	return nil
}
