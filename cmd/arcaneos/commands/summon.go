package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arcanelabs/arcaneos/internal/printer"
	"github.com/arcanelabs/arcaneos/internal/spell"
	"github.com/arcanelabs/arcaneos/pkg/arcana"
)

var summonCmd = &cobra.Command{
	Use:   "summon <daemon>",
	Short: "Summon a daemon directly, bypassing spell parsing",
	Long: `Summon a daemon by name or alias without going through the archon.

Examples:
  arcaneos summon claude
  arcaneos summon "liquid metal"`,
	Args: cobra.ExactArgs(1),
	RunE: runSummon,
}

var banishCmd = &cobra.Command{
	Use:   "banish <daemon>",
	Short: "Banish an active daemon and print its session statistics",
	Args:  cobra.ExactArgs(1),
	RunE:  runBanish,
}

func init() {
	rootCmd.AddCommand(summonCmd)
	rootCmd.AddCommand(banishCmd)
}

// resolveDaemon turns the argument into a canonical daemon, accepting the
// same aliases the spell parser does.
func resolveDaemon(arg string) (arcana.DaemonID, error) {
	id := arcana.ParseDaemonID(spell.NormalizeDaemonName(arg))
	if !id.Addressable() {
		return arcana.DaemonNone, printer.Error(
			fmt.Sprintf("unknown daemon '%s'", arg),
			"Only claude, gemini and liquidmetal answer to this realm.",
			[]string{"See who is available:\n  arcaneos daemons"},
		)
	}
	return id, nil
}

func runSummon(cmd *cobra.Command, args []string) error {
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

	snapshot, err := realm.registry.Summon(ctx, id)
	if err != nil {
		return castFailure(err)
	}

	printer.Success("%s materializes. Role: %s\n", printer.Daemon(snapshot.ID), snapshot.Role)
	return nil
}

func runBanish(cmd *cobra.Command, args []string) error {
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

	stats, err := realm.registry.Banish(ctx, id)
	if err != nil {
		return castFailure(err)
	}

	printer.Success("%s fades back into the void.\n", printer.Daemon(id))
	printer.Printf("  invocations: %d, total execution time: %.3fs\n",
		stats.TotalInvocations, stats.TotalExecutionTime)
	return nil
}
