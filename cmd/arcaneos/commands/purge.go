package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arcanelabs/arcaneos/internal/printer"
	"github.com/arcanelabs/arcaneos/internal/timespec"
)

var purgeOlderThan string

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Purge old entries from the persistent grimoire",
	Long: `Remove spell entries older than a cutoff from the grimoire.

Examples:
  # Drop everything older than a day
  arcaneos purge --older-than 24h

  # Drop everything before an absolute point in time
  arcaneos purge --older-than 2025-10-29T13:00:00Z`,
	RunE: runPurge,
}

func init() {
	purgeCmd.Flags().StringVar(&purgeOlderThan, "older-than", "", "Cutoff (duration like '24h' or RFC3339, required)")
	purgeCmd.MarkFlagRequired("older-than")
	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cutoff, err := timespec.Parse(purgeOlderThan)
	if err != nil {
		return fmt.Errorf("invalid --older-than: %w", err)
	}

	realm, err := openRealm(ctx)
	if err != nil {
		return err
	}
	defer realm.Close()

	kept, err := realm.grimoire.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to purge grimoire: %w", err)
	}

	printer.Success("grimoire purged; %d entr%s kept\n", kept, pluralSuffix(kept))
	return nil
}

func pluralSuffix(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
