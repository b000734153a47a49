package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arcanelabs/arcaneos/internal/filter"
	"github.com/arcanelabs/arcaneos/internal/printer"
	"github.com/arcanelabs/arcaneos/internal/spell"
	"github.com/arcanelabs/arcaneos/internal/timespec"
	"github.com/arcanelabs/arcaneos/pkg/arcana"
)

var (
	recallLimit  int
	recallAudit  bool
	recallSince  string
	recallUntil  string
	recallKind   string
	recallDaemon string
)

var recallCmd = &cobra.Command{
	Use:   "recall",
	Short: "Recall spells and rejections from the persistent grimoire",
	Long: `Recall the persistent record from Redis: every spell cast against
this instance, or the audit trail of rejected planner payloads.

Examples:
  # Last five spells
  arcaneos recall

  # A longer look back
  arcaneos recall --limit 50

  # Only invocations of claude from the last hour
  arcaneos recall --kind invoke --daemon claude --since 1h

  # Rejected payloads only
  arcaneos recall --audit`,
	RunE: runRecall,
}

func init() {
	recallCmd.Flags().IntVarP(&recallLimit, "limit", "l", 5, "Maximum number of entries to recall")
	recallCmd.Flags().BoolVar(&recallAudit, "audit", false, "Show rejected payloads instead of spells")
	recallCmd.Flags().StringVar(&recallSince, "since", "", "Only entries after this time (duration like '1h30m' or RFC3339)")
	recallCmd.Flags().StringVar(&recallUntil, "until", "", "Only entries before this time (duration like '1h30m' or RFC3339)")
	recallCmd.Flags().StringVar(&recallKind, "kind", "", "Glob filter on the spell type (summon, invoke, banish, route, ...)")
	recallCmd.Flags().StringVar(&recallDaemon, "daemon", "", "Only entries involving this daemon")
	rootCmd.AddCommand(recallCmd)
}

func runRecall(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	criteria, err := buildCriteria()
	if err != nil {
		return err
	}

	realm, err := openRealm(ctx)
	if err != nil {
		return err
	}
	defer realm.Close()

	if recallAudit {
		rejections, err := realm.grimoire.RecallRejections(ctx, recallLimit)
		if err != nil {
			return fmt.Errorf("failed to recall audit trail: %w", err)
		}
		if len(rejections) == 0 {
			printer.Info("The audit trail is clean - no payloads have been rejected.\n")
			return nil
		}
		for _, rejection := range rejections {
			printer.Printf("%s  %s  reason: %s\n",
				rejection.Timestamp.Format("2006-01-02 15:04:05"), rejection.Event, rejection.Reason)
		}
		return nil
	}

	// With active filters, recall a wider window before narrowing
	window := recallLimit
	if criteria.HasFilters() {
		window = recallLimit * 10
	}

	entries, err := realm.grimoire.Recall(ctx, window)
	if err != nil {
		return fmt.Errorf("failed to recall grimoire: %w", err)
	}
	entries = criteria.Apply(entries)
	if len(entries) > recallLimit {
		entries = entries[len(entries)-recallLimit:]
	}

	if len(entries) == 0 {
		printer.Info("Nothing matches in the grimoire. Cast a spell first:\n  arcaneos cast \"summon claude\"\n")
		return nil
	}

	for _, entry := range entries {
		marker := "✓"
		if !entry.Success {
			marker = "✗"
		}
		daemon := ""
		if entry.DaemonName != "" {
			daemon = " [" + printer.Daemon(entry.DaemonName) + "]"
		}
		printer.Printf("%s %s %s%s\n",
			entry.Timestamp.Format("2006-01-02 15:04:05"), marker, entry.SpellName, daemon)
	}
	return nil
}

// buildCriteria translates the recall flags into filter criteria.
func buildCriteria() (*filter.Criteria, error) {
	since, until, err := timespec.ParseRange(recallSince, recallUntil)
	if err != nil {
		return nil, err
	}

	criteria := &filter.Criteria{Since: since, Until: until, KindGlob: recallKind}
	if recallDaemon != "" {
		id := arcana.ParseDaemonID(spell.NormalizeDaemonName(recallDaemon))
		if !id.Addressable() {
			return nil, printer.Error(
				fmt.Sprintf("unknown daemon '%s'", recallDaemon),
				"Only claude, gemini and liquidmetal answer to this realm.",
				nil,
			)
		}
		criteria.Daemon = id
	}
	return criteria, nil
}
