package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/arcanelabs/arcaneos/internal/printer"
	"github.com/arcanelabs/arcaneos/pkg/arcana"
)

var (
	eventsLimit  int
	eventsFollow bool
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent events from the arcane event bus",
	Long: `Show the most recent observable events: summons, invocations,
banishments, parses and routing decisions.

Events are read from the shared history of this instance, so spells cast
by earlier invocations show up here; --follow streams live events from
every process sharing the instance instead. Use 'arcaneos recall' for the
spell record.

Examples:
  arcaneos events --limit 20
  arcaneos events --follow`,
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().IntVarP(&eventsLimit, "limit", "l", 10, "Maximum number of events to show")
	eventsCmd.Flags().BoolVarP(&eventsFollow, "follow", "f", false, "Stream live events until interrupted")
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	realm, err := openRealm(ctx)
	if err != nil {
		return err
	}
	defer realm.Close()

	if eventsFollow {
		return followEvents(ctx, realm)
	}

	events, err := realm.grimoire.RecentEvents(ctx, eventsLimit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		printer.Info("No events observed yet. Cast a spell first:\n  arcaneos cast \"summon claude\"\n")
		return nil
	}

	for _, event := range events {
		printEvent(event)
	}
	return nil
}

// followEvents streams live events from the shared pub/sub channel until
// interrupted.
func followEvents(ctx context.Context, realm *realm) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	sub, err := realm.grimoire.SubscribeEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to events: %w", err)
	}
	defer sub.Close()

	printer.Info("Watching the realm (Ctrl+C to stop)...\n")
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-sub.Errors():
			if ok && err != nil {
				printer.Warning("%v\n", err)
			}
		case event, ok := <-sub.Events():
			if !ok {
				return nil
			}
			printEvent(event)
		}
	}
}

func printEvent(event arcana.Event) {
	marker := "✓"
	if !event.Success {
		marker = "✗"
	}
	daemon := ""
	if event.Daemon != arcana.DaemonNone {
		daemon = " [" + printer.Daemon(event.Daemon) + "]"
	}
	printer.Printf("%s %s %-7s%s %s\n",
		event.Timestamp.Format("15:04:05"), marker, event.Kind, daemon, event.Description)
}
