package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arcanelabs/arcaneos/internal/printer"
	"github.com/arcanelabs/arcaneos/internal/veil"
	"github.com/arcanelabs/arcaneos/pkg/arcana"
)

var chamberCmd = &cobra.Command{
	Use:   "chamber",
	Short: "Enter the casting chamber - an interactive spell session",
	Long: `Enter an interactive session where every line is cast as a spell.
Daemon state, the event stream and the veil persist for the whole session.

Built-in incantations:
  /daemons    reveal the realm
  /events     show recent events
  /veil       toggle fantasy/developer mode
  /quit       leave the chamber

Everything else is routed as a spell.`,
	RunE: runChamber,
}

func init() {
	rootCmd.AddCommand(chamberCmd)
}

func runChamber(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	realm, err := openRealm(ctx)
	if err != nil {
		return err
	}
	defer realm.Close()

	// Live fan-out: print lifecycle events as they happen
	sub := realm.bus.Subscribe()
	defer sub.Close()
	go func() {
		for event := range sub.Events() {
			if event.Kind == arcana.EventSummon || event.Kind == arcana.EventBanish {
				printEvent(event)
			}
		}
	}()

	printer.Info("You stand in the casting chamber of instance '%s'. The veil is in %s mode.\n",
		realm.cfg.Instance, realm.veil.Mode())
	printer.Info("Speak a spell, or /quit to leave.\n\n")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		printer.Printf("⟡ ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if done := chamberBuiltin(ctx, realm, line); done {
				break
			}
			continue
		}

		castInChamber(ctx, realm, line)
	}

	printer.Info("\nYou step out of the chamber. The daemons remember.\n")
	return scanner.Err()
}

// chamberBuiltin handles /commands. Returns true when the session should end.
func chamberBuiltin(ctx context.Context, realm *realm, line string) bool {
	switch line {
	case "/quit", "/exit":
		return true

	case "/daemons":
		for _, snapshot := range realm.registry.Reveal() {
			status := "dormant"
			if snapshot.Summoned {
				status = "ACTIVE"
			}
			printer.Printf("  %-24s %-12s %s\n", printer.Daemon(snapshot.ID), snapshot.Role, status)
		}

	case "/events":
		for _, event := range realm.bus.Recent(10) {
			printEvent(event)
		}

	case "/veil":
		mode := realm.veil.Toggle()
		if err := realm.grimoire.SaveVeil(ctx, mode == veil.ModeFantasy); err != nil {
			printer.Warning("%v\n", err)
		}
		printer.Success("the veil is now in %s mode\n", mode)

	default:
		printer.Warning("unknown incantation %s (try /daemons, /events, /veil, /quit)\n", line)
	}
	return false
}

// castInChamber routes one spell and prints the outcome without ending the
// session on failure.
func castInChamber(ctx context.Context, realm *realm, spellText string) {
	result, err := realm.router.Route(ctx, spellText)
	if err != nil {
		var rerr *arcana.RoutingError
		switch {
		case errors.As(err, &rerr) && rerr.Reason == arcana.ReasonUnparseable:
			printer.Warning("the spell fizzles - its words defy translation\n")
			for _, suggestion := range rerr.Plan {
				printer.Printf("  %s\n", suggestion)
			}
		case errors.As(err, &rerr):
			printer.Warning("the archon divined no daemon to carry this out\n")
		case errors.Is(err, arcana.ErrNotSummoned):
			printer.Warning("that daemon slumbers - summon it first\n")
		case errors.Is(err, arcana.ErrAlreadySummoned):
			printer.Warning("that daemon already walks among us\n")
		default:
			printer.Warning("%v\n", err)
		}
		return
	}

	printer.Narration(result.Directive.Narration)
	if output, ok := result.Execution["result"]; ok {
		printer.Printf("%v\n", output)
		return
	}

	rendered, err := json.Marshal(result.Execution)
	if err != nil {
		printer.Warning("failed to render result: %v\n", err)
		return
	}
	printer.Printf("%s\n", rendered)
}
