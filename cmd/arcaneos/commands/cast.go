package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arcanelabs/arcaneos/internal/printer"
	"github.com/arcanelabs/arcaneos/pkg/arcana"
)

var castAnalyzeOnly bool

var castCmd = &cobra.Command{
	Use:   "cast <spell>",
	Short: "Cast a spell - route free text to a daemon and execute it",
	Long: `Cast a free-text spell. The archon converts it into a structured
directive (planner-first, falling back to the pattern matcher) and
executes the result against the daemon registry.

Examples:
  # Summon a daemon
  arcaneos cast "summon claude"

  # Invoke an active daemon with a task
  arcaneos cast "invoke claude to analyze this log file"

  # Pass parameters
  arcaneos cast "ask gemini to paint a sunset with style=impressionist"

  # Inspect the routing decision without executing it
  arcaneos cast --analyze "banish the dreamer"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCast,
}

func init() {
	castCmd.Flags().BoolVarP(&castAnalyzeOnly, "analyze", "a", false, "Show the routing decision without executing it")
	rootCmd.AddCommand(castCmd)
}

func runCast(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	spellText := strings.Join(args, " ")

	realm, err := openRealm(ctx)
	if err != nil {
		return err
	}
	defer realm.Close()

	if castAnalyzeOnly {
		directive, err := realm.router.AnalyzeSpell(ctx, spellText)
		if err != nil {
			return castFailure(err)
		}
		return printDirective(directive)
	}

	result, err := realm.router.Route(ctx, spellText)
	if err != nil {
		return castFailure(err)
	}

	printer.Narration(result.Directive.Narration)
	printer.Success("%s directive carried out by %s\n",
		result.Directive.Intent, printer.Daemon(result.Directive.Daemon))
	if result.Directive.FallbackUsed {
		printer.Warning("fallback path was used for this decision\n")
	}

	output, err := json.MarshalIndent(result.Execution, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render execution result: %w", err)
	}
	printer.Println(string(output))
	return nil
}

// printDirective renders a routing decision for --analyze.
func printDirective(d *arcana.Directive) error {
	output, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render directive: %w", err)
	}
	printer.Println(string(output))
	return nil
}

// castFailure maps routing and lifecycle errors onto user-facing messages.
func castFailure(err error) error {
	var rerr *arcana.RoutingError
	if errors.As(err, &rerr) {
		return printer.RoutingFailure(rerr)
	}

	switch {
	case errors.Is(err, arcana.ErrNotSummoned):
		return printer.Error(
			"the daemon slumbers",
			"You must summon a daemon before invoking or banishing it.",
			[]string{"Summon it first:\n  arcaneos cast \"summon <daemon>\""},
		)
	case errors.Is(err, arcana.ErrAlreadySummoned):
		return printer.Error(
			"the daemon already walks among us",
			"A daemon can only be summoned once per session.",
			[]string{"Check the realm:\n  arcaneos daemons"},
		)
	case errors.Is(err, arcana.ErrUnknownDaemon):
		return printer.Error(
			"unknown daemon",
			"Only claude, gemini and liquidmetal answer to this realm.",
			nil,
		)
	default:
		return err
	}
}
