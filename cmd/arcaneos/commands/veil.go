package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arcanelabs/arcaneos/internal/printer"
	"github.com/arcanelabs/arcaneos/internal/veil"
)

var veilCmd = &cobra.Command{
	Use:   "veil [fantasy|developer|toggle]",
	Short: "Show or change the narration mode",
	Long: `Show or change the veil: fantasy mode narrates in-character,
developer mode exposes raw reasoning and payloads.

The chosen mode is persisted per instance and applies to every future
command until changed again.

Examples:
  arcaneos veil            # show the current mode
  arcaneos veil developer  # lift the veil
  arcaneos veil toggle     # flip whichever mode is active`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVeil,
}

func init() {
	rootCmd.AddCommand(veilCmd)
}

func runVeil(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	realm, err := openRealm(ctx)
	if err != nil {
		return err
	}
	defer realm.Close()

	if len(args) == 0 {
		printer.Printf("The veil is in %s mode.\n", realm.veil.Mode())
		return nil
	}

	switch args[0] {
	case "fantasy":
		realm.veil.Set(true)
	case "developer":
		realm.veil.Set(false)
	case "toggle":
		realm.veil.Toggle()
	default:
		return printer.Error(
			fmt.Sprintf("unknown veil mode '%s'", args[0]),
			"The veil knows only two states.",
			[]string{"Use one of:\n  arcaneos veil fantasy\n  arcaneos veil developer\n  arcaneos veil toggle"},
		)
	}

	if err := realm.grimoire.SaveVeil(ctx, realm.veil.Mode() == veil.ModeFantasy); err != nil {
		return err
	}

	printer.Success("the veil is now in %s mode\n", realm.veil.Mode())
	return nil
}
