package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string

	// configPath is shared by every subcommand
	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "arcaneos",
	Short: "ArcaneOS - Intent-routing core for daemon orchestration",
	Long: `ArcaneOS converts free-text spells into structured directives and
dispatches them to a registry of AI daemons.

Spells are routed planner-first: an external planning model proposes a
JSON directive which is schema- and policy-validated, budget-checked for
latency, and executed. When the planner path fails for any reason, a
deterministic pattern matcher takes over. Every decision is recorded in
a Redis-backed grimoire for later recall.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "arcane.yml", "Path to the arcane.yml configuration file")
}
