package printer

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/arcanelabs/arcaneos/pkg/arcana"
)

func init() {
	// Force color output even when not connected to TTY
	// Users can disable with NO_COLOR environment variable
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	// Color definitions
	green   = color.New(color.FgGreen)
	yellow  = color.New(color.FgYellow)
	red     = color.New(color.FgRed, color.Bold)
	cyan    = color.New(color.FgCyan)
	magenta = color.New(color.FgMagenta)

	// Each daemon narrates in its own color
	daemonColors = map[arcana.DaemonID]*color.Color{
		arcana.DaemonClaude:      color.New(color.FgMagenta, color.Bold),
		arcana.DaemonGemini:      color.New(color.FgYellow, color.Bold),
		arcana.DaemonLiquidMetal: color.New(color.FgCyan, color.Bold),
	}
)

// Success prints a success message in green with a checkmark prefix
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		green.Printf("✓ %s", msg)
	} else {
		green.Print(msg)
	}
}

// Info prints an informational message in the default color
func Info(format string, a ...any) {
	fmt.Printf(format, a...)
}

// Warning prints a warning message in yellow with a warning emoji prefix
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		yellow.Printf("⚠️  %s", msg)
	} else {
		yellow.Print(msg)
	}
}

// Narration prints archon narration in magenta, quoted in-character
func Narration(text string) {
	if text == "" {
		return
	}
	magenta.Printf("✦ %s\n", text)
}

// Daemon renders a daemon's name in its signature color. Unknown daemons
// fall back to plain text.
func Daemon(id arcana.DaemonID) string {
	if c, ok := daemonColors[id]; ok {
		return c.Sprint(string(id))
	}
	return string(id)
}

// Error creates a formatted error message with title, explanation, and suggestions
// Prints the formatted error to stderr with colors and returns a simple error for Cobra
func Error(title string, explanation string, suggestions []string) error {
	// Print title in red to stderr
	red.Fprintf(os.Stderr, "%s\n\n", title)

	// Print explanation
	fmt.Fprintf(os.Stderr, "%s\n", explanation)

	// Print suggestions
	if len(suggestions) > 0 {
		fmt.Fprintf(os.Stderr, "\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(os.Stderr, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(os.Stderr, "Perhaps you meant:\n")
			for i, suggestion := range suggestions {
				fmt.Fprintf(os.Stderr, "  %d. %s\n", i+1, suggestion)
			}
		}
	}

	// Return simple error for Cobra (won't be printed due to SilenceErrors)
	return fmt.Errorf("%s", title)
}

// RoutingFailure formats a terminal routing error, surfacing the plan
// steps and correction suggestions the archon accumulated
func RoutingFailure(err *arcana.RoutingError) error {
	switch err.Reason {
	case arcana.ReasonUnparseable:
		return Error("The spell fizzles - its words defy translation.", err.Detail, err.Plan)
	case arcana.ReasonNoTarget:
		title := "The archon divined no daemon to carry this out."
		red.Fprintf(os.Stderr, "%s\n\n", title)
		for _, step := range err.Plan {
			fmt.Fprintf(os.Stderr, "  • %s\n", step)
		}
		return fmt.Errorf("%s", title)
	default:
		return Error("Routing failed.", err.Error(), nil)
	}
}

// Step prints a step message with emphasis (used in multi-step operations)
func Step(format string, a ...any) {
	cyan.Printf("→ %s", fmt.Sprintf(format, a...))
}

// Println prints a plain message (for output that doesn't need coloring)
func Println(a ...any) {
	fmt.Println(a...)
}

// Printf prints a plain formatted message (for output that doesn't need coloring)
func Printf(format string, a ...any) {
	fmt.Printf(format, a...)
}
