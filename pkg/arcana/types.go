// Package arcana provides the shared type definitions for the ArcaneOS
// routing core. Every component (spell parser, archon router, daemon
// registry, event bus, grimoire) exchanges these types, and their JSON
// field names are the only wire-compatibility surface the system promises.
package arcana

import (
	"strings"
	"time"
)

// Intent is the action a directive asks the system to perform.
type Intent string

const (
	// IntentSummon brings a daemon from dormant to active.
	IntentSummon Intent = "summon"

	// IntentInvoke asks an active daemon to perform a task.
	IntentInvoke Intent = "invoke"

	// IntentBanish returns an active daemon to the dormant state.
	IntentBanish Intent = "banish"

	// IntentReveal requests a snapshot of the current realm state.
	IntentReveal Intent = "reveal"

	// IntentQuery requests status information about daemons.
	IntentQuery Intent = "query"
)

// ParseIntent maps a raw string to a known Intent.
// Returns ("", false) for anything outside the closed set.
func ParseIntent(s string) (Intent, bool) {
	switch Intent(strings.ToLower(strings.TrimSpace(s))) {
	case IntentSummon:
		return IntentSummon, true
	case IntentInvoke:
		return IntentInvoke, true
	case IntentBanish:
		return IntentBanish, true
	case IntentReveal:
		return IntentReveal, true
	case IntentQuery:
		return IntentQuery, true
	default:
		return "", false
	}
}

// Valid reports whether i is one of the known intent values.
func (i Intent) Valid() bool {
	_, ok := ParseIntent(string(i))
	return ok
}

// DaemonID identifies one of the closed set of backend daemons.
type DaemonID string

const (
	// DaemonClaude is the logic and reasoning daemon.
	DaemonClaude DaemonID = "claude"

	// DaemonGemini is the creativity daemon.
	DaemonGemini DaemonID = "gemini"

	// DaemonLiquidMetal is the transformation daemon and the designated
	// low-latency fallback target.
	DaemonLiquidMetal DaemonID = "liquidmetal"

	// DaemonNone marks a directive with no addressable target.
	DaemonNone DaemonID = "none"
)

// AllDaemons lists the addressable daemon identities in display order.
// DaemonNone is deliberately excluded - it is a routing sentinel, not a daemon.
var AllDaemons = []DaemonID{DaemonClaude, DaemonGemini, DaemonLiquidMetal}

// ParseDaemonID maps a raw string to a known DaemonID.
// Unknown values map to DaemonNone so callers never branch on raw strings.
func ParseDaemonID(s string) DaemonID {
	switch DaemonID(strings.ToLower(strings.TrimSpace(s))) {
	case DaemonClaude:
		return DaemonClaude
	case DaemonGemini:
		return DaemonGemini
	case DaemonLiquidMetal:
		return DaemonLiquidMetal
	default:
		return DaemonNone
	}
}

// Addressable reports whether d names a real daemon (not DaemonNone).
func (d DaemonID) Addressable() bool {
	switch d {
	case DaemonClaude, DaemonGemini, DaemonLiquidMetal:
		return true
	default:
		return false
	}
}

// InvocationResult is the outcome of a single capability invocation.
// Capability failures are reported here with Success=false rather than
// as Go errors - a daemon that fails its task is still a completed call.
type InvocationResult struct {
	Success       bool           `json:"success"`
	Output        any            `json:"output"`
	ExecutionTime float64        `json:"execution_time"` // seconds
	Metadata      map[string]any `json:"metadata,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}
