package spell

import (
	"regexp"
	"sort"

	"github.com/arcanelabs/arcaneos/pkg/arcana"
)

// Pattern is a single intent-extraction rule: a regular expression, the
// intent it resolves to, a mapping of directive fields to capture-group
// indices, and a priority. Higher priority patterns are trialled first;
// ties keep registration order.
type Pattern struct {
	re       *regexp.Regexp
	intent   arcana.Intent
	bindings map[string]int
	priority int
}

// NewPattern compiles a case-insensitive pattern rule.
// Panics on an invalid expression - the rule table is static program data.
func NewPattern(expr string, intent arcana.Intent, bindings map[string]int, priority int) Pattern {
	return Pattern{
		re:       regexp.MustCompile("(?i)" + expr),
		intent:   intent,
		bindings: bindings,
		priority: priority,
	}
}

// Priority returns the rule's priority.
func (p Pattern) Priority() int {
	return p.priority
}

// Intent returns the intent this rule resolves to.
func (p Pattern) Intent() arcana.Intent {
	return p.intent
}

// match trials the pattern against text and extracts bound fields.
// Returns (nil, false) when the pattern does not match. Optional groups
// that did not participate are simply absent from the result map.
func (p Pattern) match(text string) (map[string]string, bool) {
	groups := p.re.FindStringSubmatch(text)
	if groups == nil {
		return nil, false
	}

	fields := make(map[string]string, len(p.bindings))
	for field, idx := range p.bindings {
		if idx < len(groups) && groups[idx] != "" {
			fields[field] = trimField(groups[idx])
		}
	}
	return fields, true
}

// defaultPatterns returns the full rule table, sorted descending by
// priority. Invoke rules carry the highest priorities: they must extract
// both a daemon alias and a free-text task, making them the most
// syntactically specific.
func defaultPatterns() []Pattern {
	patterns := []Pattern{
		// INVOKE
		NewPattern(`invoke\s+(\w+)\s+to\s+(.+)`, arcana.IntentInvoke, map[string]int{"daemon": 1, "task": 2}, 100),
		NewPattern(`ask\s+(\w+)\s+to\s+(.+)`, arcana.IntentInvoke, map[string]int{"daemon": 1, "task": 2}, 95),
		NewPattern(`tell\s+(\w+)\s+to\s+(.+)`, arcana.IntentInvoke, map[string]int{"daemon": 1, "task": 2}, 95),
		NewPattern(`command\s+(\w+):\s*(.+)`, arcana.IntentInvoke, map[string]int{"daemon": 1, "task": 2}, 90),
		NewPattern(`^(\w+),\s+(.+)`, arcana.IntentInvoke, map[string]int{"daemon": 1, "task": 2}, 50),
		NewPattern(`invoke\s+(\w+)\s+for\s+(.+)`, arcana.IntentInvoke, map[string]int{"daemon": 1, "task": 2}, 85),

		// SUMMON
		NewPattern(`summon\s+(?:the\s+)?(\w+)(?:\s+daemon)?`, arcana.IntentSummon, map[string]int{"daemon": 1}, 80),
		NewPattern(`call\s+forth\s+(?:the\s+)?(\w+)`, arcana.IntentSummon, map[string]int{"daemon": 1}, 75),
		NewPattern(`materialize\s+(?:the\s+)?(\w+)`, arcana.IntentSummon, map[string]int{"daemon": 1}, 75),
		NewPattern(`awaken\s+(?:the\s+)?(\w+)`, arcana.IntentSummon, map[string]int{"daemon": 1}, 75),
		NewPattern(`bring\s+(?:the\s+)?(\w+)\s+to\s+life`, arcana.IntentSummon, map[string]int{"daemon": 1}, 70),

		// BANISH
		NewPattern(`banish\s+(?:the\s+)?(\w+)(?:\s+daemon)?`, arcana.IntentBanish, map[string]int{"daemon": 1}, 80),
		NewPattern(`dismiss\s+(?:the\s+)?(\w+)`, arcana.IntentBanish, map[string]int{"daemon": 1}, 75),
		NewPattern(`send\s+(?:the\s+)?(\w+)\s+back`, arcana.IntentBanish, map[string]int{"daemon": 1}, 75),
		NewPattern(`release\s+(?:the\s+)?(\w+)`, arcana.IntentBanish, map[string]int{"daemon": 1}, 70),

		// QUERY
		NewPattern(`^show\s+(?:me\s+)?(?:all\s+)?(?:the\s+)?daemons?`, arcana.IntentQuery, map[string]int{}, 95),
		NewPattern(`^list\s+(?:all\s+)?(?:the\s+)?daemons?`, arcana.IntentQuery, map[string]int{}, 95),
		NewPattern(`^what\s+daemons?\s+(?:are\s+)?active`, arcana.IntentQuery, map[string]int{}, 90),
		NewPattern(`status\s+of\s+(?:the\s+)?(.+)`, arcana.IntentQuery, map[string]int{"daemon": 1}, 65),
		NewPattern(`check\s+(?:on\s+)?(?:the\s+)?(.+)`, arcana.IntentQuery, map[string]int{"daemon": 1}, 60),
	}

	// Stable sort preserves registration order within equal priorities.
	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].priority > patterns[j].priority
	})
	return patterns
}

// daemonAliases maps each canonical daemon to the spoken names a spell may
// use for it. Lookup is exact first, then substring containment in either
// direction.
var daemonAliases = map[arcana.DaemonID][]string{
	arcana.DaemonClaude:      {"claude", "logic keeper", "reasoner", "analyzer"},
	arcana.DaemonGemini:      {"gemini", "creative", "innovator", "dreamer"},
	arcana.DaemonLiquidMetal: {"liquidmetal", "liquid metal", "transformer", "shapeshifter"},
}

// intentSynonyms lists the action keywords recognised for each intent.
// Used only for correction suggestions, not for matching.
var intentSynonyms = map[arcana.Intent][]string{
	arcana.IntentSummon: {"summon", "call", "invoke forth", "bring forth", "materialize", "awaken", "raise", "conjure", "manifest"},
	arcana.IntentInvoke: {"invoke", "ask", "request", "command", "tell", "instruct", "bid", "direct", "order"},
	arcana.IntentBanish: {"banish", "dismiss", "release", "send back", "dispel", "vanish", "fade", "remove"},
	arcana.IntentQuery:  {"query", "check", "status", "list", "show", "display", "reveal", "inspect"},
}
