// Package spell implements the deterministic natural-language spell parser.
// A spell is free text such as "invoke claude to analyze my code"; the
// parser resolves it to an intent, a target daemon, a task and typed
// parameters using an ordered table of pattern rules.
//
// The parser holds no mutable state after construction and is safe for
// concurrent use.
package spell

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/arcanelabs/arcaneos/pkg/arcana"
)

// ParsedSpell is the structured result of parsing one spell.
type ParsedSpell struct {
	Intent     arcana.Intent  `json:"action"`
	Daemon     string         `json:"daemon,omitempty"`
	Task       string         `json:"task,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Confidence float64        `json:"confidence"`
	RawInput   string         `json:"raw_input"`
}

// DaemonID resolves the parsed daemon name to the closed identity set.
// Unrecognised names (which the parser passes through lower-cased) map to
// DaemonNone.
func (p *ParsedSpell) DaemonID() arcana.DaemonID {
	return arcana.ParseDaemonID(p.Daemon)
}

// Parser matches spells against an ordered pattern table.
type Parser struct {
	patterns []Pattern
	paramRe  *regexp.Regexp
}

// NewParser constructs a parser with the default rule table.
func NewParser() *Parser {
	return &Parser{
		patterns: defaultPatterns(),
		paramRe:  regexp.MustCompile(`(?i)with\s+(\w+)\s*=\s*(?:"([^"]*)"|'([^']*)'|(\S+))`),
	}
}

// Parse resolves a spell to a ParsedSpell. The first pattern (in descending
// priority order) that matches wins; there is no backtracking across rules.
// Returns *arcana.ParseError when the text is empty or matches nothing.
func (p *Parser) Parse(text string) (*ParsedSpell, error) {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return nil, &arcana.ParseError{Input: text}
	}

	for _, pattern := range p.patterns {
		fields, ok := pattern.match(cleaned)
		if !ok {
			continue
		}

		parsed := &ParsedSpell{
			Intent:     pattern.Intent(),
			Confidence: confidenceFor(pattern.Priority()),
			RawInput:   cleaned,
		}
		if raw, ok := fields["daemon"]; ok {
			parsed.Daemon = NormalizeDaemonName(raw)
		}
		if rawTask, ok := fields["task"]; ok {
			parsed.Task, parsed.Parameters = p.extractParameters(rawTask)
		}
		return parsed, nil
	}

	log.Printf("[SpellParser] No pattern matched spell: %q", cleaned)
	return nil, &arcana.ParseError{Input: cleaned, Suggestions: p.SuggestCorrections(cleaned)}
}

// ParseBatch parses a list of spells, silently skipping any that fail.
func (p *Parser) ParseBatch(texts []string) []*ParsedSpell {
	results := make([]*ParsedSpell, 0, len(texts))
	for _, text := range texts {
		parsed, err := p.Parse(text)
		if err != nil {
			continue
		}
		results = append(results, parsed)
	}
	return results
}

// NormalizeDaemonName lowers a raw daemon token and resolves it through the
// alias table. Exact alias matches win; otherwise substring containment in
// either direction; otherwise the lower-cased token passes through
// unrecognised. Daemons are checked in arcana.AllDaemons order so a token
// touching aliases of two daemons always resolves the same way.
func NormalizeDaemonName(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))

	for _, canonical := range arcana.AllDaemons {
		for _, alias := range daemonAliases[canonical] {
			if name == alias {
				return string(canonical)
			}
		}
	}
	for _, canonical := range arcana.AllDaemons {
		for _, alias := range daemonAliases[canonical] {
			if strings.Contains(name, alias) || strings.Contains(alias, name) {
				return string(canonical)
			}
		}
	}
	return name
}

// extractParameters scans a task description for "with key=value" tokens,
// coerces each value (bool, then int, then float, then string), removes the
// matched text from the task and collapses the remaining whitespace.
func (p *Parser) extractParameters(task string) (string, map[string]any) {
	var params map[string]any
	cleaned := task

	for _, groups := range p.paramRe.FindAllStringSubmatch(task, -1) {
		key := groups[1]
		value := firstNonEmpty(groups[2], groups[3], groups[4])
		if value == "" {
			continue
		}
		if params == nil {
			params = make(map[string]any)
		}
		params[key] = coerceValue(value)
		cleaned = strings.TrimSpace(strings.Replace(cleaned, groups[0], "", 1))
	}

	cleaned = strings.Trim(collapseWhitespace(cleaned), " ,;")
	return cleaned, params
}

// coerceValue parses a raw parameter value into its most specific type.
func coerceValue(raw string) any {
	switch strings.ToLower(raw) {
	case "true":
		return true
	case "false":
		return false
	}
	if isAllDigits(raw) {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

// SuggestCorrections builds ordered hints for a spell that failed to parse.
// It checks for a recognisable action keyword and a known daemon alias, then
// always appends concrete usage examples.
func (p *Parser) SuggestCorrections(text string) []string {
	lower := strings.ToLower(text)
	var suggestions []string

	hasAction := false
	for _, synonyms := range intentSynonyms {
		for _, syn := range synonyms {
			if strings.Contains(lower, syn) {
				hasAction = true
				break
			}
		}
	}
	if !hasAction {
		suggestions = append(suggestions, "Try starting with an action like 'summon', 'invoke', or 'banish'.")
	}

	hasDaemon := false
	for _, aliases := range daemonAliases {
		for _, alias := range aliases {
			if strings.Contains(lower, alias) {
				hasDaemon = true
				break
			}
		}
	}
	if !hasDaemon {
		names := make([]string, 0, len(arcana.AllDaemons))
		for _, d := range arcana.AllDaemons {
			names = append(names, string(d))
		}
		suggestions = append(suggestions, fmt.Sprintf("Include a known daemon name: %s.", strings.Join(names, ", ")))
	}

	return append(suggestions,
		"Example: 'invoke claude to analyze code'",
		"Example: 'summon gemini'",
		"Example: 'banish liquidmetal'",
	)
}

// confidenceFor converts a rule priority to a confidence score.
func confidenceFor(priority int) float64 {
	c := float64(priority) / 100.0
	if c > 1.0 {
		return 1.0
	}
	return c
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func collapseWhitespace(s string) string {
	return whitespaceRe.ReplaceAllString(s, " ")
}

func trimField(s string) string {
	return strings.TrimSpace(s)
}
