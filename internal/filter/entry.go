package filter

import (
	"path/filepath"
	"time"

	"github.com/arcanelabs/arcaneos/internal/grimoire"
	"github.com/arcanelabs/arcaneos/pkg/arcana"
)

// Criteria defines filtering criteria for grimoire entries.
// All filters are ANDed together - an entry must match ALL criteria to pass.
type Criteria struct {
	Since    time.Time       // Zero = no filter
	Until    time.Time       // Zero = no filter
	KindGlob string          // Glob pattern for the spell type, empty = no filter
	Daemon   arcana.DaemonID // Exact match on the daemon, empty = no filter
}

// Matches returns true if the entry matches all filter criteria.
// Empty/zero criteria values are treated as "match all" for that criterion.
func (c *Criteria) Matches(entry *grimoire.Entry) bool {
	if !c.Since.IsZero() && entry.Timestamp.Before(c.Since) {
		return false
	}
	if !c.Until.IsZero() && entry.Timestamp.After(c.Until) {
		return false
	}

	// Kind filtering - glob pattern matching
	if c.KindGlob != "" {
		matched, err := filepath.Match(c.KindGlob, string(entry.SpellType))
		if err != nil || !matched {
			return false
		}
	}

	if c.Daemon != "" && entry.DaemonName != c.Daemon {
		return false
	}

	return true
}

// HasFilters returns true if any filters are active.
// Used to decide whether a wider recall window is needed.
func (c *Criteria) HasFilters() bool {
	return !c.Since.IsZero() ||
		!c.Until.IsZero() ||
		c.KindGlob != "" ||
		c.Daemon != ""
}

// Apply returns the entries that match the criteria, preserving order.
func (c *Criteria) Apply(entries []grimoire.Entry) []grimoire.Entry {
	if !c.HasFilters() {
		return entries
	}
	matched := make([]grimoire.Entry, 0, len(entries))
	for i := range entries {
		if c.Matches(&entries[i]) {
			matched = append(matched, entries[i])
		}
	}
	return matched
}
