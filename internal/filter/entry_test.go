package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/arcanelabs/arcaneos/internal/grimoire"
	"github.com/arcanelabs/arcaneos/pkg/arcana"
)

func TestCriteriaMatches(t *testing.T) {
	now := time.Now().UTC()
	entry := grimoire.Entry{
		Timestamp:  now,
		SpellName:  "invoke_claude",
		SpellType:  arcana.EventInvoke,
		DaemonName: arcana.DaemonClaude,
	}

	t.Run("empty criteria match everything", func(t *testing.T) {
		c := &Criteria{}
		assert.False(t, c.HasFilters())
		assert.True(t, c.Matches(&entry))
	})

	t.Run("time window", func(t *testing.T) {
		c := &Criteria{Since: now.Add(-time.Hour), Until: now.Add(time.Hour)}
		assert.True(t, c.Matches(&entry))

		c = &Criteria{Since: now.Add(time.Minute)}
		assert.False(t, c.Matches(&entry))

		c = &Criteria{Until: now.Add(-time.Minute)}
		assert.False(t, c.Matches(&entry))
	})

	t.Run("kind glob", func(t *testing.T) {
		assert.True(t, (&Criteria{KindGlob: "invoke"}).Matches(&entry))
		assert.True(t, (&Criteria{KindGlob: "inv*"}).Matches(&entry))
		assert.False(t, (&Criteria{KindGlob: "summon"}).Matches(&entry))
	})

	t.Run("daemon", func(t *testing.T) {
		assert.True(t, (&Criteria{Daemon: arcana.DaemonClaude}).Matches(&entry))
		assert.False(t, (&Criteria{Daemon: arcana.DaemonGemini}).Matches(&entry))
	})
}

func TestCriteriaApply(t *testing.T) {
	entries := []grimoire.Entry{
		{SpellType: arcana.EventSummon, DaemonName: arcana.DaemonClaude},
		{SpellType: arcana.EventInvoke, DaemonName: arcana.DaemonClaude},
		{SpellType: arcana.EventInvoke, DaemonName: arcana.DaemonGemini},
	}

	matched := (&Criteria{Daemon: arcana.DaemonClaude}).Apply(entries)
	assert.Len(t, matched, 2)

	matched = (&Criteria{KindGlob: "invoke", Daemon: arcana.DaemonGemini}).Apply(entries)
	assert.Len(t, matched, 1)

	// No filters returns the input unchanged
	assert.Len(t, (&Criteria{}).Apply(entries), 3)
}
