package spell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcanelabs/arcaneos/pkg/arcana"
)

func TestParseInvoke(t *testing.T) {
	parser := NewParser()

	t.Run("invoke with task", func(t *testing.T) {
		parsed, err := parser.Parse("invoke claude to write code")
		require.NoError(t, err)
		assert.Equal(t, arcana.IntentInvoke, parsed.Intent)
		assert.Equal(t, "claude", parsed.Daemon)
		assert.Equal(t, "write code", parsed.Task)
		assert.InDelta(t, 1.0, parsed.Confidence, 0.0001)
	})

	t.Run("higher priority rule wins over generic comma form", func(t *testing.T) {
		// "ask gemini to dream" matches both the ask rule (95) and could
		// never fall through to the comma rule (50).
		parsed, err := parser.Parse("ask gemini to dream up a story")
		require.NoError(t, err)
		assert.Equal(t, arcana.IntentInvoke, parsed.Intent)
		assert.Equal(t, "gemini", parsed.Daemon)
		assert.Equal(t, "dream up a story", parsed.Task)
		assert.InDelta(t, 0.95, parsed.Confidence, 0.0001)
	})

	t.Run("comma-addressed form", func(t *testing.T) {
		parsed, err := parser.Parse("claude, summarize this file")
		require.NoError(t, err)
		assert.Equal(t, arcana.IntentInvoke, parsed.Intent)
		assert.Equal(t, "claude", parsed.Daemon)
		assert.Equal(t, "summarize this file", parsed.Task)
		assert.InDelta(t, 0.5, parsed.Confidence, 0.0001)
	})

	t.Run("command colon form", func(t *testing.T) {
		parsed, err := parser.Parse("command liquidmetal: reshape the data")
		require.NoError(t, err)
		assert.Equal(t, arcana.IntentInvoke, parsed.Intent)
		assert.Equal(t, "liquidmetal", parsed.Daemon)
		assert.Equal(t, "reshape the data", parsed.Task)
	})
}

func TestParseSummonBanishQuery(t *testing.T) {
	parser := NewParser()

	t.Run("summon", func(t *testing.T) {
		parsed, err := parser.Parse("summon claude")
		require.NoError(t, err)
		assert.Equal(t, arcana.IntentSummon, parsed.Intent)
		assert.Equal(t, "claude", parsed.Daemon)
		assert.InDelta(t, 0.8, parsed.Confidence, 0.0001)
	})

	t.Run("summon with article and daemon suffix", func(t *testing.T) {
		parsed, err := parser.Parse("summon the gemini daemon")
		require.NoError(t, err)
		assert.Equal(t, arcana.IntentSummon, parsed.Intent)
		assert.Equal(t, "gemini", parsed.Daemon)
	})

	t.Run("banish", func(t *testing.T) {
		parsed, err := parser.Parse("banish liquidmetal")
		require.NoError(t, err)
		assert.Equal(t, arcana.IntentBanish, parsed.Intent)
		assert.Equal(t, "liquidmetal", parsed.Daemon)
	})

	t.Run("dismiss synonym", func(t *testing.T) {
		parsed, err := parser.Parse("dismiss the claude")
		require.NoError(t, err)
		assert.Equal(t, arcana.IntentBanish, parsed.Intent)
		assert.Equal(t, "claude", parsed.Daemon)
	})

	t.Run("query all daemons", func(t *testing.T) {
		parsed, err := parser.Parse("show me all the daemons")
		require.NoError(t, err)
		assert.Equal(t, arcana.IntentQuery, parsed.Intent)
		assert.Empty(t, parsed.Daemon)
	})

	t.Run("status of daemon", func(t *testing.T) {
		parsed, err := parser.Parse("status of the logic keeper")
		require.NoError(t, err)
		assert.Equal(t, arcana.IntentQuery, parsed.Intent)
		assert.Equal(t, "claude", parsed.Daemon)
	})
}

func TestNormalizeDaemonName(t *testing.T) {
	t.Run("aliases resolve to canonical names", func(t *testing.T) {
		assert.Equal(t, "claude", NormalizeDaemonName("Claude"))
		assert.Equal(t, "claude", NormalizeDaemonName("claude"))
		assert.Equal(t, "claude", NormalizeDaemonName("logic keeper"))
		assert.Equal(t, "gemini", NormalizeDaemonName("the Dreamer"))
		assert.Equal(t, "liquidmetal", NormalizeDaemonName("liquid metal"))
		assert.Equal(t, "liquidmetal", NormalizeDaemonName("shapeshifter"))
	})

	t.Run("unknown names pass through lower-cased", func(t *testing.T) {
		assert.Equal(t, "moloch", NormalizeDaemonName("Moloch"))
	})

	t.Run("token matching two daemons resolves the same way every time", func(t *testing.T) {
		// "creative" belongs to gemini, "transformer" to liquidmetal;
		// gemini comes first in arcana.AllDaemons.
		for i := 0; i < 200; i++ {
			assert.Equal(t, "gemini", NormalizeDaemonName("the creative transformer"))
		}
	})
}

func TestExtractParameters(t *testing.T) {
	parser := NewParser()

	t.Run("string parameter", func(t *testing.T) {
		parsed, err := parser.Parse("invoke claude to analyze code with depth=high")
		require.NoError(t, err)
		assert.Equal(t, "analyze code", parsed.Task)
		assert.Equal(t, "high", parsed.Parameters["depth"])
	})

	t.Run("integer parameter", func(t *testing.T) {
		parsed, err := parser.Parse("invoke claude to run checks with timeout=30")
		require.NoError(t, err)
		assert.Equal(t, 30, parsed.Parameters["timeout"])
	})

	t.Run("boolean parameter", func(t *testing.T) {
		parsed, err := parser.Parse("invoke claude to run checks with verbose=true")
		require.NoError(t, err)
		assert.Equal(t, true, parsed.Parameters["verbose"])
	})

	t.Run("float parameter", func(t *testing.T) {
		parsed, err := parser.Parse("invoke claude to tune model with rate=0.5")
		require.NoError(t, err)
		assert.Equal(t, 0.5, parsed.Parameters["rate"])
	})

	t.Run("quoted parameter keeps inner spaces", func(t *testing.T) {
		parsed, err := parser.Parse(`invoke claude to summarize with style="short and direct"`)
		require.NoError(t, err)
		assert.Equal(t, "short and direct", parsed.Parameters["style"])
		assert.Equal(t, "summarize", parsed.Task)
	})

	t.Run("multiple parameters are all extracted", func(t *testing.T) {
		parsed, err := parser.Parse("invoke gemini to paint with colors=7 with bold=false")
		require.NoError(t, err)
		assert.Equal(t, 7, parsed.Parameters["colors"])
		assert.Equal(t, false, parsed.Parameters["bold"])
		assert.Equal(t, "paint", parsed.Task)
	})

	t.Run("no parameters leaves task untouched", func(t *testing.T) {
		parsed, err := parser.Parse("invoke claude to write a poem")
		require.NoError(t, err)
		assert.Nil(t, parsed.Parameters)
		assert.Equal(t, "write a poem", parsed.Task)
	})
}

func TestParseFailures(t *testing.T) {
	parser := NewParser()

	t.Run("empty spell", func(t *testing.T) {
		_, err := parser.Parse("   ")
		require.Error(t, err)
		assert.True(t, arcana.IsParseError(err))
	})

	t.Run("gibberish carries suggestions", func(t *testing.T) {
		_, err := parser.Parse("fhqwhgads")
		require.Error(t, err)

		var perr *arcana.ParseError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "fhqwhgads", perr.Input)
		// No action keyword and no daemon alias: both hints plus examples.
		require.Len(t, perr.Suggestions, 5)
		assert.Contains(t, perr.Suggestions[0], "action")
		assert.Contains(t, perr.Suggestions[1], "daemon name")
	})

	t.Run("known daemon without action only hints the action", func(t *testing.T) {
		suggestions := parser.SuggestCorrections("claude please")
		assert.Contains(t, suggestions[0], "action")
		for _, s := range suggestions[1:] {
			assert.NotContains(t, s, "Include a known daemon name")
		}
	})
}

func TestParseBatch(t *testing.T) {
	parser := NewParser()

	results := parser.ParseBatch([]string{
		"summon claude",
		"utter nonsense without meaning",
		"banish gemini",
	})

	require.Len(t, results, 2)
	assert.Equal(t, arcana.IntentSummon, results[0].Intent)
	assert.Equal(t, arcana.IntentBanish, results[1].Intent)
}

func TestParserIsStatelessAcrossCalls(t *testing.T) {
	parser := NewParser()

	first, err := parser.Parse("invoke claude to write code with timeout=30")
	require.NoError(t, err)
	second, err := parser.Parse("invoke claude to write code with timeout=30")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
