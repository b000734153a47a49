package grimoire

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcanelabs/arcaneos/pkg/arcana"
)

// setupTestClient creates a grimoire client backed by a miniredis instance.
func setupTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewClient(&redis.Options{Addr: mr.Addr()}, "test-realm")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func TestNewClient(t *testing.T) {
	t.Run("creates client successfully", func(t *testing.T) {
		client, _ := setupTestClient(t)
		assert.NotNil(t, client)
		assert.NoError(t, client.Ping(context.Background()))
	})

	t.Run("rejects empty instance name", func(t *testing.T) {
		_, err := NewClient(&redis.Options{Addr: "localhost:6379"}, "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "instance name cannot be empty")
	})
}

func TestRecordAndRecallSpells(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	client.RecordSpell(ctx, Entry{
		SpellName:  "summon_claude",
		SpellType:  arcana.EventSummon,
		DaemonName: arcana.DaemonClaude,
		Command:    map[string]any{"daemon_name": "claude"},
		Result:     map[string]any{"status": "summoned"},
		Success:    true,
	})
	client.RecordSpell(ctx, Entry{
		SpellName:     "invoke_claude",
		SpellType:     arcana.EventInvoke,
		DaemonName:    arcana.DaemonClaude,
		Success:       true,
		ExecutionTime: 0.42,
	})

	entries, err := client.Recall(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "summon_claude", entries[0].SpellName)
	assert.Equal(t, arcana.EventSummon, entries[0].SpellType)
	assert.Equal(t, "summoned", entries[0].Result["status"])
	assert.Equal(t, "invoke_claude", entries[1].SpellName)
	assert.InDelta(t, 0.42, entries[1].ExecutionTime, 0.0001)
	assert.False(t, entries[0].Timestamp.IsZero())
}

func TestRecallLimit(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		client.RecordSpell(ctx, Entry{SpellName: "parse", SpellType: arcana.EventParse, Success: true})
	}

	entries, err := client.Recall(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	// Zero limit falls back to the default of 5.
	entries, err = client.Recall(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

func TestRejectPayloadAuditTrail(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	client.RejectPayload("schema_violation", map[string]any{"intent": 42})

	rejections, err := client.RecallRejections(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rejections, 1)

	assert.Equal(t, "REJECTED_PAYLOAD", rejections[0].Event)
	assert.Equal(t, "schema_violation", rejections[0].Reason)
	assert.Equal(t, float64(42), rejections[0].Payload["intent"])
}

func TestRecordDecision(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	directive := &arcana.Directive{
		Intent: arcana.IntentSummon,
		Daemon: arcana.DaemonGemini,
		Plan:   []string{"summon gemini"},
		Source: arcana.SourceParser,
	}
	client.RecordDecision(ctx, "summon gemini", directive, map[string]any{"status": "summoned"})

	entries, err := client.Recall(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(t, "route_summon", entries[0].SpellName)
	assert.Equal(t, arcana.EventRoute, entries[0].SpellType)
	assert.Equal(t, arcana.DaemonGemini, entries[0].DaemonName)
	assert.Equal(t, "summon gemini", entries[0].Command["spell"])
}

func TestRecordDecisionSurvivesCancelledRequest(t *testing.T) {
	client, _ := setupTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	directive := &arcana.Directive{Intent: arcana.IntentReveal, Daemon: arcana.DaemonNone, Source: arcana.SourceParser}
	client.RecordDecision(ctx, "reveal", directive, nil)

	entries, err := client.Recall(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPurgeOlderThan(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	old := Entry{SpellName: "ancient", SpellType: arcana.EventSummon, Timestamp: time.Now().UTC().Add(-48 * time.Hour)}
	fresh := Entry{SpellName: "recent", SpellType: arcana.EventSummon, Timestamp: time.Now().UTC()}
	client.RecordSpell(ctx, old)
	client.RecordSpell(ctx, fresh)

	kept, err := client.PurgeOlderThan(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, kept)

	entries, err := client.Recall(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "recent", entries[0].SpellName)
}

func TestEntriesAreCapped(t *testing.T) {
	client, _ := setupTestClient(t)
	client.maxEntries = 4
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		client.RecordSpell(ctx, Entry{SpellName: "parse", SpellType: arcana.EventParse})
	}

	entries, err := client.Recall(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestVeilPersistence(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	_, ok, err := client.LoadVeil(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "fresh instance has no stored veil mode")

	require.NoError(t, client.SaveVeil(ctx, false))
	fantasy, ok, err := client.LoadVeil(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, fantasy)

	require.NoError(t, client.SaveVeil(ctx, true))
	fantasy, ok, err = client.LoadVeil(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, fantasy)
}

func TestEventPubSub(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	sub, err := client.SubscribeEvents(ctx)
	require.NoError(t, err)
	defer sub.Close()

	event := arcana.NewEvent(arcana.EventSummon, arcana.DaemonClaude, true,
		"The runes pulse as CLAUDE materializes.", nil)

	// Publish until the subscriber is registered; pub/sub registration is
	// asynchronous and delivery is at-most-once.
	received := make(chan arcana.Event, 1)
	go func() {
		for e := range sub.Events() {
			received <- e
			return
		}
	}()

	deadline := time.After(2 * time.Second)
	for {
		client.PublishEvent(ctx, event)
		select {
		case got := <-received:
			assert.Equal(t, arcana.EventSummon, got.Kind)
			assert.Equal(t, arcana.DaemonClaude, got.Daemon)
			assert.True(t, got.Success)
			return
		case <-deadline:
			t.Fatal("timed out waiting for published event")
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestEventHistory(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	t.Run("published events are recallable oldest first", func(t *testing.T) {
		client.PublishEvent(ctx, arcana.NewEvent(arcana.EventSummon, arcana.DaemonClaude, true,
			"The runes pulse as CLAUDE materializes.", nil))
		client.PublishEvent(ctx, arcana.NewEvent(arcana.EventInvoke, arcana.DaemonClaude, true,
			"CLAUDE weaves the incantation.", nil))

		events, err := client.RecentEvents(ctx, 10)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, arcana.EventSummon, events[0].Kind)
		assert.Equal(t, arcana.EventInvoke, events[1].Kind)
	})

	t.Run("limit keeps the newest events", func(t *testing.T) {
		events, err := client.RecentEvents(ctx, 1)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, arcana.EventInvoke, events[0].Kind)
	})

	t.Run("empty history recalls nothing", func(t *testing.T) {
		fresh, _ := setupTestClient(t)
		events, err := fresh.RecentEvents(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}
