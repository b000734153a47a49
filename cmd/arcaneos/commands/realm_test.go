package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcanelabs/arcaneos/pkg/arcana"
)

// useTestConfig points the command package at a throwaway arcane.yml backed
// by a miniredis instance.
func useTestConfig(t *testing.T) {
	t.Helper()

	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	content := fmt.Sprintf(`version: "1.0"
instance: "test-realm"
redis:
  addr: "%s"
archon:
  enabled: false
capability:
  mode: "simulated"
`, mr.Addr())

	path := filepath.Join(t.TempDir(), "arcane.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	previous := configPath
	configPath = path
	t.Cleanup(func() { configPath = previous })
}

func TestOpenRealm_WiresTheCore(t *testing.T) {
	useTestConfig(t)
	ctx := context.Background()

	realm, err := openRealm(ctx)
	require.NoError(t, err)
	defer realm.Close()

	result, err := realm.router.Route(ctx, "summon claude")
	require.NoError(t, err)
	assert.Equal(t, arcana.IntentSummon, result.Directive.Intent)
	assert.Equal(t, "summoned", result.Execution["status"])

	// The decision and lifecycle records land in the grimoire
	entries, err := realm.grimoire.Recall(ctx, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestDaemonStateSurvivesAcrossRealms(t *testing.T) {
	useTestConfig(t)
	ctx := context.Background()

	first, err := openRealm(ctx)
	require.NoError(t, err)
	_, err = first.registry.Summon(ctx, arcana.DaemonGemini)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := openRealm(ctx)
	require.NoError(t, err)
	defer second.Close()

	snapshot, err := second.registry.Daemon(arcana.DaemonGemini)
	require.NoError(t, err)
	assert.True(t, snapshot.Summoned, "summoned state must survive the process boundary")

	_, err = second.registry.Invoke(ctx, arcana.DaemonGemini, "paint a sunset", nil)
	require.NoError(t, err)
}

func TestEventsSurviveAcrossRealms(t *testing.T) {
	useTestConfig(t)
	ctx := context.Background()

	first, err := openRealm(ctx)
	require.NoError(t, err)
	_, err = first.router.Route(ctx, "summon claude")
	require.NoError(t, err)

	// The mirror forwards bus events to the grimoire asynchronously
	require.Eventually(t, func() bool {
		events, err := first.grimoire.RecentEvents(ctx, 10)
		return err == nil && len(events) > 0
	}, 2*time.Second, 20*time.Millisecond)
	require.NoError(t, first.Close())

	second, err := openRealm(ctx)
	require.NoError(t, err)
	defer second.Close()

	events, err := second.grimoire.RecentEvents(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, events, "events must be readable after the emitting process exits")
	summoned := false
	for _, event := range events {
		if event.Kind == arcana.EventSummon && event.Daemon == arcana.DaemonClaude {
			summoned = true
		}
	}
	assert.True(t, summoned, "the summon event must be in the shared history")
}

func TestVeilModeSurvivesAcrossRealms(t *testing.T) {
	useTestConfig(t)
	ctx := context.Background()

	first, err := openRealm(ctx)
	require.NoError(t, err)
	first.veil.Set(false)
	require.NoError(t, first.grimoire.SaveVeil(ctx, false))
	require.NoError(t, first.Close())

	second, err := openRealm(ctx)
	require.NoError(t, err)
	defer second.Close()

	assert.False(t, second.veil.Enabled(), "developer mode must survive the process boundary")
}

func TestOpenRealm_MissingConfigFails(t *testing.T) {
	previous := configPath
	configPath = filepath.Join(t.TempDir(), "does-not-exist.yml")
	t.Cleanup(func() { configPath = previous })

	_, err := openRealm(context.Background())
	require.Error(t, err)
}
