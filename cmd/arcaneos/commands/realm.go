package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arcanelabs/arcaneos/internal/archon"
	"github.com/arcanelabs/arcaneos/internal/capability"
	"github.com/arcanelabs/arcaneos/internal/config"
	"github.com/arcanelabs/arcaneos/internal/eventbus"
	"github.com/arcanelabs/arcaneos/internal/grimoire"
	"github.com/arcanelabs/arcaneos/internal/printer"
	"github.com/arcanelabs/arcaneos/internal/registry"
	"github.com/arcanelabs/arcaneos/internal/safety"
	"github.com/arcanelabs/arcaneos/internal/spell"
	"github.com/arcanelabs/arcaneos/internal/veil"
)

// realm bundles every wired collaborator a command needs. One realm is
// opened per command invocation and closed when the command returns.
type realm struct {
	cfg      *config.ArcaneConfig
	grimoire *grimoire.Client
	bus      *eventbus.Bus
	veil     *veil.State
	registry *registry.Registry
	router   *archon.Router
	mirror   *eventbus.Subscription
}

// openRealm loads configuration, connects the grimoire, restores the
// persisted veil mode and wires the routing core.
func openRealm(ctx context.Context) (*realm, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, printer.Error(
			"failed to load configuration",
			fmt.Sprintf("Error: %v", err),
			[]string{
				"Create a configuration first:\n  arcaneos init",
				"Or point at an existing one:\n  arcaneos --config path/to/arcane.yml <command>",
			},
		)
	}

	chronicle, err := grimoire.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Instance)
	if err != nil {
		return nil, fmt.Errorf("failed to create grimoire client: %w", err)
	}

	if err := chronicle.Ping(ctx); err != nil {
		chronicle.Close()
		return nil, printer.Error(
			"Redis connection failed",
			fmt.Sprintf("Could not reach Redis at %s - the grimoire is unreadable.", cfg.Redis.Addr),
			[]string{
				"Start Redis:\n  docker run -d -p 6379:6379 redis:7",
				"Or point arcane.yml at a running server (redis.addr)",
			},
		)
	}

	veilState := veil.New()
	if cfg.Veil.Mode == "developer" {
		veilState.Set(false)
	}
	// A persisted mode set via 'arcaneos veil' overrides the config default
	if fantasy, ok, err := chronicle.LoadVeil(ctx); err == nil && ok {
		veilState.Set(fantasy)
	}

	bus := eventbus.New(cfg.Events.HistoryCapacity)
	reg := registry.New(buildCapability(cfg.Capability), bus, chronicle)

	// Daemon lifecycle survives across processes via the grimoire
	if states, err := chronicle.LoadDaemonStates(ctx); err == nil {
		reg.Restore(states)
	} else {
		printer.Warning("could not restore daemon state: %v\n", err)
	}

	planner, err := buildPlanner(ctx, cfg.Archon)
	if err != nil {
		chronicle.Close()
		return nil, err
	}

	router := archon.NewRouter(
		spell.NewParser(),
		safety.NewValidator(chronicle),
		reg,
		bus,
		veilState,
		archon.Options{
			Planner:  planner,
			Recorder: chronicle,
			Policy: archon.LatencyPolicy{
				SimpleBudget:  cfg.Latency.SimpleBudget,
				CodegenBudget: cfg.Latency.CodegenBudget,
				Fallback:      cfg.Latency.FallbackDaemon(),
			},
			SystemPrompt:   cfg.Archon.SystemPrompt,
			BaseNarration:  cfg.Archon.Narration,
			PlannerTimeout: time.Duration(cfg.Archon.TimeoutSeconds) * time.Second,
		},
	)

	// Mirror every in-process event into the shared grimoire: the persisted
	// history feeds 'arcaneos events', the pub/sub channel feeds --follow
	mirror := bus.Subscribe()
	go func() {
		for event := range mirror.Events() {
			chronicle.PublishEvent(context.Background(), event)
		}
	}()

	return &realm{
		cfg:      cfg,
		grimoire: chronicle,
		bus:      bus,
		veil:     veilState,
		registry: reg,
		router:   router,
		mirror:   mirror,
	}, nil
}

// Close persists daemon lifecycle state and releases the Redis connection.
func (r *realm) Close() error {
	r.mirror.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.grimoire.SaveDaemonStates(ctx, r.registry.Export()); err != nil {
		printer.Warning("could not persist daemon state: %v\n", err)
	}
	return r.grimoire.Close()
}

// buildCapability picks the invocation backend from configuration.
func buildCapability(cfg *config.CapabilityConfig) registry.Capability {
	if cfg.Mode == "http" {
		return capability.NewHTTP(cfg.Endpoint)
	}
	return &capability.Simulated{Delay: time.Duration(cfg.DelaySeconds * float64(time.Second))}
}

// buildPlanner constructs the configured external planner, or nil when the
// archon planner path is disabled.
func buildPlanner(ctx context.Context, cfg *config.ArchonConfig) (archon.Planner, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	switch cfg.Provider {
	case "http":
		return archon.NewHTTPPlanner(cfg.Endpoint, cfg.Tool, cfg.Model), nil
	case "gemini":
		apiKey := os.Getenv(cfg.APIKeyEnv)
		if apiKey == "" {
			printer.Warning("%s is not set; continuing with the pattern matcher only.\n", cfg.APIKeyEnv)
			return nil, nil
		}
		planner, err := archon.NewGeminiPlanner(ctx, apiKey, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini planner: %w", err)
		}
		return planner, nil
	default:
		return nil, fmt.Errorf("unknown archon provider: %s", cfg.Provider)
	}
}
