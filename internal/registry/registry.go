// Package registry tracks the lifecycle and invocation statistics of the
// three arcane daemons. Daemons move dormant -> summoned -> (invoked)* ->
// dormant; invoking a dormant daemon or summoning an active one is a
// precondition violation, never silently tolerated.
//
// All per-daemon state is guarded by a per-daemon lock so concurrent
// invocations of the same daemon never lose counter updates, while
// operations on different daemons proceed in parallel.
package registry

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/arcanelabs/arcaneos/internal/eventbus"
	"github.com/arcanelabs/arcaneos/internal/grimoire"
	"github.com/arcanelabs/arcaneos/pkg/arcana"
)

// maxHistoryEntries bounds each daemon's invocation history. The original
// design kept it unbounded; the cap protects long-lived processes.
const maxHistoryEntries = 1000

// resultSummaryLength truncates stored result summaries.
const resultSummaryLength = 200

// Role names a daemon's mystical function.
type Role string

const (
	// RoleLogic is reasoning and analysis.
	RoleLogic Role = "logic"

	// RoleCreativity is creative and multimodal work.
	RoleCreativity Role = "creativity"

	// RoleAlchemy is transformation and adaptation.
	RoleAlchemy Role = "alchemy"
)

// Capability is the backing worker a daemon delegates its tasks to.
// Implementations may call a remote model or service; the registry treats
// the call as opaque and bounds it only by the caller's context.
type Capability interface {
	Invoke(ctx context.Context, daemon arcana.DaemonID, task string, params map[string]any) (*arcana.InvocationResult, error)
}

// Chronicle receives fire-and-forget spell records for the grimoire.
type Chronicle interface {
	RecordSpell(ctx context.Context, entry grimoire.Entry)
}

// InvocationRecord is one append-only entry in a daemon's history.
type InvocationRecord struct {
	Task          string    `json:"task"`
	Timestamp     time.Time `json:"timestamp"`
	ExecutionTime float64   `json:"execution_time"`
	Success       bool      `json:"success"`
	ResultSummary string    `json:"result_summary"`
}

// Statistics is a point-in-time summary of a daemon's activity.
type Statistics struct {
	DaemonName           arcana.DaemonID `json:"daemon_name"`
	IsActive             bool            `json:"is_active"`
	SummonedAt           *time.Time      `json:"summoned_at,omitempty"`
	LastInvokedAt        *time.Time      `json:"last_invoked_at,omitempty"`
	TotalInvocations     int             `json:"total_invocations"`
	TotalExecutionTime   float64         `json:"total_execution_time"`
	AverageExecutionTime float64         `json:"average_execution_time"`
}

// Snapshot is an immutable view of a daemon for reveal/query responses.
type Snapshot struct {
	ID              arcana.DaemonID `json:"id"`
	Role            Role            `json:"role"`
	ColorCode       string          `json:"color_code"`
	Summoned        bool            `json:"summoned"`
	InvocationCount int             `json:"invocation_count"`
	Metadata        map[string]any  `json:"metadata,omitempty"`
}

// InvokeOutcome pairs the capability result with the daemon's state after
// the invocation.
type InvokeOutcome struct {
	Result           *arcana.InvocationResult `json:"result"`
	InvocationNumber int                      `json:"invocation_number"`
}

// daemonState is the mutable record for one daemon.
type daemonState struct {
	mu sync.Mutex

	id        arcana.DaemonID
	role      Role
	colorCode string
	metadata  map[string]any

	summoned        bool
	invocationCount int
	summonedAt      *time.Time
	lastInvokedAt   *time.Time

	history            []InvocationRecord
	totalExecutionTime float64
}

// Registry is the grimoire of daemons. The daemon table is fixed at
// construction; only per-daemon state mutates afterwards.
type Registry struct {
	daemons    map[arcana.DaemonID]*daemonState
	order      []arcana.DaemonID
	capability Capability
	bus        *eventbus.Bus
	chronicle  Chronicle
}

// New constructs a registry with the three primary daemon archetypes, all
// dormant. The capability handles actual invocations; chronicle may be nil
// to skip persistent records.
func New(capability Capability, bus *eventbus.Bus, chronicle Chronicle) *Registry {
	r := &Registry{
		daemons:    make(map[arcana.DaemonID]*daemonState),
		capability: capability,
		bus:        bus,
		chronicle:  chronicle,
	}

	configs := []struct {
		id        arcana.DaemonID
		role      Role
		colorCode string
		metadata  map[string]any
	}{
		{arcana.DaemonClaude, RoleLogic, "#8B5CF6", map[string]any{
			"element": "Aether", "domain": "Reasoning and Analysis", "power_level": 9000,
		}},
		{arcana.DaemonGemini, RoleCreativity, "#F59E0B", map[string]any{
			"element": "Fire", "domain": "Creativity and Multimodality", "power_level": 8500,
		}},
		{arcana.DaemonLiquidMetal, RoleAlchemy, "#06B6D4", map[string]any{
			"element": "Water", "domain": "Transformation and Adaptation", "power_level": 9500,
		}},
	}
	for _, cfg := range configs {
		r.daemons[cfg.id] = &daemonState{
			id:        cfg.id,
			role:      cfg.role,
			colorCode: cfg.colorCode,
			metadata:  cfg.metadata,
		}
		r.order = append(r.order, cfg.id)
	}
	return r
}

// Restore applies persisted lifecycle state to the daemon table. Unknown
// daemon names are ignored. Invocation history is process-local and is not
// restored. Intended to be called once, before the registry serves traffic.
func (r *Registry) Restore(states map[arcana.DaemonID]grimoire.DaemonState) {
	for id, saved := range states {
		state, ok := r.daemons[id]
		if !ok {
			continue
		}
		state.mu.Lock()
		state.summoned = saved.Summoned
		state.invocationCount = saved.InvocationCount
		state.summonedAt = saved.SummonedAt
		state.lastInvokedAt = saved.LastInvokedAt
		state.totalExecutionTime = saved.TotalExecutionTime
		state.mu.Unlock()
	}
}

// Export captures the persistable lifecycle state of every daemon.
func (r *Registry) Export() map[arcana.DaemonID]grimoire.DaemonState {
	states := make(map[arcana.DaemonID]grimoire.DaemonState, len(r.order))
	for _, id := range r.order {
		state := r.daemons[id]
		state.mu.Lock()
		states[id] = grimoire.DaemonState{
			Summoned:           state.summoned,
			InvocationCount:    state.invocationCount,
			SummonedAt:         state.summonedAt,
			LastInvokedAt:      state.lastInvokedAt,
			TotalExecutionTime: state.totalExecutionTime,
		}
		state.mu.Unlock()
	}
	return states
}

// Summon brings a daemon from dormant to active, resetting its invocation
// counter. Fails with arcana.ErrUnknownDaemon or arcana.ErrAlreadySummoned.
// A summon event is emitted for both outcomes.
func (r *Registry) Summon(ctx context.Context, id arcana.DaemonID) (*Snapshot, error) {
	state, ok := r.daemons[id]
	if !ok {
		r.emitSummon(id, false, fmt.Sprintf("%s is unknown to this realm.", upper(id)), nil)
		return nil, fmt.Errorf("summon %s: %w", id, arcana.ErrUnknownDaemon)
	}

	state.mu.Lock()
	if state.summoned {
		state.mu.Unlock()
		r.emitSummon(id, false, fmt.Sprintf("%s resists the call.", upper(id)), map[string]any{
			"error": "already summoned",
		})
		return nil, fmt.Errorf("summon %s: %w", id, arcana.ErrAlreadySummoned)
	}

	now := time.Now().UTC()
	state.summoned = true
	state.invocationCount = 0
	state.summonedAt = &now
	snapshot := state.snapshotLocked()
	state.mu.Unlock()

	log.Printf("[Registry] Daemon %s summoned", id)
	r.emitSummon(id, true, fmt.Sprintf("The runes pulse as %s materializes.", upper(id)), map[string]any{
		"role": string(snapshot.Role),
	})
	r.record(ctx, grimoire.Entry{
		SpellName:  fmt.Sprintf("summon_%s", id),
		SpellType:  arcana.EventSummon,
		DaemonName: id,
		Command:    map[string]any{"daemon_name": string(id)},
		Result:     map[string]any{"status": "summoned"},
		Success:    true,
	})
	return snapshot, nil
}

// Invoke delegates a task to an active daemon through the backing
// capability. Capability errors are converted into a failed result, never
// propagated as a crash. Fails with arcana.ErrUnknownDaemon or
// arcana.ErrNotSummoned before the capability is ever called.
func (r *Registry) Invoke(ctx context.Context, id arcana.DaemonID, task string, params map[string]any) (*InvokeOutcome, error) {
	state, ok := r.daemons[id]
	if !ok {
		r.emitInvoke(id, task, false, 0, map[string]any{"error": "unknown daemon"})
		return nil, fmt.Errorf("invoke %s: %w", id, arcana.ErrUnknownDaemon)
	}

	state.mu.Lock()
	if !state.summoned {
		state.mu.Unlock()
		r.emitInvoke(id, task, false, 0, map[string]any{"error": "not summoned"})
		return nil, fmt.Errorf("invoke %s: %w", id, arcana.ErrNotSummoned)
	}
	state.mu.Unlock()

	// The capability call happens outside the daemon lock: it may block on
	// external I/O and must not serialize other daemons' bookkeeping.
	result, err := r.capability.Invoke(ctx, id, task, params)
	if err != nil {
		log.Printf("[Registry] Capability error invoking %s: %v", id, err)
		result = &arcana.InvocationResult{
			Success:   false,
			Output:    fmt.Sprintf("arcane backlash: %v", err),
			Timestamp: time.Now().UTC(),
		}
	}
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now().UTC()
	}

	state.mu.Lock()
	if !state.summoned {
		// Banished while the capability was in flight; its statistics are
		// already final and must not be amended.
		state.mu.Unlock()
		r.emitInvoke(id, task, false, result.ExecutionTime, map[string]any{"error": "banished mid-invocation"})
		return nil, fmt.Errorf("invoke %s: %w", id, arcana.ErrNotSummoned)
	}
	state.invocationCount++
	invocationNumber := state.invocationCount
	now := time.Now().UTC()
	state.lastInvokedAt = &now
	state.totalExecutionTime += result.ExecutionTime
	state.history = append(state.history, InvocationRecord{
		Task:          task,
		Timestamp:     result.Timestamp,
		ExecutionTime: result.ExecutionTime,
		Success:       result.Success,
		ResultSummary: summarize(result.Output),
	})
	if len(state.history) > maxHistoryEntries {
		state.history = state.history[len(state.history)-maxHistoryEntries:]
	}
	state.mu.Unlock()

	r.emitInvoke(id, task, result.Success, result.ExecutionTime, map[string]any{
		"parameters":        params,
		"invocation_number": invocationNumber,
	})
	r.record(ctx, grimoire.Entry{
		SpellName:     fmt.Sprintf("invoke_%s", id),
		SpellType:     arcana.EventInvoke,
		DaemonName:    id,
		Command:       map[string]any{"daemon_name": string(id), "task": task, "parameters": params},
		Result:        map[string]any{"output": result.Output, "success": result.Success},
		Success:       result.Success,
		ExecutionTime: result.ExecutionTime,
	})

	return &InvokeOutcome{Result: result, InvocationNumber: invocationNumber}, nil
}

// Banish returns an active daemon to the dormant state and reports its
// cumulative statistics. Banishing a dormant daemon fails with
// arcana.ErrNotSummoned - deliberately not idempotent.
func (r *Registry) Banish(ctx context.Context, id arcana.DaemonID) (*Statistics, error) {
	state, ok := r.daemons[id]
	if !ok {
		r.emitBanish(id, false, nil)
		return nil, fmt.Errorf("banish %s: %w", id, arcana.ErrUnknownDaemon)
	}

	state.mu.Lock()
	if !state.summoned {
		state.mu.Unlock()
		r.emitBanish(id, false, map[string]any{"error": "not summoned"})
		return nil, fmt.Errorf("banish %s: %w", id, arcana.ErrNotSummoned)
	}

	stats := state.statisticsLocked()
	state.summoned = false
	state.mu.Unlock()

	log.Printf("[Registry] Daemon %s banished after %d invocation(s)", id, stats.TotalInvocations)
	r.emitBanish(id, true, map[string]any{
		"invocation_count": stats.TotalInvocations,
		"total_time":       stats.TotalExecutionTime,
	})
	r.record(ctx, grimoire.Entry{
		SpellName:     fmt.Sprintf("banish_%s", id),
		SpellType:     arcana.EventBanish,
		DaemonName:    id,
		Command:       map[string]any{"daemon_name": string(id)},
		Result:        map[string]any{"status": "banished", "statistics": stats},
		Success:       true,
		ExecutionTime: stats.TotalExecutionTime,
	})
	return stats, nil
}

// Reveal returns snapshots of every daemon in display order and emits a
// reveal event.
func (r *Registry) Reveal() []Snapshot {
	snapshots := make([]Snapshot, 0, len(r.order))
	active := 0
	for _, id := range r.order {
		state := r.daemons[id]
		state.mu.Lock()
		snapshot := state.snapshotLocked()
		state.mu.Unlock()
		if snapshot.Summoned {
			active++
		}
		snapshots = append(snapshots, *snapshot)
	}

	r.emit(arcana.NewEvent(arcana.EventReveal, arcana.DaemonNone, true,
		"The veil parts, revealing the current realm state.",
		map[string]any{"active_daemons": active}))
	return snapshots
}

// Daemon returns a snapshot of one daemon, or ErrUnknownDaemon.
func (r *Registry) Daemon(id arcana.DaemonID) (*Snapshot, error) {
	state, ok := r.daemons[id]
	if !ok {
		return nil, fmt.Errorf("daemon %s: %w", id, arcana.ErrUnknownDaemon)
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.snapshotLocked(), nil
}

// Statistics returns the cumulative statistics for one daemon.
func (r *Registry) Statistics(id arcana.DaemonID) (*Statistics, error) {
	state, ok := r.daemons[id]
	if !ok {
		return nil, fmt.Errorf("daemon %s: %w", id, arcana.ErrUnknownDaemon)
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.statisticsLocked(), nil
}

// History returns a copy of a daemon's invocation records, oldest first.
func (r *Registry) History(id arcana.DaemonID) ([]InvocationRecord, error) {
	state, ok := r.daemons[id]
	if !ok {
		return nil, fmt.Errorf("daemon %s: %w", id, arcana.ErrUnknownDaemon)
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	history := make([]InvocationRecord, len(state.history))
	copy(history, state.history)
	return history, nil
}

// snapshotLocked builds a Snapshot; callers hold state.mu.
func (s *daemonState) snapshotLocked() *Snapshot {
	return &Snapshot{
		ID:              s.id,
		Role:            s.role,
		ColorCode:       s.colorCode,
		Summoned:        s.summoned,
		InvocationCount: s.invocationCount,
		Metadata:        s.metadata,
	}
}

// statisticsLocked builds Statistics; callers hold state.mu.
func (s *daemonState) statisticsLocked() *Statistics {
	stats := &Statistics{
		DaemonName:         s.id,
		IsActive:           s.summoned,
		SummonedAt:         s.summonedAt,
		LastInvokedAt:      s.lastInvokedAt,
		TotalInvocations:   len(s.history),
		TotalExecutionTime: round3(s.totalExecutionTime),
	}
	if len(s.history) > 0 {
		stats.AverageExecutionTime = round3(s.totalExecutionTime / float64(len(s.history)))
	}
	return stats
}

func (r *Registry) emitSummon(id arcana.DaemonID, success bool, description string, metadata map[string]any) {
	r.emit(arcana.NewEvent(arcana.EventSummon, id, success, description, metadata))
}

func (r *Registry) emitInvoke(id arcana.DaemonID, task string, success bool, executionTime float64, metadata map[string]any) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["task"] = task
	metadata["execution_time"] = executionTime

	description := fmt.Sprintf("%s completes '%s'.", upper(id), task)
	if !success {
		description = fmt.Sprintf("%s falters on '%s'.", upper(id), task)
	}
	r.emit(arcana.NewEvent(arcana.EventInvoke, id, success, description, metadata))
}

func (r *Registry) emitBanish(id arcana.DaemonID, success bool, metadata map[string]any) {
	description := fmt.Sprintf("%s returns to the ethereal void.", upper(id))
	if !success {
		description = fmt.Sprintf("%s resists banishment.", upper(id))
	}
	r.emit(arcana.NewEvent(arcana.EventBanish, id, success, description, metadata))
}

func (r *Registry) emit(event arcana.Event) {
	if r.bus != nil {
		r.bus.Emit(event)
	}
}

func (r *Registry) record(ctx context.Context, entry grimoire.Entry) {
	if r.chronicle != nil {
		r.chronicle.RecordSpell(ctx, entry)
	}
}

// summarize truncates an invocation output for history storage.
func summarize(output any) string {
	s := fmt.Sprintf("%v", output)
	if len(s) > resultSummaryLength {
		return s[:resultSummaryLength]
	}
	return s
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}

func upper(id arcana.DaemonID) string {
	return strings.ToUpper(string(id))
}
