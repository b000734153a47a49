// Package grimoire is the persistent memory layer: an append-only,
// Redis-backed record of every spell cast, payload rejected and routing
// decision taken. Entries are stored as JSON lines on namespaced Redis
// lists so multiple ArcaneOS instances can share one Redis server.
//
// Writes are fire-and-forget from the caller's point of view: a grimoire
// failure is logged and never fails the operation that produced the entry.
package grimoire

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arcanelabs/arcaneos/pkg/arcana"
)

// DefaultMaxEntries caps each grimoire list so long-lived realms do not
// grow without bound.
const DefaultMaxEntries = 10000

// writeTimeout bounds each fire-and-forget Redis write.
const writeTimeout = 2 * time.Second

// Entry is a single spell record in the grimoire.
type Entry struct {
	Timestamp     time.Time        `json:"timestamp"`
	SpellName     string           `json:"spell_name"`
	SpellType     arcana.EventKind `json:"spell_type"`
	DaemonName    arcana.DaemonID  `json:"daemon_name,omitempty"`
	Command       map[string]any   `json:"command,omitempty"`
	Result        map[string]any   `json:"result,omitempty"`
	Success       bool             `json:"success"`
	ExecutionTime float64          `json:"execution_time,omitempty"`
}

// Rejection is an audit-trail record of a payload the validator refused.
type Rejection struct {
	Timestamp time.Time      `json:"timestamp"`
	Event     string         `json:"event"`
	Reason    string         `json:"reason"`
	Payload   map[string]any `json:"payload"`
}

// SpellsKey returns the Redis key for the spell-record list.
// Pattern: arcane:{instance}:spells
func SpellsKey(instance string) string {
	return fmt.Sprintf("arcane:%s:spells", instance)
}

// AuditKey returns the Redis key for the rejected-payload audit list.
// Pattern: arcane:{instance}:audit
func AuditKey(instance string) string {
	return fmt.Sprintf("arcane:%s:audit", instance)
}

// VeilKey returns the Redis key holding the instance's narration mode.
// Pattern: arcane:{instance}:veil
func VeilKey(instance string) string {
	return fmt.Sprintf("arcane:%s:veil", instance)
}

// DaemonsKey returns the Redis hash holding persisted daemon state.
// Pattern: arcane:{instance}:daemons
func DaemonsKey(instance string) string {
	return fmt.Sprintf("arcane:%s:daemons", instance)
}

// EventsChannel returns the pub/sub channel for live event fan-out.
// Pattern: arcane:{instance}:events
func EventsChannel(instance string) string {
	return fmt.Sprintf("arcane:%s:events", instance)
}

// EventHistoryKey returns the Redis key for the persisted event list.
// Pattern: arcane:{instance}:events:history
func EventHistoryKey(instance string) string {
	return fmt.Sprintf("arcane:%s:events:history", instance)
}

// Client provides instance-scoped grimoire operations.
// All keys are namespaced with the instance name. The client is safe for
// concurrent use.
type Client struct {
	rdb        *redis.Client
	instance   string
	maxEntries int64
}

// NewClient creates a grimoire client for the given instance.
// Returns an error if instance is empty.
func NewClient(redisOpts *redis.Options, instance string) (*Client, error) {
	if instance == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}
	return &Client{
		rdb:        redis.NewClient(redisOpts),
		instance:   instance,
		maxEntries: DefaultMaxEntries,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// RecordSpell appends a spell entry to the grimoire. Fire-and-forget:
// failures are logged, never returned.
func (c *Client) RecordSpell(ctx context.Context, entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	c.appendJSON(ctx, SpellsKey(c.instance), entry)
}

// RejectPayload appends a REJECTED_PAYLOAD audit record. Implements the
// validator's audit sink. Fire-and-forget.
func (c *Client) RejectPayload(reason string, payload map[string]any) {
	rejection := Rejection{
		Timestamp: time.Now().UTC(),
		Event:     "REJECTED_PAYLOAD",
		Reason:    reason,
		Payload:   payload,
	}
	c.appendJSON(context.Background(), AuditKey(c.instance), rejection)
}

// RecordDecision appends the outcome of one routing request.
// Fire-and-forget.
func (c *Client) RecordDecision(ctx context.Context, spellText string, directive *arcana.Directive, result map[string]any) {
	entry := Entry{
		Timestamp:  time.Now().UTC(),
		SpellName:  fmt.Sprintf("route_%s", directive.Intent),
		SpellType:  arcana.EventRoute,
		DaemonName: directive.Daemon,
		Command: map[string]any{
			"spell":     spellText,
			"directive": directive,
		},
		Result:  result,
		Success: true,
	}
	c.appendJSON(ctx, SpellsKey(c.instance), entry)
}

// DaemonState is the persistable slice of a daemon's lifecycle: enough to
// rebuild the registry between processes. Invocation history stays
// in-memory only.
type DaemonState struct {
	Summoned           bool       `json:"summoned"`
	InvocationCount    int        `json:"invocation_count"`
	SummonedAt         *time.Time `json:"summoned_at,omitempty"`
	LastInvokedAt      *time.Time `json:"last_invoked_at,omitempty"`
	TotalExecutionTime float64    `json:"total_execution_time"`
}

// SaveDaemonStates persists per-daemon lifecycle state as a Redis hash,
// one field per daemon.
func (c *Client) SaveDaemonStates(ctx context.Context, states map[arcana.DaemonID]DaemonState) error {
	if len(states) == 0 {
		return nil
	}
	fields := make(map[string]any, len(states))
	for id, state := range states {
		data, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("failed to marshal state for %s: %w", id, err)
		}
		fields[string(id)] = data
	}
	if err := c.rdb.HSet(ctx, DaemonsKey(c.instance), fields).Err(); err != nil {
		return fmt.Errorf("failed to persist daemon states: %w", err)
	}
	return nil
}

// LoadDaemonStates returns the persisted lifecycle state for every daemon
// that has one. Fields that no longer unmarshal are skipped.
func (c *Client) LoadDaemonStates(ctx context.Context) (map[arcana.DaemonID]DaemonState, error) {
	fields, err := c.rdb.HGetAll(ctx, DaemonsKey(c.instance)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load daemon states: %w", err)
	}

	states := make(map[arcana.DaemonID]DaemonState, len(fields))
	for name, raw := range fields {
		var state DaemonState
		if err := json.Unmarshal([]byte(raw), &state); err != nil {
			log.Printf("[Grimoire] Skipping corrupt daemon state for %s: %v", name, err)
			continue
		}
		states[arcana.DaemonID(name)] = state
	}
	return states, nil
}

// SaveVeil persists the narration mode so it survives across processes.
// Unlike grimoire writes this is not fire-and-forget: the caller asked for
// the change and should hear about a failure.
func (c *Client) SaveVeil(ctx context.Context, fantasy bool) error {
	mode := "developer"
	if fantasy {
		mode = "fantasy"
	}
	if err := c.rdb.Set(ctx, VeilKey(c.instance), mode, 0).Err(); err != nil {
		return fmt.Errorf("failed to persist veil mode: %w", err)
	}
	return nil
}

// LoadVeil returns the persisted narration mode. The second return value
// is false when no mode has been stored for this instance.
func (c *Client) LoadVeil(ctx context.Context) (fantasy bool, ok bool, err error) {
	mode, err := c.rdb.Get(ctx, VeilKey(c.instance)).Result()
	if err == redis.Nil {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("failed to load veil mode: %w", err)
	}
	return mode == "fantasy", true, nil
}

// Recall returns up to limit spell entries, oldest first. Entries that no
// longer unmarshal are skipped.
func (c *Client) Recall(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 5
	}
	lines, err := c.rdb.LRange(ctx, SpellsKey(c.instance), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read grimoire: %w", err)
	}

	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			log.Printf("[Grimoire] Skipping unreadable entry: %v", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// RecallRejections returns up to limit audit records, oldest first.
func (c *Client) RecallRejections(ctx context.Context, limit int) ([]Rejection, error) {
	if limit <= 0 {
		limit = 5
	}
	lines, err := c.rdb.LRange(ctx, AuditKey(c.instance), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read audit trail: %w", err)
	}

	rejections := make([]Rejection, 0, len(lines))
	for _, line := range lines {
		var rejection Rejection
		if err := json.Unmarshal([]byte(line), &rejection); err != nil {
			log.Printf("[Grimoire] Skipping unreadable audit entry: %v", err)
			continue
		}
		rejections = append(rejections, rejection)
	}
	return rejections, nil
}

// PurgeOlderThan removes spell entries older than the cutoff and returns
// how many were kept. Used for periodic grimoire maintenance.
func (c *Client) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	key := SpellsKey(c.instance)
	lines, err := c.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read grimoire: %w", err)
	}

	kept := make([]any, 0, len(lines))
	for _, line := range lines {
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if entry.Timestamp.After(cutoff) {
			kept = append(kept, line)
		}
	}

	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, key)
	if len(kept) > 0 {
		pipe.RPush(ctx, key, kept...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to rewrite grimoire: %w", err)
	}
	return len(kept), nil
}

// PublishEvent broadcasts an event on the instance's pub/sub channel for
// live cross-process observers and appends it to the persisted event
// history. Fire-and-forget.
func (c *Client) PublishEvent(ctx context.Context, event arcana.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[Grimoire] Failed to marshal event: %v", err)
		return
	}

	c.appendJSON(ctx, EventHistoryKey(c.instance), event)

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := c.rdb.Publish(publishCtx, EventsChannel(c.instance), data).Err(); err != nil {
		log.Printf("[Grimoire] Failed to publish event: %v", err)
	}
}

// RecentEvents returns up to limit persisted events, oldest first. Events
// that no longer unmarshal are skipped.
func (c *Client) RecentEvents(ctx context.Context, limit int) ([]arcana.Event, error) {
	if limit <= 0 {
		limit = 10
	}
	lines, err := c.rdb.LRange(ctx, EventHistoryKey(c.instance), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read event history: %w", err)
	}

	events := make([]arcana.Event, 0, len(lines))
	for _, line := range lines {
		var event arcana.Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			log.Printf("[Grimoire] Skipping unreadable event: %v", err)
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// EventSubscription delivers live events published by any process sharing
// this instance.
type EventSubscription struct {
	events chan arcana.Event
	errors chan error
	cancel context.CancelFunc
	once   sync.Once
}

// Events returns the channel of live events.
func (s *EventSubscription) Events() <-chan arcana.Event {
	return s.events
}

// Errors returns the channel of subscription errors.
func (s *EventSubscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
func (s *EventSubscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeEvents subscribes to live events for this instance.
// Caller must call subscription.Close() when done. Context cancellation
// also stops the subscription.
//
// Events are delivered on a buffered channel (size 10) to prevent blocking.
// If the subscriber is too slow, events may be dropped by Redis Pub/Sub
// (at-most-once delivery).
func (c *Client) SubscribeEvents(ctx context.Context) (*EventSubscription, error) {
	pubsub := c.rdb.Subscribe(ctx, EventsChannel(c.instance))

	eventsChan := make(chan arcana.Event, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var event arcana.Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- event:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &EventSubscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// appendJSON pushes a JSON line onto key and trims the list to maxEntries.
func (c *Client) appendJSON(ctx context.Context, key string, record any) {
	data, err := json.Marshal(record)
	if err != nil {
		log.Printf("[Grimoire] Failed to marshal record for %s: %v", key, err)
		return
	}

	// Detach from the request's cancellation so a finished request still
	// gets its record written.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	pipe := c.rdb.TxPipeline()
	pipe.RPush(writeCtx, key, data)
	pipe.LTrim(writeCtx, key, -c.maxEntries, -1)
	if _, err := pipe.Exec(writeCtx); err != nil {
		log.Printf("[Grimoire] Failed to append record to %s: %v", key, err)
	}
}
