// Package archon implements the orchestration core: it turns a free-text
// spell into a single routing decision and executes it. The archon prefers
// a validated external-planner directive, measures the planner's response
// time against a latency budget, and falls back to the deterministic spell
// parser whenever the planner path fails for any reason. Only genuinely
// unroutable requests surface as errors.
package archon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/arcanelabs/arcaneos/internal/eventbus"
	"github.com/arcanelabs/arcaneos/internal/registry"
	"github.com/arcanelabs/arcaneos/internal/safety"
	"github.com/arcanelabs/arcaneos/internal/spell"
	"github.com/arcanelabs/arcaneos/internal/veil"
	"github.com/arcanelabs/arcaneos/pkg/arcana"
)

// DefaultSystemPrompt instructs the planning model to answer with a strict
// JSON directive the validator can check.
const DefaultSystemPrompt = `You are The Archon, orchestrator of ArcaneOS. ` +
	`Decide which daemon should handle the user's spell. Respond with strict JSON: ` +
	`{"intent": "summon|invoke|banish|reveal", "daemon": "claude|gemini|liquidmetal|none", ` +
	`"task": "...", "safety": {"allow_shell": false, "allow_net": false}, ` +
	`"style": {"fantasy": true, "voice": "archon"}, "plan": ["..."], "reasoning": "...", "confidence": 0.0}`

// DefaultBaseNarration is shown in fantasy mode instead of raw reasoning.
const DefaultBaseNarration = "The Archon contemplates your words, divining the optimal course through the code-ether."

// fallbackConfidence is the fixed confidence assigned to spell-parser
// fallback decisions.
const fallbackConfidence = 0.6

// Executor is the daemon lifecycle surface the archon executes against.
type Executor interface {
	Summon(ctx context.Context, id arcana.DaemonID) (*registry.Snapshot, error)
	Invoke(ctx context.Context, id arcana.DaemonID, task string, params map[string]any) (*registry.InvokeOutcome, error)
	Banish(ctx context.Context, id arcana.DaemonID) (*registry.Statistics, error)
	Reveal() []registry.Snapshot
}

// DecisionRecorder persists routing outcomes, fire-and-forget.
type DecisionRecorder interface {
	RecordDecision(ctx context.Context, spellText string, directive *arcana.Directive, result map[string]any)
}

// RouteResult is the full outcome of one routed spell.
type RouteResult struct {
	Directive *arcana.Directive `json:"directive"`
	Execution map[string]any    `json:"execution"`
}

// Options configures a Router beyond its required collaborators.
type Options struct {
	Planner        Planner          // nil disables the external-planner path
	Policy         LatencyPolicy    // zero value replaced by DefaultLatencyPolicy
	Recorder       DecisionRecorder // nil skips persistent decision records
	SystemPrompt   string
	BaseNarration  string
	PlannerTimeout time.Duration
}

// Router coordinates the spell parser, the external planner, the directive
// validator, the latency policy and the daemon registry into one decision
// per request.
type Router struct {
	parser         *spell.Parser
	validator      *safety.Validator
	executor       Executor
	bus            *eventbus.Bus
	veil           *veil.State
	planner        Planner
	policy         LatencyPolicy
	recorder       DecisionRecorder
	systemPrompt   string
	baseNarration  string
	plannerTimeout time.Duration
}

// NewRouter wires a router from explicit collaborators. No global state is
// consulted; every dependency is owned by the caller.
func NewRouter(parser *spell.Parser, validator *safety.Validator, executor Executor, bus *eventbus.Bus, veilState *veil.State, opts Options) *Router {
	policy := opts.Policy
	if policy.Fallback == "" {
		policy = DefaultLatencyPolicy()
	}
	systemPrompt := opts.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	narration := opts.BaseNarration
	if narration == "" {
		narration = DefaultBaseNarration
	}
	timeout := opts.PlannerTimeout
	if timeout <= 0 {
		timeout = defaultPlannerTimeout
	}

	return &Router{
		parser:         parser,
		validator:      validator,
		executor:       executor,
		bus:            bus,
		veil:           veilState,
		planner:        opts.Planner,
		policy:         policy,
		recorder:       opts.Recorder,
		systemPrompt:   systemPrompt,
		baseNarration:  narration,
		plannerTimeout: timeout,
	}
}

// Route converts a spell into a directive and executes it.
//
// The planner path and the parser fallback recover locally from their own
// failures; Route returns an error only for genuinely unroutable requests:
// *arcana.RoutingError for unparseable spells or directives with no
// addressable target, and daemon lifecycle errors from execution.
func (r *Router) Route(ctx context.Context, spellText string) (*RouteResult, error) {
	directive, err := r.decide(ctx, spellText)
	if err != nil {
		return nil, err
	}

	execution, err := r.execute(ctx, directive)
	if err != nil {
		return nil, err
	}

	if r.recorder != nil {
		r.recorder.RecordDecision(ctx, spellText, directive, execution)
	}
	return &RouteResult{Directive: directive, Execution: execution}, nil
}

// AnalyzeSpell produces the routing decision without executing it.
func (r *Router) AnalyzeSpell(ctx context.Context, spellText string) (*arcana.Directive, error) {
	return r.decide(ctx, spellText)
}

// decide runs the planner path when configured and falls back to the
// deterministic parser on any failure.
func (r *Router) decide(ctx context.Context, spellText string) (*arcana.Directive, error) {
	if r.planner != nil {
		directive, err := r.planDirective(ctx, spellText)
		if err == nil {
			return directive, nil
		}
		if arcana.IsValidationError(err) {
			log.Printf("[Archon] Planner payload failed validation, engaging fallback: %v", err)
		} else {
			log.Printf("[Archon] Planner unavailable, engaging fallback: %v", err)
		}
	}
	return r.parseDirective(spellText)
}

// planDirective requests, validates and budget-checks a planner directive.
func (r *Router) planDirective(ctx context.Context, spellText string) (*arcana.Directive, error) {
	payload, latency, err := r.requestDirective(ctx, spellText)
	if err != nil {
		return nil, err
	}

	fantasyMode := r.veil.Enabled()
	clean, err := r.validator.Validate(payload, fantasyMode)
	if err != nil {
		return nil, err
	}

	directive := r.directiveFromPayload(spellText, clean, payload)
	rerouted := r.policy.Apply(directive, latency)

	r.emit(arcana.NewEvent(arcana.EventRoute, directive.Daemon, true, "Route decision emitted", map[string]any{
		"latency_ms": latency * 1000,
		"intent":     string(directive.Intent),
		"fantasy":    fantasyMode,
		"rerouted":   rerouted,
	}))

	r.logEvent("planner_decision", map[string]any{
		"intent":        string(directive.Intent),
		"daemon":        string(directive.Daemon),
		"latency_s":     latency,
		"fallback_used": directive.FallbackUsed,
	})
	return directive, nil
}

// requestDirective runs the two-attempt planner protocol: a plain prompt,
// then a stricter JSON-only reprompt. Each attempt is independently timed
// and bounded by the planner timeout. The first attempt whose output is a
// non-empty JSON object wins; its elapsed wall-clock time is returned for
// the latency policy.
func (r *Router) requestDirective(ctx context.Context, spellText string) (map[string]any, float64, error) {
	prompts := []string{
		r.systemPrompt,
		r.systemPrompt + "\nReturn only JSON. No prose.",
	}

	var lastErr error
	for _, prompt := range prompts {
		message := fmt.Sprintf("%s\n\nUser Spell: %q\nRemember: respond with strict JSON only.", prompt, spellText)

		attemptCtx, cancel := context.WithTimeout(ctx, r.plannerTimeout)
		started := time.Now()
		raw, err := r.planner.Plan(attemptCtx, message)
		elapsed := time.Since(started).Seconds()
		cancel()

		if err != nil {
			lastErr = err
			continue
		}
		if strings.TrimSpace(raw) == "" {
			lastErr = errors.New("empty planner output")
			continue
		}

		var payload map[string]any
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			lastErr = err
			continue
		}
		return payload, elapsed, nil
	}
	return nil, 0, fmt.Errorf("invalid planner output: %w", lastErr)
}

// directiveFromPayload builds a Directive from a validated planner payload.
// Reasoning and confidence are optional extras read from the raw payload;
// they were never required by the schema.
func (r *Router) directiveFromPayload(spellText string, clean *safety.CleanDirective, payload map[string]any) *arcana.Directive {
	reasoning, _ := payload["reasoning"].(string)

	narration := r.baseNarration
	if !clean.Style.Fantasy {
		narration = reasoning
	}

	directive := &arcana.Directive{
		Intent:     clean.Intent,
		Daemon:     clean.Daemon,
		Task:       clean.Task,
		Parameters: clean.Parameters,
		Plan:       clean.Plan,
		Narration:  narration,
		Reasoning:  reasoning,
		Source:     arcana.SourcePlanner,
		RawInput:   spellText,
	}
	if confidence, ok := payload["confidence"].(float64); ok {
		directive.Confidence = arcana.WithConfidence(confidence)
	}
	return directive
}

// parseDirective builds a fallback directive from the deterministic spell
// parser. Parse failures terminate the request with
// RoutingError(unparseable).
func (r *Router) parseDirective(spellText string) (*arcana.Directive, error) {
	parsed, err := r.parser.Parse(spellText)
	if err != nil {
		r.emit(arcana.NewEvent(arcana.EventParse, arcana.DaemonNone, false,
			fmt.Sprintf("'%s' defies translation.", spellText),
			map[string]any{"spell_text": spellText}))

		var perr *arcana.ParseError
		detail := err.Error()
		var plan []string
		if errors.As(err, &perr) {
			plan = perr.Suggestions
		}
		return nil, &arcana.RoutingError{Reason: arcana.ReasonUnparseable, Detail: detail, Plan: plan}
	}

	narration := "parser_fallback"
	if r.veil.Enabled() {
		narration = "The Archon contemplates your words, relying on ancient heuristics."
	}

	directive := &arcana.Directive{
		Intent:       parsed.Intent,
		Daemon:       parsed.DaemonID(),
		Task:         parsed.Task,
		Parameters:   parsed.Parameters,
		Narration:    narration,
		Reasoning:    "Fallback spell parser engaged.",
		Confidence:   arcana.WithConfidence(fallbackConfidence),
		FallbackUsed: true,
		Source:       arcana.SourceParser,
		RawInput:     parsed.RawInput,
	}

	r.emit(arcana.NewEvent(arcana.EventParse, directive.Daemon, true,
		fmt.Sprintf("Runes clarify '%s' -> %s.", spellText, parsed.Intent),
		map[string]any{"spell_text": spellText, "parsed_action": string(parsed.Intent)}))

	r.logEvent("parser_fallback", map[string]any{
		"intent":     string(directive.Intent),
		"daemon":     string(directive.Daemon),
		"confidence": parsed.Confidence,
	})
	return directive, nil
}

// execute dispatches the directive to the daemon registry. A decision with
// no addressable target is never executed; reveal and query need no target.
func (r *Router) execute(ctx context.Context, d *arcana.Directive) (map[string]any, error) {
	switch d.Intent {
	case arcana.IntentReveal, arcana.IntentQuery:
		snapshots := r.executor.Reveal()
		return map[string]any{"daemons": snapshots}, nil
	}

	if !d.Daemon.Addressable() {
		plan := d.Plan
		if len(plan) == 0 {
			plan = []string{"No safe execution path provided."}
		}
		return nil, &arcana.RoutingError{Reason: arcana.ReasonNoTarget, Plan: plan}
	}

	switch d.Intent {
	case arcana.IntentSummon:
		snapshot, err := r.executor.Summon(ctx, d.Daemon)
		if err != nil {
			return nil, err
		}
		return map[string]any{"status": "summoned", "daemon": snapshot}, nil

	case arcana.IntentInvoke:
		outcome, err := r.executor.Invoke(ctx, d.Daemon, d.Task, d.Parameters)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"result":            outcome.Result.Output,
			"success":           outcome.Result.Success,
			"execution_time":    outcome.Result.ExecutionTime,
			"invocation_number": outcome.InvocationNumber,
		}, nil

	case arcana.IntentBanish:
		stats, err := r.executor.Banish(ctx, d.Daemon)
		if err != nil {
			return nil, err
		}
		return map[string]any{"status": "banished", "statistics": stats}, nil

	default:
		return nil, &arcana.RoutingError{Reason: arcana.ReasonNoTarget, Detail: fmt.Sprintf("intent %q has no execution path", d.Intent), Plan: d.Plan}
	}
}

func (r *Router) emit(event arcana.Event) {
	if r.bus != nil {
		r.bus.Emit(event)
	}
}

// logEvent logs a structured event in JSON format.
func (r *Router) logEvent(eventType string, data map[string]any) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "info"
	data["component"] = "archon"
	data["event_type"] = eventType

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Archon] Failed to marshal log event: %v", err)
		return
	}
	log.Println(string(jsonData))
}
