// Package safety enforces the directive schema and content policy on
// untrusted payloads returned by the external planner. A payload either
// passes validation in a single pass or is rejected; every rejection is
// written to the audit sink before the error reaches the caller.
package safety

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/arcanelabs/arcaneos/pkg/arcana"
)

// MaxTaskLength is the longest task string a directive may carry.
const MaxTaskLength = 140

// RedactionMarker replaces filesystem-path-like substrings in plan entries
// when validating in strict (fantasy) mode.
const RedactionMarker = "[path-redacted]"

// redactRe matches absolute POSIX paths and Windows drive paths.
var redactRe = regexp.MustCompile(`([A-Za-z]:\\\S+|/\S+)`)

// AuditSink receives rejected payloads for the append-only audit trail.
// Implementations must not fail the validator: errors are logged and dropped.
type AuditSink interface {
	RejectPayload(reason string, payload map[string]any)
}

// SafetySettings is the directive safety block.
type SafetySettings struct {
	AllowShell bool `json:"allow_shell"`
	AllowNet   bool `json:"allow_net"`
}

// StyleSettings is the directive presentation block.
type StyleSettings struct {
	Fantasy bool   `json:"fantasy"`
	Voice   string `json:"voice"`
}

// validVoices is the closed set of narration voices a directive may request.
var validVoices = map[string]bool{"archon": true, "claude": true, "gemini": true}

// CleanDirective is a directive payload that passed schema and policy
// validation. Plan entries have been redacted when strict mode was on.
type CleanDirective struct {
	Intent     arcana.Intent   `json:"intent"`
	Daemon     arcana.DaemonID `json:"daemon"`
	Task       string          `json:"task"`
	Safety     SafetySettings  `json:"safety"`
	Style      StyleSettings   `json:"style"`
	Parameters map[string]any  `json:"parameters,omitempty"`
	Plan       []string        `json:"plan"`
}

// Validator checks untrusted planner payloads against the directive schema
// and the content policy. The schema itself is immutable; the validator is
// safe for concurrent use.
type Validator struct {
	audit AuditSink
}

// NewValidator builds a validator writing rejections to the given sink.
func NewValidator(audit AuditSink) *Validator {
	return &Validator{audit: audit}
}

// Validate performs a single validation pass over payload.
//
// strictMode corresponds to fantasy display mode: when true, plan entries
// have path-like substrings replaced by RedactionMarker; when false, the
// returned style block is forced to fantasy=false and redaction is skipped.
//
// Returns *arcana.ValidationError on any schema or policy violation. The
// rejection has been written to the audit sink by the time Validate returns.
func (v *Validator) Validate(payload map[string]any, strictMode bool) (*CleanDirective, error) {
	clean, err := v.parseSchema(payload)
	if err != nil {
		v.reject(string(arcana.ReasonSchemaViolation), payload)
		return nil, err
	}

	if !clean.Safety.AllowShell {
		sources := append([]string{clean.Task}, clean.Plan...)
		for _, text := range sources {
			if strings.Contains(strings.ToLower(text), "shell") {
				v.reject("shell_command_disallowed", payload)
				return nil, &arcana.ValidationError{
					Reason: arcana.ReasonPolicyViolation,
					Detail: "shell execution requested but disallowed",
				}
			}
		}
	}

	if strictMode {
		redacted := make([]string, len(clean.Plan))
		for i, step := range clean.Plan {
			redacted[i] = redactRe.ReplaceAllString(step, RedactionMarker)
		}
		clean.Plan = redacted
	} else {
		clean.Style.Fantasy = false
	}

	return clean, nil
}

// parseSchema checks field presence and shape without trusting anything.
func (v *Validator) parseSchema(payload map[string]any) (*CleanDirective, error) {
	intentRaw, err := requireString(payload, "intent")
	if err != nil {
		return nil, err
	}
	intent, ok := arcana.ParseIntent(intentRaw)
	if !ok || intent == arcana.IntentQuery {
		return nil, schemaViolation(fmt.Sprintf("intent %q is not one of summon, invoke, banish, reveal", intentRaw))
	}

	daemonRaw, err := requireString(payload, "daemon")
	if err != nil {
		return nil, err
	}
	daemon := arcana.ParseDaemonID(daemonRaw)
	if daemon == arcana.DaemonNone && strings.ToLower(strings.TrimSpace(daemonRaw)) != "none" {
		return nil, schemaViolation(fmt.Sprintf("daemon %q is not one of claude, gemini, liquidmetal, none", daemonRaw))
	}

	taskRaw, err := requireString(payload, "task")
	if err != nil {
		return nil, err
	}
	task := strings.TrimSpace(taskRaw)
	if utf8.RuneCountInString(task) > MaxTaskLength {
		return nil, schemaViolation(fmt.Sprintf("task exceeds %d characters", MaxTaskLength))
	}

	safetyBlock, err := requireMap(payload, "safety")
	if err != nil {
		return nil, err
	}
	allowShell, err := requireBool(safetyBlock, "allow_shell")
	if err != nil {
		return nil, err
	}
	allowNet, err := requireBool(safetyBlock, "allow_net")
	if err != nil {
		return nil, err
	}

	styleBlock, err := requireMap(payload, "style")
	if err != nil {
		return nil, err
	}
	fantasy, err := requireBool(styleBlock, "fantasy")
	if err != nil {
		return nil, err
	}
	voice, err := requireString(styleBlock, "voice")
	if err != nil {
		return nil, err
	}
	if !validVoices[voice] {
		return nil, schemaViolation(fmt.Sprintf("voice %q is not one of archon, claude, gemini", voice))
	}

	planRaw, ok := payload["plan"]
	if !ok {
		return nil, schemaViolation("plan is required")
	}
	plan, err := requireStringList(planRaw)
	if err != nil {
		return nil, err
	}

	var parameters map[string]any
	if raw, ok := payload["parameters"]; ok && raw != nil {
		parameters, ok = raw.(map[string]any)
		if !ok {
			return nil, schemaViolation("parameters must be an object")
		}
	}

	return &CleanDirective{
		Intent:     intent,
		Daemon:     daemon,
		Task:       task,
		Safety:     SafetySettings{AllowShell: allowShell, AllowNet: allowNet},
		Style:      StyleSettings{Fantasy: fantasy, Voice: voice},
		Parameters: parameters,
		Plan:       plan,
	}, nil
}

func (v *Validator) reject(reason string, payload map[string]any) {
	if v.audit != nil {
		v.audit.RejectPayload(reason, payload)
	}
}

func schemaViolation(detail string) error {
	return &arcana.ValidationError{Reason: arcana.ReasonSchemaViolation, Detail: detail}
}

func requireString(m map[string]any, key string) (string, error) {
	raw, ok := m[key]
	if !ok {
		return "", schemaViolation(key + " is required")
	}
	s, ok := raw.(string)
	if !ok {
		return "", schemaViolation(key + " must be a string")
	}
	return s, nil
}

func requireBool(m map[string]any, key string) (bool, error) {
	raw, ok := m[key]
	if !ok {
		return false, schemaViolation(key + " is required")
	}
	b, ok := raw.(bool)
	if !ok {
		return false, schemaViolation(key + " must be a boolean")
	}
	return b, nil
}

func requireMap(m map[string]any, key string) (map[string]any, error) {
	raw, ok := m[key]
	if !ok {
		return nil, schemaViolation(key + " is required")
	}
	block, ok := raw.(map[string]any)
	if !ok {
		return nil, schemaViolation(key + " must be an object")
	}
	return block, nil
}

func requireStringList(raw any) ([]string, error) {
	items, ok := raw.([]any)
	if !ok {
		// Allow a pre-typed string slice, which tests and in-process
		// callers construct directly.
		if typed, ok := raw.([]string); ok {
			items = make([]any, len(typed))
			for i, s := range typed {
				items[i] = s
			}
		} else {
			return nil, schemaViolation("plan must be a list of strings")
		}
	}
	if len(items) == 0 {
		return nil, schemaViolation("plan must not be empty")
	}

	plan := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, schemaViolation("plan entries must be strings")
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, schemaViolation("plan entries must not be empty")
		}
		plan = append(plan, s)
	}
	return plan, nil
}
