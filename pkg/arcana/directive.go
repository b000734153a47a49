package arcana

// DirectiveSource records which path produced a routing decision.
type DirectiveSource string

const (
	// SourcePlanner marks directives built from validated external-planner output.
	SourcePlanner DirectiveSource = "external-planner"

	// SourceParser marks directives built by the deterministic spell parser.
	SourceParser DirectiveSource = "pattern-matcher"
)

// Directive is the structured routing decision produced for one spell.
// It is created once per request; only Daemon, Plan and FallbackUsed may be
// rewritten afterwards, and only once, by the latency policy.
type Directive struct {
	Intent       Intent          `json:"intent"`
	Daemon       DaemonID        `json:"daemon"`
	Task         string          `json:"task,omitempty"`
	Parameters   map[string]any  `json:"parameters,omitempty"`
	Plan         []string        `json:"plan"`
	Narration    string          `json:"narration,omitempty"`
	Reasoning    string          `json:"reasoning,omitempty"`
	Confidence   *float64        `json:"confidence,omitempty"`
	FallbackUsed bool            `json:"fallback_used"`
	Source       DirectiveSource `json:"source"`
	RawInput     string          `json:"raw_input,omitempty"`
}

// WithConfidence returns c as a pointer suitable for Directive.Confidence.
func WithConfidence(c float64) *float64 {
	return &c
}
