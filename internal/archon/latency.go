package archon

import (
	"fmt"

	"github.com/arcanelabs/arcaneos/pkg/arcana"
)

// Default latency budgets in seconds. Code generation (invoke on claude) is
// allowed a longer budget than every other decision class.
const (
	SimpleLatencyBudget  = 0.6
	CodegenLatencyBudget = 2.5
)

// LatencyPolicy rewrites a decision after the fact when the measured
// planner response time exceeded the applicable budget: the decision is
// re-targeted at the low-latency fallback daemon, trading answer quality
// for responsiveness.
type LatencyPolicy struct {
	SimpleBudget  float64
	CodegenBudget float64
	Fallback      arcana.DaemonID
}

// DefaultLatencyPolicy returns the standard budgets with LiquidMetal as
// the fallback daemon.
func DefaultLatencyPolicy() LatencyPolicy {
	return LatencyPolicy{
		SimpleBudget:  SimpleLatencyBudget,
		CodegenBudget: CodegenLatencyBudget,
		Fallback:      arcana.DaemonLiquidMetal,
	}
}

// Apply checks elapsed (seconds) against the budget for the decision's
// class and, when exceeded, rewrites Daemon, Plan and FallbackUsed in
// place. Apply is a one-shot override: it must be called exactly once per
// decision, and the substituted fallback daemon gets no further budget
// check. Returns true when the decision was rewritten.
func (p LatencyPolicy) Apply(d *arcana.Directive, elapsed float64) bool {
	codegen := d.Intent == arcana.IntentInvoke && d.Daemon == arcana.DaemonClaude

	switch {
	case !codegen && elapsed > p.SimpleBudget:
		p.reroute(d, fmt.Sprintf("Latency exceeded simple budget; rerouting to %s.", p.Fallback))
		return true
	case codegen && elapsed > p.CodegenBudget:
		p.reroute(d, fmt.Sprintf("Codegen latency too high; delegating to %s summary.", p.Fallback))
		return true
	default:
		return false
	}
}

func (p LatencyPolicy) reroute(d *arcana.Directive, step string) {
	d.FallbackUsed = true
	d.Plan = append([]string{step}, d.Plan...)
	d.Daemon = p.Fallback
}
