package arcana

import (
	"errors"
	"fmt"
)

// Sentinel errors for daemon lifecycle precondition violations.
var (
	// ErrUnknownDaemon indicates the daemon name is outside the closed set.
	ErrUnknownDaemon = errors.New("daemon unknown to this realm")

	// ErrAlreadySummoned indicates a summon attempt on an active daemon.
	ErrAlreadySummoned = errors.New("daemon already walks among us")

	// ErrNotSummoned indicates an invoke or banish attempt on a dormant daemon.
	ErrNotSummoned = errors.New("daemon slumbers in the void")
)

// ParseError indicates a spell could not be matched against any known pattern.
// Suggestions, when present, are user-facing correction hints.
type ParseError struct {
	Input       string
	Suggestions []string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unable to parse spell: %q", e.Input)
}

// IsParseError reports whether err is (or wraps) a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// ValidationReason classifies why an external directive payload was rejected.
type ValidationReason string

const (
	// ReasonSchemaViolation covers missing or malformed fields.
	ReasonSchemaViolation ValidationReason = "schema_violation"

	// ReasonPolicyViolation covers content-policy rejections such as
	// shell execution requests while allow_shell is false.
	ReasonPolicyViolation ValidationReason = "policy_violation"
)

// ValidationError rejects an untrusted directive payload.
// Every ValidationError has already been written to the audit sink by the
// time a caller sees it.
type ValidationError struct {
	Reason ValidationReason
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("directive rejected (%s): %s", e.Reason, e.Detail)
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// RoutingReason classifies a terminal routing failure.
type RoutingReason string

const (
	// ReasonUnparseable means both the planner and the spell parser failed.
	ReasonUnparseable RoutingReason = "unparseable"

	// ReasonNoTarget means the decision carried no addressable daemon.
	ReasonNoTarget RoutingReason = "no_target"
)

// RoutingError is a terminal, caller-facing routing failure.
// Plan carries whatever steps the decision accumulated so the caller can
// still narrate what was attempted.
type RoutingError struct {
	Reason RoutingReason
	Detail string
	Plan   []string
}

func (e *RoutingError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("routing failed (%s): %s", e.Reason, e.Detail)
	}
	return fmt.Sprintf("routing failed (%s)", e.Reason)
}

// IsRoutingError reports whether err is (or wraps) a RoutingError.
func IsRoutingError(err error) bool {
	var re *RoutingError
	return errors.As(err, &re)
}
