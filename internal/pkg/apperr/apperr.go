package apperr

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrCancelRequested is surfaced when a run or session observes a
// cooperative cancellation request.
var ErrCancelRequested = errors.New("cancel requested")

// SchemaValidationError reports a payload that does not satisfy the declared
// analysis contract for its schema version.
type SchemaValidationError struct {
	SchemaVersion string
	Field         string
	Reason        string
}

func (e *SchemaValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("schema %s: field %q: %s", e.SchemaVersion, e.Field, e.Reason)
	}
	return fmt.Sprintf("schema %s: %s", e.SchemaVersion, e.Reason)
}

// IllegalTransitionError reports a state-machine write that is not in the
// legal transition table. From/To are included so operators can see exactly
// which edge was attempted.
type IllegalTransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("%s %s: illegal transition %s -> %s", e.Entity, e.ID, e.From, e.To)
}

// ConflictError reports a uniqueness or concurrent-writer collision.
type ConflictError struct {
	Resource string
	Detail   string
}

func (e *ConflictError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: conflict", e.Resource)
	}
	return fmt.Sprintf("%s: conflict: %s", e.Resource, e.Detail)
}

// QualityGateError carries every issue the proof gate found, not only the
// first one.
type QualityGateError struct {
	Issues []string
}

func (e *QualityGateError) Error() string {
	return "quality gate failed: " + strings.Join(e.Issues, "; ")
}

// RuleKeyMismatchError reports curation rules that reference feature keys the
// extractor never produces.
type RuleKeyMismatchError struct {
	RuleID string
	Keys   []string
}

func (e *RuleKeyMismatchError) Error() string {
	return fmt.Sprintf("rule %s references unknown feature keys: %s", e.RuleID, strings.Join(e.Keys, ", "))
}

// ExternalTimeoutError wraps a deadline hit while waiting on an external
// dependency (vision model, speech, storage).
type ExternalTimeoutError struct {
	Op      string
	Elapsed time.Duration
	Err     error
}

func (e *ExternalTimeoutError) Error() string {
	return fmt.Sprintf("%s: external timeout after %s", e.Op, e.Elapsed)
}

func (e *ExternalTimeoutError) Unwrap() error { return e.Err }

func IsSchemaValidation(err error) bool {
	var t *SchemaValidationError
	return errors.As(err, &t)
}

func IsIllegalTransition(err error) bool {
	var t *IllegalTransitionError
	return errors.As(err, &t)
}

func IsConflict(err error) bool {
	var t *ConflictError
	return errors.As(err, &t)
}

func IsQualityGate(err error) bool {
	var t *QualityGateError
	return errors.As(err, &t)
}

func IsRuleKeyMismatch(err error) bool {
	var t *RuleKeyMismatchError
	return errors.As(err, &t)
}

func IsExternalTimeout(err error) bool {
	var t *ExternalTimeoutError
	return errors.As(err, &t)
}

// IsUniqueViolation reports whether err is a postgres unique or exclusion
// constraint violation. The partial unique indexes on pipeline_runs surface
// acquire races this way.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" || pgErr.Code == "23P01"
}
