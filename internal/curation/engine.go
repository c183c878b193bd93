package curation

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/apperr"
)

// Rule is a parsed curation rule ready for evaluation.
type Rule struct {
	RuleID     string            `json:"rule_id" yaml:"rule_id"`
	Conditions map[string]Clause `json:"conditions" yaml:"conditions"`
	Action     string            `json:"action" yaml:"action"`
	Priority   int               `json:"priority" yaml:"priority"`
	Enabled    bool              `json:"enabled" yaml:"enabled"`
	Notes      string            `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Decision is the evaluation verdict for one candidate.
type Decision struct {
	RuleID string `json:"rule_id"`
	Action string `json:"action"`
}

// ParseRule decodes a persisted rule's conditions and validates every clause.
func ParseRule(rec *domain.CurationRule) (Rule, error) {
	var conds map[string]Clause
	if err := json.Unmarshal(rec.Conditions, &conds); err != nil {
		return Rule{}, fmt.Errorf("rule %s: decode conditions: %w", rec.RuleID, err)
	}
	r := Rule{
		RuleID:     rec.RuleID,
		Conditions: conds,
		Action:     rec.Action,
		Priority:   rec.Priority,
		Enabled:    rec.Enabled,
		Notes:      rec.Notes,
	}
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// Validate checks every clause and audits the referenced keys against the
// declared keyspace.
func (r Rule) Validate() error {
	for key, clause := range r.Conditions {
		if err := clause.Validate(); err != nil {
			return fmt.Errorf("rule %s: key %s: %w", r.RuleID, key, err)
		}
	}
	return r.AuditKeys()
}

// AuditKeys returns a RuleKeyMismatchError naming every undeclared key the
// rule references.
func (r Rule) AuditKeys() error {
	var unknown []string
	for key := range r.Conditions {
		if !KeyDeclared(key) {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return &apperr.RuleKeyMismatchError{RuleID: r.RuleID, Keys: unknown}
}

// matches requires every clause to hold (conditions are conjunctive).
func (r Rule) matches(f Features) bool {
	for key, clause := range r.Conditions {
		v, present := f[key]
		if !clause.Match(v, present) {
			return false
		}
	}
	return true
}

// Evaluate runs the candidate through the rules in priority order and returns
// the first match. Disabled rules are skipped. Ties on priority break on
// rule_id so evaluation order is stable across processes.
func Evaluate(rules []Rule, f Features) (Decision, bool) {
	ordered := make([]Rule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority < ordered[j].Priority
		}
		return ordered[i].RuleID < ordered[j].RuleID
	})
	for _, r := range ordered {
		if !r.Enabled {
			continue
		}
		if r.matches(f) {
			return Decision{RuleID: r.RuleID, Action: r.Action}, true
		}
	}
	return Decision{}, false
}
