package curation

import (
	"testing"

	"github.com/hooklab-media/hooklab-backend/internal/pkg/apperr"

	types "github.com/hooklab-media/hooklab-backend/internal/domain"
)

func sampleFeatures() Features {
	item := &types.OutlierItem{
		Platform:        "tiktok",
		Category:        "fitness",
		ViewCount:       2_400_000,
		CreatorAvgViews: 40_000,
		EngagementRate:  0.12,
		OutlierScore:    60,
		OutlierTier:     "B",
	}
	return Extract(item)
}

func TestExtractViewMultiple(t *testing.T) {
	f := sampleFeatures()
	if got := f["view_multiple"].(float64); got != 60 {
		t.Fatalf("view_multiple = %v, want 60", got)
	}
}

func TestEvaluateFirstMatchByPriority(t *testing.T) {
	rules := []Rule{
		{RuleID: "reject-low", Priority: 50, Enabled: true, Action: "reject",
			Conditions: map[string]Clause{"outlier_score": {Op: OpLT, Value: 100.0}}},
		{RuleID: "promote-tiktok", Priority: 10, Enabled: true, Action: "promote",
			Conditions: map[string]Clause{"platform": {Op: OpEQ, Value: "tiktok"}}},
	}
	dec, ok := Evaluate(rules, sampleFeatures())
	if !ok || dec.RuleID != "promote-tiktok" {
		t.Fatalf("decision = %+v ok=%v, want promote-tiktok first", dec, ok)
	}
}

func TestEvaluateSkipsDisabled(t *testing.T) {
	rules := []Rule{
		{RuleID: "off", Priority: 1, Enabled: false, Action: "reject",
			Conditions: map[string]Clause{"platform": {Op: OpEQ, Value: "tiktok"}}},
	}
	if _, ok := Evaluate(rules, sampleFeatures()); ok {
		t.Fatal("disabled rule must not match")
	}
}

func TestEvaluatePriorityTieBreaksOnRuleID(t *testing.T) {
	cond := map[string]Clause{"platform": {Op: OpEQ, Value: "tiktok"}}
	rules := []Rule{
		{RuleID: "b-rule", Priority: 10, Enabled: true, Action: "reject", Conditions: cond},
		{RuleID: "a-rule", Priority: 10, Enabled: true, Action: "promote", Conditions: cond},
	}
	dec, _ := Evaluate(rules, sampleFeatures())
	if dec.RuleID != "a-rule" {
		t.Fatalf("tie-break chose %s, want a-rule", dec.RuleID)
	}
}

func TestOperators(t *testing.T) {
	f := sampleFeatures()
	cases := []struct {
		name   string
		key    string
		clause Clause
		want   bool
	}{
		{"gte hit", "engagement_rate", Clause{Op: OpGTE, Value: 0.1}, true},
		{"gte miss", "engagement_rate", Clause{Op: OpGTE, Value: 0.2}, false},
		{"range hit", "outlier_score", Clause{Op: OpRange, Min: 50.0, Max: 80.0}, true},
		{"range miss", "outlier_score", Clause{Op: OpRange, Min: 80.0, Max: 200.0}, false},
		{"in hit", "outlier_tier", Clause{Op: OpIn, Value: []any{"S", "A", "B"}}, true},
		{"nin hit", "platform", Clause{Op: OpNotIn, Value: []any{"youtube"}}, true},
		{"ne hit", "category", Clause{Op: OpNE, Value: "cooking"}, true},
		{"contains hit", "category", Clause{Op: OpContains, Value: "fit"}, true},
		{"exists hit", "platform", Clause{Op: OpExists, Value: true}, true},
		{"exists on absent key", "nonexistent", Clause{Op: OpExists, Value: false}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, present := f[tc.key]
			if got := tc.clause.Match(v, present); got != tc.want {
				t.Fatalf("match = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAuditRejectsUndeclaredKeys(t *testing.T) {
	r := Rule{
		RuleID:  "bad",
		Enabled: true,
		Action:  "reject",
		Conditions: map[string]Clause{
			"follower_velocity": {Op: OpGTE, Value: 1.0},
			"outlier_score":     {Op: OpGTE, Value: 10.0},
		},
	}
	err := r.AuditKeys()
	if !apperr.IsRuleKeyMismatch(err) {
		t.Fatalf("want RuleKeyMismatchError, got %v", err)
	}
}

func TestClauseValidateClosedSet(t *testing.T) {
	if err := (Clause{Op: "regex", Value: ".*"}).Validate(); err == nil {
		t.Fatal("unknown operator must fail validation")
	}
	if err := (Clause{Op: OpIn, Value: "not-a-list"}).Validate(); err == nil {
		t.Fatal("in with a scalar must fail validation")
	}
	if err := (Clause{Op: OpRange, Min: 1.0}).Validate(); err == nil {
		t.Fatal("range without max must fail validation")
	}
}

func TestParseYAMLRules(t *testing.T) {
	raw := []byte(`
rules:
  - rule_id: promote-s-tier
    priority: 5
    enabled: true
    action: promote
    conditions:
      outlier_tier:
        op: in
        value: [S, A]
  - rule_id: reject-tiny
    priority: 90
    enabled: true
    action: reject
    conditions:
      view_count:
        op: lt
        value: 100000
`)
	rules, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("parsed %d rules, want 2", len(rules))
	}

	bad := []byte(`
rules:
  - rule_id: bad
    enabled: true
    action: reject
    conditions:
      made_up_key:
        op: gte
        value: 1
`)
	if _, err := Parse(bad); !apperr.IsRuleKeyMismatch(err) {
		t.Fatalf("want RuleKeyMismatchError from undeclared key, got %v", err)
	}
}
