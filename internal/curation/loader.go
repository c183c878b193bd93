package curation

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hooklab-media/hooklab-backend/internal/platform/envutil"
)

// DefaultRulesPath is where the seed rule file lives unless
// CURATION_RULES_PATH overrides it.
const DefaultRulesPath = "config/curation_rules.yaml"

// RulesPath resolves the rule file location from the environment.
func RulesPath() string {
	return envutil.String("CURATION_RULES_PATH", DefaultRulesPath)
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadFile reads and validates a YAML rule file. Any invalid clause or
// undeclared key fails the whole load; a partially applied rule set is worse
// than the previous one.
func LoadFile(path string) ([]Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read curation rules: %w", err)
	}
	return Parse(raw)
}

// Parse decodes YAML rule definitions and validates each rule.
func Parse(raw []byte) ([]Rule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode curation rules: %w", err)
	}
	seen := make(map[string]struct{}, len(f.Rules))
	for _, r := range f.Rules {
		if r.RuleID == "" {
			return nil, fmt.Errorf("curation rule with empty rule_id")
		}
		if _, dup := seen[r.RuleID]; dup {
			return nil, fmt.Errorf("duplicate rule_id %s", r.RuleID)
		}
		seen[r.RuleID] = struct{}{}
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}
	return f.Rules, nil
}
