package curation

import (
	"fmt"
	"strings"
)

// The closed operator set.
const (
	OpGTE      = "gte"
	OpLTE      = "lte"
	OpGT       = "gt"
	OpLT       = "lt"
	OpEQ       = "eq"
	OpNE       = "ne"
	OpIn       = "in"
	OpNotIn    = "nin"
	OpRange    = "range"
	OpExists   = "exists"
	OpContains = "contains"
)

var knownOps = map[string]struct{}{
	OpGTE: {}, OpLTE: {}, OpGT: {}, OpLT: {}, OpEQ: {}, OpNE: {},
	OpIn: {}, OpNotIn: {}, OpRange: {}, OpExists: {}, OpContains: {},
}

// Clause is one operator applied to one feature key.
type Clause struct {
	Op    string `json:"op" yaml:"op"`
	Value any    `json:"value,omitempty" yaml:"value,omitempty"`
	Min   any    `json:"min,omitempty" yaml:"min,omitempty"`
	Max   any    `json:"max,omitempty" yaml:"max,omitempty"`
}

// Validate rejects operators outside the closed set and malformed operands.
func (c Clause) Validate() error {
	if _, ok := knownOps[c.Op]; !ok {
		return fmt.Errorf("unknown operator %q", c.Op)
	}
	switch c.Op {
	case OpIn, OpNotIn:
		if _, ok := asSlice(c.Value); !ok {
			return fmt.Errorf("operator %q needs a list value", c.Op)
		}
	case OpRange:
		if c.Min == nil || c.Max == nil {
			return fmt.Errorf("operator %q needs min and max", c.Op)
		}
	case OpExists:
		if _, ok := c.Value.(bool); !ok {
			return fmt.Errorf("operator %q needs a boolean value", c.Op)
		}
	default:
		if c.Value == nil {
			return fmt.Errorf("operator %q needs a value", c.Op)
		}
	}
	return nil
}

// Match evaluates the clause against a feature value. present is false when
// the key is absent from the feature map, which only the exists operator can
// match.
func (c Clause) Match(feature any, present bool) bool {
	if c.Op == OpExists {
		want, _ := c.Value.(bool)
		return present == want
	}
	if !present {
		return false
	}
	switch c.Op {
	case OpGTE:
		f, v, ok := numericPair(feature, c.Value)
		return ok && f >= v
	case OpLTE:
		f, v, ok := numericPair(feature, c.Value)
		return ok && f <= v
	case OpGT:
		f, v, ok := numericPair(feature, c.Value)
		return ok && f > v
	case OpLT:
		f, v, ok := numericPair(feature, c.Value)
		return ok && f < v
	case OpEQ:
		return looseEqual(feature, c.Value)
	case OpNE:
		return !looseEqual(feature, c.Value)
	case OpIn:
		return membership(feature, c.Value)
	case OpNotIn:
		return !membership(feature, c.Value)
	case OpRange:
		f, lo, ok1 := numericPair(feature, c.Min)
		_, hi, ok2 := numericPair(feature, c.Max)
		return ok1 && ok2 && f >= lo && f <= hi
	case OpContains:
		return contains(feature, c.Value)
	}
	return false
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func numericPair(feature, operand any) (float64, float64, bool) {
	f, ok1 := asNumber(feature)
	v, ok2 := asNumber(operand)
	return f, v, ok1 && ok2
}

func looseEqual(feature, operand any) bool {
	if f, v, ok := numericPair(feature, operand); ok {
		return f == v
	}
	return fmt.Sprint(feature) == fmt.Sprint(operand)
}

func asSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []string:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	}
	return nil, false
}

func membership(feature, operand any) bool {
	list, ok := asSlice(operand)
	if !ok {
		return false
	}
	for _, e := range list {
		if looseEqual(feature, e) {
			return true
		}
	}
	return false
}

// contains matches a substring on string features and element membership on
// list features.
func contains(feature, operand any) bool {
	if s, ok := feature.(string); ok {
		return strings.Contains(s, fmt.Sprint(operand))
	}
	if list, ok := asSlice(feature); ok {
		for _, e := range list {
			if looseEqual(e, operand) {
				return true
			}
		}
	}
	return false
}
