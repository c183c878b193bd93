package coaching

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	types "github.com/hooklab-media/hooklab-backend/internal/domain"
)

// Frame is one media sample offered to the session loop. Visual frames carry
// JPEG bytes; audio frames carry a PCM chunk. TSMillis is the client capture
// timestamp.
type Frame struct {
	SessionID string
	Modality  string // "visual" or "audio"
	TSMillis  int64
	Payload   []byte
}

// Measurement is one metric an evaluator extracted from a frame.
type Measurement struct {
	Metric     string
	Value      float64
	Confidence float64
}

// Evaluator turns a frame into measurements. Implementations wrap the cloud
// vision and speech clients; they must respect the context deadline, the
// loop budgets each call at one second and drops the result on timeout.
type Evaluator interface {
	Modality() string
	Evaluate(ctx context.Context, frame Frame) ([]Measurement, error)
}

// Violation is a rule check failure, ready to become an intervention.
type Violation struct {
	Rule      types.PackRule
	Measured  float64
	Conf      float64
	FrameTS   int64
	CoachLine string
}

// minFireConfidence is the floor below which a measurement cannot trigger
// an intervention.
const minFireConfidence = 0.5

// CheckRule applies the rule's operator to a measurement. A measurement for
// a different metric never violates, and neither does one the evaluator was
// not at least half confident in.
func CheckRule(rule types.PackRule, m Measurement) (Violation, bool) {
	if m.Metric != rule.Metric {
		return Violation{}, false
	}
	if m.Confidence < minFireConfidence {
		return Violation{}, false
	}
	ok := true
	switch rule.Operator {
	case "gte":
		ok = m.Value >= rule.Target-rule.Tolerance
	case "lte":
		ok = m.Value <= rule.Target+rule.Tolerance
	case "eq":
		ok = math.Abs(m.Value-rule.Target) <= rule.Tolerance
	case "range":
		ok = m.Value >= rule.Target-rule.Tolerance && m.Value <= rule.TargetHigh+rule.Tolerance
	default:
		// Unknown operators never fire; the pack audit catches them before
		// a pack ships.
		return Violation{}, false
	}
	if ok {
		return Violation{}, false
	}
	return Violation{
		Rule:      rule,
		Measured:  m.Value,
		Conf:      m.Confidence,
		CoachLine: renderCoachLine(rule, m.Value),
	}, true
}

// renderCoachLine fills the rule's template, falling back to a generic line.
func renderCoachLine(rule types.PackRule, measured float64) string {
	if rule.CoachLineTemplate == "" {
		return fmt.Sprintf("adjust %s toward %.1f", rule.Metric, rule.Target)
	}
	line := strings.ReplaceAll(rule.CoachLineTemplate, "{measured}", fmt.Sprintf("%.1f", measured))
	return strings.ReplaceAll(line, "{target}", fmt.Sprintf("%.1f", rule.Target))
}

// evaluateWithBudget runs one evaluator under the per-call deadline.
func evaluateWithBudget(ctx context.Context, ev Evaluator, frame Frame, budget time.Duration) ([]Measurement, error) {
	callCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	return ev.Evaluate(callCtx, frame)
}
