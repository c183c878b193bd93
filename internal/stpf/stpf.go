// Package stpf computes the gate/value/friction/multiplier decision score.
// The scorer is pure: identical inputs always produce identical outputs,
// which is what lets decisions be replayed and audited.
package stpf

import (
	"fmt"
	"math"
	"sort"
)

// Decision labels.
const (
	DecisionGo       = "GO"
	DecisionConsider = "CONSIDER"
	DecisionNoGo     = "NO-GO"
)

// Decision thresholds on the 0-1000 scale.
const (
	goThreshold       = 700
	considerThreshold = 400
)

// Core constants of the formula.
const (
	frictionExponent = 0.8 // ω
	networkBeta      = 0.5 // β
	entropyGamma     = 0.6 // γ
	gateFloor        = 4.0
	proofCeiling     = 3.0
)

// Friction term weights; they sum to 1.0. Each term enters as
// 1 + ((x-1)/9)·w, so friction is always >= 1 and can never divide by zero.
var frictionWeights = []struct {
	name   string
	weight float64
}{
	{"cost", 0.25},
	{"risk", 0.20},
	{"threat", 0.15},
	{"pressure", 0.15},
	{"time_lag", 0.15},
	{"uncertainty", 0.10},
}

// Inputs are all on a 1-10 scale; out-of-range values are clamped. The
// Evidence map records which numerator variables the caller can back with
// proof; variables it marks false are capped at 3 before scoring. A nil map
// asserts evidence for everything.
type Inputs struct {
	// Gates.
	Trust    float64 `json:"trust"`
	Legality float64 `json:"legality"`
	Hygiene  float64 `json:"hygiene"`

	// Numerator (value).
	Essence    float64 `json:"essence"`
	Capability float64 `json:"capability"`
	Novelty    float64 `json:"novelty"`
	Connection float64 `json:"connection"`
	Proof      float64 `json:"proof"`

	// Denominator (friction).
	Cost        float64 `json:"cost"`
	Risk        float64 `json:"risk"`
	Threat      float64 `json:"threat"`
	Pressure    float64 `json:"pressure"`
	TimeLag     float64 `json:"time_lag"`
	Uncertainty float64 `json:"uncertainty"`

	// Multipliers.
	Scarcity float64 `json:"scarcity"`
	Network  float64 `json:"network"`
	Leverage float64 `json:"leverage"`
	// Optional multipliers; zero means absent.
	Timing           float64 `json:"timing,omitempty"`
	PlatformFit      float64 `json:"platform_fit,omitempty"`
	CreatorAuthority float64 `json:"creator_authority,omitempty"`

	Evidence map[string]bool `json:"evidence,omitempty"`

	// Gap entropy bonus inputs; both must be set for the bonus to apply.
	ExpectedScore *float64 `json:"expected_score,omitempty"`
	ActualScore   *float64 `json:"actual_score,omitempty"`

	// Reality-distortion patch inputs.
	InvestedCapital float64 `json:"invested_capital,omitempty"`
	ConfidenceLevel float64 `json:"confidence_level,omitempty"`
	RetentionRate   float64 `json:"retention_rate,omitempty"`
}

// Result carries the score and everything needed to explain it.
type Result struct {
	Score1000  int      `json:"score_1000"`
	GatePassed bool     `json:"gate_passed"`
	Raw        float64  `json:"raw"`
	Value      float64  `json:"value"`
	Friction   float64  `json:"friction"`
	Multiplier float64  `json:"multiplier"`
	Entropy    float64  `json:"entropy"`
	Decision   string   `json:"decision"`
	Confidence float64  `json:"confidence"`
	Why        string   `json:"why"`
	How        []string `json:"how"`
	Patches    []string `json:"patches,omitempty"`
}

func clamp110(v float64) float64 {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}

// Score runs the full pipeline: kill switch, proof ceiling, base formula,
// reality-distortion patches, decision thresholds.
func Score(in Inputs) Result {
	gates := []struct {
		name  string
		value float64
	}{
		{"trust", clamp110(in.Trust)},
		{"legality", clamp110(in.Legality)},
		{"hygiene", clamp110(in.Hygiene)},
	}

	// Rule 1: kill switch. Any gate below 4 zeroes everything; no math runs.
	minGate := gates[0]
	for _, g := range gates[1:] {
		if g.value < minGate.value {
			minGate = g
		}
	}
	if minGate.value < gateFloor {
		return Result{
			Score1000:  0,
			GatePassed: false,
			Decision:   DecisionNoGo,
			Confidence: 0.95,
			Why:        fmt.Sprintf("the %s gate is at %.0f, below the hard floor of %.0f", minGate.name, minGate.value, gateFloor),
			How:        []string{fmt.Sprintf("raise %s above %.0f before anything else matters", minGate.name, gateFloor)},
		}
	}

	// Rule 2: proof ceiling on unevidenced numerators.
	numerators := map[string]float64{
		"essence":    clamp110(in.Essence),
		"capability": clamp110(in.Capability),
		"novelty":    clamp110(in.Novelty),
		"connection": clamp110(in.Connection),
		"proof":      clamp110(in.Proof),
	}
	var capped []string
	if in.Evidence != nil {
		for name, backed := range in.Evidence {
			if v, ok := numerators[name]; ok && !backed && v > proofCeiling {
				numerators[name] = proofCeiling
				capped = append(capped, name)
			}
		}
		sort.Strings(capped)
	}

	// Rule 3: value with the essence exponential.
	value := math.Pow(numerators["essence"], 2) *
		math.Pow(numerators["capability"], 1.2) *
		math.Pow(numerators["novelty"], 1.1) *
		math.Pow(numerators["connection"], 1.0) *
		math.Pow(numerators["proof"], 1.3)

	// Rule 4: friction in safe form.
	frictionInputs := []float64{
		clamp110(in.Cost), clamp110(in.Risk), clamp110(in.Threat),
		clamp110(in.Pressure), clamp110(in.TimeLag), clamp110(in.Uncertainty),
	}
	friction := 1.0
	for i, fw := range frictionWeights {
		friction *= 1 + ((frictionInputs[i]-1)/9)*fw.weight
	}

	// Rule 5: network exponential inside the multiplier.
	networkBoost := 1 + (math.Pow(2, (clamp110(in.Network)-1)/9)-1)*networkBeta
	multiplier := (1 + (clamp110(in.Scarcity)-1)/9*0.3) *
		networkBoost *
		(1 + (clamp110(in.Leverage)-1)/9*0.4)
	for _, opt := range []float64{in.Timing, in.PlatformFit, in.CreatorAuthority} {
		if opt > 0 {
			multiplier *= 1 + (clamp110(opt)-1)/9*0.2
		}
	}

	// Rule 6: gap entropy bonus.
	entropy := 1.0
	if in.ExpectedScore != nil && in.ActualScore != nil {
		entropy = 1 + entropyGamma*math.Log(1+math.Max(0, *in.ActualScore-*in.ExpectedScore))
	}

	gateProduct := 1.0
	for _, g := range gates {
		gateProduct *= g.value / 10
	}

	raw := gateProduct * (value / math.Pow(friction, frictionExponent)) * multiplier * entropy

	// Reality-distortion patches, in fixed order.
	var patches []string
	if numerators["essence"] <= 3 && in.InvestedCapital > 1_000_000 {
		boost := 1 + 0.1*math.Log10(1+in.InvestedCapital)
		raw *= boost
		patches = append(patches, fmt.Sprintf("capital override: low essence offset by %.0f invested, x%.3f", in.InvestedCapital, boost))
	}
	if numerators["proof"] < 5 && in.ConfidenceLevel > 7 {
		penalty := 1 - 0.03*in.ConfidenceLevel
		raw *= penalty
		patches = append(patches, fmt.Sprintf("overconfidence penalty: proof %.0f with confidence %.0f, x%.3f", numerators["proof"], in.ConfidenceLevel, penalty))
	}
	if clamp110(in.Trust) < 6 {
		raw *= 0.2
		patches = append(patches, "trust collapse: trust below 6, x0.200")
	}
	if clamp110(in.Network) > 8 && in.RetentionRate > 0.7 {
		raw *= 1.3
		patches = append(patches, "winner-takes-all: strong network with retention above 0.7, x1.300")
	}

	score := int(math.Round(1000 * raw / (raw + 500)))

	decision := DecisionNoGo
	switch {
	case score >= goThreshold:
		decision = DecisionGo
	case score >= considerThreshold:
		decision = DecisionConsider
	}

	confidence := math.Min(0.99, (numerators["proof"]+minGate.value)/20)

	return Result{
		Score1000:  score,
		GatePassed: true,
		Raw:        raw,
		Value:      value,
		Friction:   friction,
		Multiplier: multiplier,
		Entropy:    entropy,
		Decision:   decision,
		Confidence: confidence,
		Why:        why(decision, score, minGate.name),
		How:        how(numerators, frictionInputs, capped),
		Patches:    patches,
	}
}

func why(decision string, score int, minGate string) string {
	switch decision {
	case DecisionGo:
		return fmt.Sprintf("value clears friction with all gates open, scoring %d of 1000", score)
	case DecisionConsider:
		return fmt.Sprintf("the setup is viable but not compelling at %d of 1000; the weakest inputs decide it", score)
	default:
		return fmt.Sprintf("friction and weak value hold the score to %d of 1000 despite the %s gate passing", score, minGate)
	}
}

// how returns up to three concrete improvement suggestions: evidence the
// capped variables first, then the weakest value input, then the heaviest
// friction input.
func how(numerators map[string]float64, frictionInputs []float64, capped []string) []string {
	var out []string
	if len(capped) > 0 {
		out = append(out, fmt.Sprintf("gather evidence for %s to lift the proof ceiling", capped[0]))
	}

	lowName, lowVal := "", math.Inf(1)
	for _, name := range []string{"essence", "capability", "novelty", "connection", "proof"} {
		if v := numerators[name]; v < lowVal {
			lowName, lowVal = name, v
		}
	}
	if lowVal < 10 {
		out = append(out, fmt.Sprintf("raise %s (currently %.0f), the weakest value input", lowName, lowVal))
	}

	highIdx, highVal := -1, 1.0
	for i, v := range frictionInputs {
		if v > highVal {
			highIdx, highVal = i, v
		}
	}
	if highIdx >= 0 {
		out = append(out, fmt.Sprintf("reduce %s (currently %.0f), the heaviest friction input", frictionWeights[highIdx].name, highVal))
	}

	if len(out) > 3 {
		out = out[:3]
	}
	return out
}
