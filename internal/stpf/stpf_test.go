package stpf

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func baseInputs() Inputs {
	return Inputs{
		Trust: 8, Legality: 9, Hygiene: 8,
		Essence: 7, Capability: 6, Novelty: 7, Connection: 6, Proof: 7,
		Cost: 4, Risk: 3, Threat: 2, Pressure: 3, TimeLag: 2, Uncertainty: 4,
		Scarcity: 6, Network: 5, Leverage: 6,
	}
}

func TestKillSwitchNamesFailingGate(t *testing.T) {
	in := baseInputs()
	in.Legality = 3
	res := Score(in)
	if res.Score1000 != 0 || res.GatePassed || res.Decision != DecisionNoGo {
		t.Fatalf("kill switch not applied: %+v", res)
	}
	if !strings.Contains(res.Why, "legality") {
		t.Fatalf("why should name the failing gate: %q", res.Why)
	}
}

func TestDeterminism(t *testing.T) {
	expected, actual := 400.0, 650.0
	in := baseInputs()
	in.Evidence = map[string]bool{"novelty": false, "proof": true}
	in.ExpectedScore = &expected
	in.ActualScore = &actual
	in.ConfidenceLevel = 8

	first, err := json.Marshal(Score(in))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for i := 0; i < 50; i++ {
		next, err := json.Marshal(Score(in))
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if !bytes.Equal(first, next) {
			t.Fatalf("run %d diverged:\n%s\n%s", i, first, next)
		}
	}
}

func TestMaxInputsScoreNearCeiling(t *testing.T) {
	in := Inputs{
		Trust: 10, Legality: 10, Hygiene: 10,
		Essence: 10, Capability: 10, Novelty: 10, Connection: 10, Proof: 10,
		Cost: 1, Risk: 1, Threat: 1, Pressure: 1, TimeLag: 1, Uncertainty: 1,
		Scarcity: 10, Network: 10, Leverage: 10,
	}
	res := Score(in)
	if res.Score1000 < 900 || res.Score1000 > 1000 {
		t.Fatalf("score = %d, want within [900, 1000]", res.Score1000)
	}
	if res.Decision != DecisionGo {
		t.Fatalf("decision = %s, want GO", res.Decision)
	}
	if res.Friction != 1.0 {
		t.Fatalf("friction at all-ones denominators = %v, want exactly 1.0", res.Friction)
	}
}

func TestProofCeilingCapsUnevidenced(t *testing.T) {
	in := baseInputs()
	in.Novelty = 9
	in.Evidence = map[string]bool{"novelty": false}
	capped := Score(in)

	in.Novelty = 3
	in.Evidence = nil
	explicit := Score(in)

	if capped.Value != explicit.Value {
		t.Fatalf("capped value %v should equal value at novelty 3 (%v)", capped.Value, explicit.Value)
	}
	if len(capped.How) == 0 || !strings.Contains(capped.How[0], "novelty") {
		t.Fatalf("how should lead with the capped variable: %v", capped.How)
	}
}

func TestTrustCollapsePatch(t *testing.T) {
	in := baseInputs()
	in.Trust = 5
	patched := Score(in)
	if len(patched.Patches) != 1 || !strings.Contains(patched.Patches[0], "trust collapse") {
		t.Fatalf("patches = %v, want trust collapse", patched.Patches)
	}

	in.Trust = 7
	clean := Score(in)
	if len(clean.Patches) != 0 {
		t.Fatalf("no patch should fire at trust 7: %v", clean.Patches)
	}
	if patched.Raw >= clean.Raw {
		t.Fatalf("trust collapse should shrink raw: %v vs %v", patched.Raw, clean.Raw)
	}
}

func TestWinnerTakesAllPatch(t *testing.T) {
	in := baseInputs()
	in.Network = 9
	in.RetentionRate = 0.8
	res := Score(in)
	found := false
	for _, p := range res.Patches {
		if strings.Contains(p, "winner-takes-all") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected winner-takes-all patch: %v", res.Patches)
	}
}

func TestDecisionThresholds(t *testing.T) {
	// Weak but gate-passing inputs land below CONSIDER.
	in := Inputs{
		Trust: 6, Legality: 6, Hygiene: 6,
		Essence: 1, Capability: 1, Novelty: 1, Connection: 1, Proof: 1,
		Cost: 10, Risk: 10, Threat: 10, Pressure: 10, TimeLag: 10, Uncertainty: 10,
		Scarcity: 1, Network: 1, Leverage: 1,
	}
	res := Score(in)
	if res.Decision != DecisionNoGo {
		t.Fatalf("decision = %s (score %d), want NO-GO", res.Decision, res.Score1000)
	}
	if !res.GatePassed {
		t.Fatal("gates at 6 must pass")
	}
}
