package bayes

import (
	"math"
	"testing"
)

func TestPosteriorSymmetry(t *testing.T) {
	ev := Evidence{Outcome: OutcomeSuccess, ProofScore: 8}
	prior := 0.5
	up := Posterior(prior, ev)
	ev.Outcome = OutcomeFailure
	back := Posterior(up, ev)
	if math.Abs(back-prior) > 1e-9 {
		t.Fatalf("success then matching failure drifted: %v, want %v", back, prior)
	}
}

func TestPosteriorStrongSuccess(t *testing.T) {
	got := Posterior(0.5, Evidence{Outcome: OutcomeSuccess, ProofScore: 8})
	if got <= 0.7 {
		t.Fatalf("posterior = %v, want > 0.7 after high-proof success", got)
	}
}

func TestPosteriorClamped(t *testing.T) {
	p := 0.5
	for i := 0; i < 100; i++ {
		p = Posterior(p, Evidence{Outcome: OutcomeSuccess, ProofScore: 9})
	}
	if p > 0.99 {
		t.Fatalf("posterior escaped the ceiling: %v", p)
	}
	for i := 0; i < 200; i++ {
		p = Posterior(p, Evidence{Outcome: OutcomeFailure, ProofScore: 9})
	}
	if p < 0.01 {
		t.Fatalf("posterior escaped the floor: %v", p)
	}
}

func TestLikelihoodUnknownOutcome(t *testing.T) {
	if got := Likelihood(Evidence{Outcome: OutcomeUnknown, ProofScore: 5}); got != 0.5 {
		t.Fatalf("unknown at proof 5 = %v, want neutral 0.5", got)
	}
	if got := Likelihood(Evidence{Outcome: OutcomeUnknown, ProofScore: 10}); got != 0.6 {
		t.Fatalf("unknown at proof 10 = %v, want 0.6", got)
	}
}

func TestStoreConvergence(t *testing.T) {
	store := NewPriorStore()
	store.Init("pat_a", 0.5)
	var b Belief
	for i := 0; i < 20; i++ {
		b = store.Update("pat_a", Evidence{Outcome: OutcomeSuccess, ProofScore: 8, EngagementDelta: 0.2})
	}
	if b.Probability <= 0.85 {
		t.Fatalf("probability = %v, want > 0.85 after 20 successes", b.Probability)
	}
	if b.SampleSize != 20 {
		t.Fatalf("sample size = %d, want 20", b.SampleSize)
	}
	ci := b.CI()
	if ci.High-ci.Low >= 0.3 {
		t.Fatalf("interval width = %v, want < 0.3 at 20 samples", ci.High-ci.Low)
	}
}

func TestStoreUnknownSkipsSampleCount(t *testing.T) {
	store := NewPriorStore()
	b := store.Update("pat_b", Evidence{Outcome: OutcomeUnknown, ProofScore: 7})
	if b.SampleSize != 0 {
		t.Fatalf("unknown outcome counted toward samples: %d", b.SampleSize)
	}
}

func TestStoreLoadSnapshotRoundTrip(t *testing.T) {
	store := NewPriorStore()
	store.Init("a", 0.3)
	store.Init("b", 0.8)
	snap := store.Snapshot()

	fresh := NewPriorStore()
	fresh.Load(snap)
	got, ok := fresh.Get("a")
	if !ok || got.Probability != 0.3 {
		t.Fatalf("loaded belief a = %+v, ok=%v", got, ok)
	}
}

func TestWilsonLabels(t *testing.T) {
	if iv := WilsonInterval(0.7, 2); iv.Confidence != ConfidenceLow {
		t.Fatalf("two samples should be LOW, got %s (width %v)", iv.Confidence, iv.High-iv.Low)
	}
	if iv := WilsonInterval(0.7, 50); iv.Confidence != ConfidenceMedium {
		t.Fatalf("fifty samples should be MEDIUM, got %s (width %v)", iv.Confidence, iv.High-iv.Low)
	}
	if iv := WilsonInterval(0.7, 2000); iv.Confidence != ConfidenceHigh {
		t.Fatalf("two thousand samples should be HIGH, got %s (width %v)", iv.Confidence, iv.High-iv.Low)
	}
}

func TestMonitorUnknownUnderFive(t *testing.T) {
	m := NewMonitor()
	for i := 0; i < 4; i++ {
		m.Record(Observation{PredictedScore: 600, ActualSuccess: true})
	}
	if r := m.Report(); r.Health != HealthUnknown {
		t.Fatalf("health = %s with %d samples, want unknown", r.Health, r.Samples)
	}
}

func TestMonitorHealthyWhenCalibrated(t *testing.T) {
	m := NewMonitor()
	for i := 0; i < 20; i++ {
		// Constant scores carry zero variance, so free energy is pure surprise.
		m.Record(Observation{PredictedScore: 800, ActualSuccess: i%5 != 0})
	}
	r := m.Report()
	if r.Health != HealthHealthy {
		t.Fatalf("health = %s (free energy %v), want healthy", r.Health, r.FreeEnergy)
	}
	if r.Entropy != 0 {
		t.Fatalf("entropy = %v, want 0 for constant scores", r.Entropy)
	}
	if r.Surprise != 0.2 || r.FreeEnergy != 0.2 {
		t.Fatalf("surprise = %v free energy = %v, want 0.2 and 0.2", r.Surprise, r.FreeEnergy)
	}
}

func TestMonitorDegradedAtHalfSurprise(t *testing.T) {
	m := NewMonitor()
	for i := 0; i < 10; i++ {
		// Constant confident scores, wrong half the time: free energy equals
		// the 0.5 surprise exactly.
		m.Record(Observation{PredictedScore: 700, ActualSuccess: i%2 == 0})
	}
	r := m.Report()
	if r.Surprise != 0.5 {
		t.Fatalf("surprise = %v, want 0.5", r.Surprise)
	}
	if r.FreeEnergy != 0.5 {
		t.Fatalf("free energy = %v, want 0.5 (entropy + surprise)", r.FreeEnergy)
	}
	if r.Health != HealthDegraded {
		t.Fatalf("health = %s, want degraded", r.Health)
	}
}

func TestMonitorCriticalWhenInverted(t *testing.T) {
	m := NewMonitor()
	for i := 0; i < 20; i++ {
		// Wildly noisy scores that always call GO on failures.
		score := 600.0
		if i%2 == 0 {
			score = 1000.0
		}
		m.Record(Observation{PredictedScore: score, ActualSuccess: false})
	}
	r := m.Report()
	if r.Health != HealthCritical {
		t.Fatalf("health = %s (free energy %v), want critical", r.Health, r.FreeEnergy)
	}
	if r.Surprise != 1.0 {
		t.Fatalf("surprise = %v, want 1.0", r.Surprise)
	}
}

func TestMonitorEntropySaturatesOnMaxSpread(t *testing.T) {
	m := NewMonitor()
	for i := 0; i < 20; i++ {
		score := 0.0
		if i%2 == 0 {
			score = 1000.0
		}
		m.Record(Observation{PredictedScore: score, ActualSuccess: i%2 == 0})
	}
	// Alternating 0/1000 has variance 500^2, the normalization ceiling.
	if r := m.Report(); r.Entropy != 1.0 {
		t.Fatalf("entropy = %v, want 1.0", r.Entropy)
	}
}

func TestMonitorRingEviction(t *testing.T) {
	m := NewMonitor()
	for i := 0; i < monitorCap+50; i++ {
		m.Record(Observation{PredictedScore: 500, ActualSuccess: true})
	}
	if r := m.Report(); r.Samples != monitorCap {
		t.Fatalf("samples = %d, want capped at %d", r.Samples, monitorCap)
	}
}
