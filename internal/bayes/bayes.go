// Package bayes maintains per-pattern success beliefs and updates them in
// odds form as measured evidence arrives. All math is pure and deterministic;
// persistence belongs to the repos layer.
package bayes

import (
	"math"
	"sync"
	"time"
)

// Outcome labels carried on measured evidence.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeUnknown = "unknown"
)

// Posterior clamp bounds. A belief never reaches certainty, so later
// contradicting evidence can always move it back.
const (
	posteriorFloor = 0.01
	posteriorCeil  = 0.99
)

// Evidence is one measured observation for a pattern.
type Evidence struct {
	Outcome         string  `json:"outcome"`
	ProofScore      float64 `json:"proof_score"`
	EvidenceCost    float64 `json:"evidence_cost"`
	EngagementDelta float64 `json:"engagement_delta"`
}

// Likelihood maps evidence quality to P(evidence | pattern works). The base
// rate rises with proof strength and evidence cost, and a failure outcome
// mirrors the success likelihood around 0.5 so a success/failure pair with
// the same evidence cancels exactly.
func Likelihood(ev Evidence) float64 {
	if ev.Outcome == OutcomeUnknown {
		return clamp(0.5+(ev.ProofScore-5)*0.02, 0.1, 0.9)
	}

	l := 0.7
	switch {
	case ev.ProofScore > 7:
		l += 0.2
	case ev.ProofScore > 5:
		l += 0.1
	case ev.ProofScore < 3:
		l -= 0.4
	case ev.ProofScore < 4:
		l -= 0.3
	}
	l += math.Min(0.15, ev.EvidenceCost/100)
	if ev.EngagementDelta > 0.1 {
		l += 0.1
	}
	l = clamp(l, 0.1, 0.95)

	if ev.Outcome == OutcomeFailure {
		return 1 - l
	}
	return l
}

// Posterior folds one piece of evidence into a prior probability using the
// odds form of Bayes' rule.
func Posterior(prior float64, ev Evidence) float64 {
	prior = clamp(prior, posteriorFloor, posteriorCeil)
	l := Likelihood(ev)
	odds := (prior / (1 - prior)) * (l / (1 - l))
	return clamp(odds/(1+odds), posteriorFloor, posteriorCeil)
}

// Belief is the current state of one pattern's success probability.
type Belief struct {
	PatternID   string    `json:"pattern_id"`
	Probability float64   `json:"probability"`
	SampleSize  int       `json:"sample_size"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CI returns the Wilson 95% interval and its confidence label.
func (b Belief) CI() Interval {
	return WilsonInterval(b.Probability, b.SampleSize+1)
}

// PriorStore is the in-memory belief table. It is safe for concurrent use;
// the evidence loop updates it and the decision maker reads snapshots.
type PriorStore struct {
	mu      sync.RWMutex
	beliefs map[string]Belief
	now     func() time.Time
}

func NewPriorStore() *PriorStore {
	return &PriorStore{beliefs: make(map[string]Belief), now: time.Now}
}

// Init sets a belief only if the pattern has none yet.
func (s *PriorStore) Init(patternID string, prior float64) Belief {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.beliefs[patternID]; ok {
		return b
	}
	b := Belief{
		PatternID:   patternID,
		Probability: clamp(prior, posteriorFloor, posteriorCeil),
		UpdatedAt:   s.now().UTC(),
	}
	s.beliefs[patternID] = b
	return b
}

// Update folds evidence into the pattern's belief, initializing at 0.5 when
// the pattern is unseen. Unknown outcomes still nudge the belief but do not
// count toward the sample size.
func (s *PriorStore) Update(patternID string, ev Evidence) Belief {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.beliefs[patternID]
	if !ok {
		b = Belief{PatternID: patternID, Probability: 0.5}
	}
	b.Probability = Posterior(b.Probability, ev)
	if ev.Outcome != OutcomeUnknown {
		b.SampleSize++
	}
	b.UpdatedAt = s.now().UTC()
	s.beliefs[patternID] = b
	return b
}

// Get returns the current belief for a pattern.
func (s *PriorStore) Get(patternID string) (Belief, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.beliefs[patternID]
	return b, ok
}

// Snapshot copies every belief, for persistence or snapshot builds.
func (s *PriorStore) Snapshot() []Belief {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Belief, 0, len(s.beliefs))
	for _, b := range s.beliefs {
		out = append(out, b)
	}
	return out
}

// Load replaces the store contents, used to rehydrate from the priors table
// on startup.
func (s *PriorStore) Load(beliefs []Belief) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beliefs = make(map[string]Belief, len(beliefs))
	for _, b := range beliefs {
		s.beliefs[b.PatternID] = b
	}
}

// Interval is a Wilson score interval with its coarse confidence label.
type Interval struct {
	Low        float64 `json:"low"`
	High       float64 `json:"high"`
	Confidence string  `json:"confidence"`
}

// Confidence labels derived from interval width.
const (
	ConfidenceHigh   = "HIGH"
	ConfidenceMedium = "MEDIUM"
	ConfidenceLow    = "LOW"
)

// WilsonInterval computes the 95% Wilson score interval for a proportion p
// observed over n samples.
func WilsonInterval(p float64, n int) Interval {
	if n < 1 {
		n = 1
	}
	const z = 1.96
	nf := float64(n)
	z2 := z * z
	denom := 1 + z2/nf
	center := (p + z2/(2*nf)) / denom
	margin := (z / denom) * math.Sqrt(p*(1-p)/nf+z2/(4*nf*nf))
	iv := Interval{
		Low:  math.Max(0, center-margin),
		High: math.Min(1, center+margin),
	}
	switch width := iv.High - iv.Low; {
	case width < 0.1:
		iv.Confidence = ConfidenceHigh
	case width < 0.3:
		iv.Confidence = ConfidenceMedium
	default:
		iv.Confidence = ConfidenceLow
	}
	return iv
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
