package cluster

import (
	"math"
	"testing"
	"time"

	"github.com/hooklab-media/hooklab-backend/internal/vdg"
)

func dnaProblemSolution(durationSec float64) vdg.NormalizedDNA {
	return vdg.NormalizedDNA{
		Hook:              vdg.HookDNA{Type: "problem_solution", DurationSec: durationSec},
		MicrobeatSequence: []string{"setup:text", "build:visual", "punch:audio"},
		VisualPatterns:    []string{"push_in", "static"},
		AudioFlags:        vdg.AudioFlags{IsTrending: false},
		PatternType:       vdg.PatternSemantic,
	}
}

func TestSimilarityIdentical(t *testing.T) {
	a := dnaProblemSolution(2.5)
	if got := Similarity(a, a); math.Abs(got-1.0) > 1e-12 {
		t.Fatalf("self similarity = %v, want 1.0", got)
	}
}

func TestSimilarityEmptyIsHalf(t *testing.T) {
	var a, b vdg.NormalizedDNA
	if got := Similarity(a, b); got != 0.5 {
		t.Fatalf("empty similarity = %v, want 0.5", got)
	}
}

func TestSimilarityHookDuration(t *testing.T) {
	a := dnaProblemSolution(2.5)
	b := dnaProblemSolution(3.2)
	// Same type, duration within 1s: hook dimension stays at 1.0.
	if got := Similarity(a, b); math.Abs(got-1.0) > 1e-12 {
		t.Fatalf("similarity = %v, want 1.0", got)
	}

	c := dnaProblemSolution(6.0)
	// Duration drift beyond 1s costs exactly 0.4 of the 0.30 hook weight.
	want := 1.0 - WeightHook*0.4
	if got := Similarity(a, c); math.Abs(got-want) > 1e-12 {
		t.Fatalf("similarity = %v, want %v", got, want)
	}
}

func TestSimilarityTypeMismatch(t *testing.T) {
	a := dnaProblemSolution(2.5)
	b := dnaProblemSolution(2.5)
	b.Hook.Type = "reveal"
	b.PatternType = vdg.PatternVisual
	// Hook type differs (0.3 on the hook dimension) and pattern type differs
	// (0 on the type dimension).
	want := WeightHook*0.3 + WeightMicrobeat*1.0 + WeightVisual*1.0 + WeightAudio*1.0
	if got := Similarity(a, b); math.Abs(got-want) > 1e-12 {
		t.Fatalf("similarity = %v, want %v", got, want)
	}
}

func TestSequenceSim(t *testing.T) {
	cases := []struct {
		name string
		a, b []string
		want float64
	}{
		{"identical", []string{"a:x", "b:y"}, []string{"a:x", "b:y"}, 1.0},
		{"both empty", nil, nil, 1.0},
		{"one empty", []string{"a:x"}, nil, 0.0},
		{"one substitution of three", []string{"a:x", "b:y", "c:z"}, []string{"a:x", "b:q", "c:z"}, 1.0 - 1.0/3.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := sequenceSim(tc.a, tc.b); math.Abs(got-tc.want) > 1e-12 {
				t.Fatalf("sequenceSim = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBestMatchThresholdAndTieBreak(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	dna := dnaProblemSolution(2.5)

	far := dnaProblemSolution(2.5)
	far.Hook.Type = "listicle"
	far.MicrobeatSequence = []string{"x:1", "y:2"}
	far.PatternType = vdg.PatternVisual

	candidates := []Candidate{
		{ClusterID: "cl_small", MemberCount: 2, CreatedAt: base.Add(time.Hour), DNA: dna},
		{ClusterID: "cl_big", MemberCount: 9, CreatedAt: base.Add(2 * time.Hour), DNA: dna},
		{ClusterID: "cl_far", MemberCount: 50, CreatedAt: base, DNA: far},
	}

	match, ok := BestMatch(dna, candidates, AssignThreshold)
	if !ok {
		t.Fatal("expected a match above threshold")
	}
	if match.ClusterID != "cl_big" {
		t.Fatalf("tie-break chose %s, want cl_big (larger member_count)", match.ClusterID)
	}

	// Equal similarity and member count falls back to the older cluster.
	candidates[1].MemberCount = 2
	match, _ = BestMatch(dna, candidates, AssignThreshold)
	if match.ClusterID != "cl_small" {
		t.Fatalf("tie-break chose %s, want cl_small (older)", match.ClusterID)
	}

	if _, ok := BestMatch(far, candidates[:2], AssignThreshold); ok {
		t.Fatal("dissimilar DNA must not match above threshold")
	}
}

func TestNewClusterIDDeterministic(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a, err := NewClusterID(dnaProblemSolution(2.5), at)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	b, err := NewClusterID(dnaProblemSolution(2.5), at)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if a != b {
		t.Fatalf("same DNA minted different ids: %s vs %s", a, b)
	}
	c, _ := NewClusterID(dnaProblemSolution(9), at)
	if a == c {
		t.Fatal("different DNA minted the same id")
	}
}

func TestRecurrenceSubscores(t *testing.T) {
	a := dnaProblemSolution(2.5)
	b := dnaProblemSolution(2.7)
	sub := CompareForRecurrence(a, b)
	if !sub.QualifiesAsRecurrence() {
		t.Fatalf("near-identical DNAs should qualify: %+v", sub)
	}
	if score := sub.Score(); score < 0.7 {
		t.Fatalf("recurrence score = %v, want >= 0.7 for near-identical DNAs", score)
	}

	b.MicrobeatSequence = []string{"other:cue"}
	sub = CompareForRecurrence(a, b)
	if sub.QualifiesAsRecurrence() {
		t.Fatalf("low microbeat similarity must not qualify: %+v", sub)
	}
}
