// Package cluster implements the weighted DNA similarity and the cluster
// assignment decision. It only ever compares NormalizedDNA: raw VDG payloads
// must go through internal/vdg first.
package cluster

import (
	"math"

	"github.com/hooklab-media/hooklab-backend/internal/vdg"
)

// Dimension weights. They sum to exactly 1.0.
const (
	WeightHook      = 0.30
	WeightMicrobeat = 0.30
	WeightVisual    = 0.15
	WeightAudio     = 0.10
	WeightType      = 0.15
)

// AssignThreshold is the minimum similarity for joining an existing cluster.
const AssignThreshold = 0.72

// Similarity returns the weighted similarity of two normalized DNAs in
// [0, 1]. Two entirely empty DNAs carry no signal and score 0.5.
func Similarity(a, b vdg.NormalizedDNA) float64 {
	if isEmpty(a) && isEmpty(b) {
		return 0.5
	}
	s := WeightHook*hookSim(a.Hook, b.Hook) +
		WeightMicrobeat*sequenceSim(a.MicrobeatSequence, b.MicrobeatSequence) +
		WeightVisual*jaccard(a.VisualPatterns, b.VisualPatterns) +
		WeightAudio*audioSim(a.AudioFlags, b.AudioFlags) +
		WeightType*typeSim(a.PatternType, b.PatternType)
	return math.Min(1, math.Max(0, s))
}

func isEmpty(dna vdg.NormalizedDNA) bool {
	return dna.Hook.Type == "" &&
		len(dna.MicrobeatSequence) == 0 &&
		len(dna.VisualPatterns) == 0 &&
		!dna.AudioFlags.IsTrending
}

// hookSim: same type scores on duration proximity (1.0 inside one second,
// 0.6 beyond), different types score 0.3.
func hookSim(a, b vdg.HookDNA) float64 {
	if a.Type != b.Type {
		return 0.3
	}
	if math.Abs(a.DurationSec-b.DurationSec) < 1.0 {
		return 1.0
	}
	return 0.6
}

// sequenceSim is 1 minus the normalized Levenshtein distance over the
// "role:cue" tokens.
func sequenceSim(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	return 1.0 - float64(levenshtein(a, b))/float64(longest)
}

// levenshtein computes edit distance over token slices, not characters: one
// microbeat is one unit.
func levenshtein(a, b []string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// jaccard over the camera-move sets. Both empty means full overlap.
func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	setA := make(map[string]struct{}, len(a))
	for _, v := range a {
		setA[v] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, v := range b {
		setB[v] = struct{}{}
	}
	inter := 0
	for v := range setA {
		if _, ok := setB[v]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 1.0
	}
	return float64(inter) / float64(union)
}

// audioSim: agreement on trending status scores 1.0, disagreement 0.5.
func audioSim(a, b vdg.AudioFlags) float64 {
	if a.IsTrending == b.IsTrending {
		return 1.0
	}
	return 0.5
}

func typeSim(a, b string) float64 {
	if a == b {
		return 1.0
	}
	return 0.0
}
