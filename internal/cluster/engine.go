package cluster

import (
	"time"

	"github.com/hooklab-media/hooklab-backend/internal/pkg/canonjson"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/ids"
	"github.com/hooklab-media/hooklab-backend/internal/vdg"
)

// Candidate is one existing cluster the assigner scores against. DNA is the
// cluster's centroid (the founding member's normalized DNA).
type Candidate struct {
	ClusterID   string
	MemberCount int
	CreatedAt   time.Time
	DNA         vdg.NormalizedDNA
}

// Match is the assignment verdict for one node.
type Match struct {
	ClusterID  string
	Similarity float64
}

// BestMatch scores dna against every candidate and returns the best cluster
// at or above the threshold. Ties on similarity break toward the larger
// member count, then the older cluster, so a replayed batch lands
// identically.
func BestMatch(dna vdg.NormalizedDNA, candidates []Candidate, threshold float64) (Match, bool) {
	var best Match
	var bestCand Candidate
	found := false
	for _, cand := range candidates {
		s := Similarity(dna, cand.DNA)
		if s < threshold {
			continue
		}
		if !found || better(s, cand, best.Similarity, bestCand) {
			best = Match{ClusterID: cand.ClusterID, Similarity: s}
			bestCand = cand
			found = true
		}
	}
	return best, found
}

func better(s float64, cand Candidate, bestS float64, best Candidate) bool {
	if s != bestS {
		return s > bestS
	}
	if cand.MemberCount != best.MemberCount {
		return cand.MemberCount > best.MemberCount
	}
	return cand.CreatedAt.Before(best.CreatedAt)
}

// NewClusterID mints a deterministic cluster identity from the founding DNA:
// the same normalized DNA arriving at the same time always produces the same
// id, which is what makes batch clustering replayable.
func NewClusterID(dna vdg.NormalizedDNA, at time.Time) (string, error) {
	hash, err := canonjson.Hash(dna)
	if err != nil {
		return "", err
	}
	return ids.New("cl", at, hash), nil
}

// Subscores is the per-feature similarity breakdown recorded on a recurrence
// link. Comment-signature and product-slot similarity need signals outside
// the DNA and stay zero until the comment subsystem supplies them.
type Subscores struct {
	Microbeat        float64
	HookGenome       float64
	FocusWindow      float64
	AudioFormat      float64
	CommentSignature float64
	ProductSlot      float64
}

// Recurrence link creation thresholds (independent per feature).
const (
	RecurrenceMicrobeatMin = 0.7
	RecurrenceHookMin      = 0.7
	RecurrenceAudioMin     = 0.5
)

// Aggregation weights for the single recurrence score. They sum to 1.0.
const (
	recurWeightMicrobeat = 0.25
	recurWeightHook      = 0.25
	recurWeightFocus     = 0.15
	recurWeightAudio     = 0.15
	recurWeightComment   = 0.10
	recurWeightProduct   = 0.10
)

// CompareForRecurrence computes the feature breakdown between a new cluster
// and an older one. Focus-window similarity is approximated by the overlap of
// camera-move vocabularies, the closest visual-attention signal the DNA
// carries.
func CompareForRecurrence(current, ancestor vdg.NormalizedDNA) Subscores {
	return Subscores{
		Microbeat:   sequenceSim(current.MicrobeatSequence, ancestor.MicrobeatSequence),
		HookGenome:  hookSim(current.Hook, ancestor.Hook),
		FocusWindow: jaccard(current.VisualPatterns, ancestor.VisualPatterns),
		AudioFormat: audioSim(current.AudioFlags, ancestor.AudioFlags),
	}
}

// QualifiesAsRecurrence applies the per-feature thresholds that gate link
// creation.
func (s Subscores) QualifiesAsRecurrence() bool {
	return s.Microbeat >= RecurrenceMicrobeatMin &&
		s.HookGenome >= RecurrenceHookMin &&
		s.AudioFormat >= RecurrenceAudioMin
}

// Score aggregates the breakdown into the single recurrence score.
func (s Subscores) Score() float64 {
	return recurWeightMicrobeat*s.Microbeat +
		recurWeightHook*s.HookGenome +
		recurWeightFocus*s.FocusWindow +
		recurWeightAudio*s.AudioFormat +
		recurWeightComment*s.CommentSignature +
		recurWeightProduct*s.ProductSlot
}
