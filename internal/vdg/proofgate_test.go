package vdg

import (
	"strings"
	"testing"
)

func i64(v int64) *int64 { return &v }

func proofDoc() *Document {
	return &Document{
		SchemaVersion: "v3.5",
		DurationMS:    30000,
		ViralKicks: []ViralKick{
			{StartMS: i64(1000), PeakMS: i64(2000), EndMS: i64(3000)},
			{StartMS: i64(10000), PeakMS: i64(12000), EndMS: i64(15000)},
		},
		AudienceReaction: &AudienceReaction{
			CommentAnchors: []CommentAnchor{{Rank: 2, Text: "how did he do that"}},
		},
		Provenance: &Provenance{PromptVersion: "p7", ModelID: "vision-1", SchemaVersion: "v3.5"},
	}
}

func TestProofGatePasses(t *testing.T) {
	res := ProofGate(proofDoc())
	if !res.ProofReady {
		t.Fatalf("expected proof_ready, issues: %v", res.Issues)
	}
}

func TestProofGateKickCount(t *testing.T) {
	doc := proofDoc()
	doc.ViralKicks = doc.ViralKicks[:1]
	res := ProofGate(doc)
	if res.ProofReady {
		t.Fatal("one kick must not be proof ready")
	}
}

func TestProofGateKeyframeOrdering(t *testing.T) {
	doc := proofDoc()
	doc.ViralKicks[0] = ViralKick{StartMS: i64(2000), PeakMS: i64(1000), EndMS: i64(3000)}
	res := ProofGate(doc)
	if res.ProofReady {
		t.Fatal("unordered keyframes must fail the gate")
	}
	found := false
	for _, issue := range res.Issues {
		if strings.Contains(issue, "not ordered") {
			found = true
		}
	}
	if !found {
		t.Fatalf("issues should name the ordering violation: %v", res.Issues)
	}
}

func TestProofGateKeyframeRange(t *testing.T) {
	doc := proofDoc()
	doc.ViralKicks[1] = ViralKick{StartMS: i64(20000), PeakMS: i64(25000), EndMS: i64(40000)}
	if ProofGate(doc).ProofReady {
		t.Fatal("keyframe past duration_ms must fail the gate")
	}
}

func TestProofGateCommentAnchor(t *testing.T) {
	doc := proofDoc()
	doc.AudienceReaction.CommentAnchors = []CommentAnchor{{Rank: 9}}
	if ProofGate(doc).ProofReady {
		t.Fatal("anchor outside top-5 must fail the gate")
	}
	doc.AudienceReaction = nil
	if ProofGate(doc).ProofReady {
		t.Fatal("no audience reaction must fail the gate")
	}
}

func TestProofGateProvenance(t *testing.T) {
	doc := proofDoc()
	doc.Provenance.ModelID = ""
	res := ProofGate(doc)
	if res.ProofReady {
		t.Fatal("missing model_id must fail the gate")
	}
	doc.Provenance = nil
	res = ProofGate(doc)
	if res.ProofReady {
		t.Fatal("missing provenance must fail the gate")
	}
}
