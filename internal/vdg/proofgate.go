package vdg

import "fmt"

// ProofGateResult is the quality-gate verdict. The gate is fail-soft: a
// rejected analysis is still persisted, flagged proof_ready=false with the
// issue list attached.
type ProofGateResult struct {
	ProofReady bool     `json:"proof_ready"`
	Issues     []string `json:"issues,omitempty"`
}

const minViralKicks = 2

// ProofGate validates an analysis to proof grade: at least two viral kicks
// with complete, ordered, in-range keyframes; at least one comment evidence
// anchor from the top five; and a provenance block naming prompt, model, and
// schema version.
func ProofGate(doc *Document) ProofGateResult {
	var issues []string

	complete := 0
	for i, kick := range doc.ViralKicks {
		if kick.StartMS == nil || kick.PeakMS == nil || kick.EndMS == nil {
			issues = append(issues, fmt.Sprintf("viral_kicks[%d]: missing keyframe", i))
			continue
		}
		start, peak, end := *kick.StartMS, *kick.PeakMS, *kick.EndMS
		if !(start < peak && peak < end) {
			issues = append(issues, fmt.Sprintf("viral_kicks[%d]: keyframes not ordered start<peak<end", i))
			continue
		}
		if start < 0 || (doc.DurationMS > 0 && end > doc.DurationMS) {
			issues = append(issues, fmt.Sprintf("viral_kicks[%d]: keyframes outside [0, duration_ms]", i))
			continue
		}
		complete++
	}
	if complete < minViralKicks {
		issues = append(issues, fmt.Sprintf("need >= %d complete viral kicks, have %d", minViralKicks, complete))
	}

	anchored := false
	if doc.AudienceReaction != nil {
		for _, anchor := range doc.AudienceReaction.CommentAnchors {
			if anchor.Rank >= 1 && anchor.Rank <= 5 {
				anchored = true
				break
			}
		}
	}
	if !anchored {
		issues = append(issues, "no comment evidence anchor within top-5")
	}

	switch {
	case doc.Provenance == nil:
		issues = append(issues, "provenance block missing")
	default:
		if doc.Provenance.PromptVersion == "" {
			issues = append(issues, "provenance.prompt_version missing")
		}
		if doc.Provenance.ModelID == "" {
			issues = append(issues, "provenance.model_id missing")
		}
		if doc.Provenance.SchemaVersion == "" {
			issues = append(issues, "provenance.schema_version missing")
		}
	}

	return ProofGateResult{ProofReady: len(issues) == 0, Issues: issues}
}
