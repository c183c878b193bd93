package decision_make

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	jobrt "github.com/hooklab-media/hooklab-backend/internal/jobs/runtime"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/ids"
	"github.com/hooklab-media/hooklab-backend/internal/services"
	"github.com/hooklab-media/hooklab-backend/internal/stpf"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Run == nil {
		return nil
	}
	dbc := dbctx.Context{Ctx: jc.Ctx}

	eventID, ok := jc.PayloadUUID("event_id")
	if !ok {
		jc.Fail("validate", fmt.Errorf("missing event_id"))
		return nil
	}

	event, err := p.events.GetByID(dbc, eventID)
	if err != nil {
		jc.Fail("load", err)
		return nil
	}
	if event == nil {
		jc.Fail("load", fmt.Errorf("evidence event %s not found", eventID))
		return nil
	}
	if event.Status == types.EvidenceDecided {
		jc.Succeed(map[string]any{"event_id": event.EventID, "noop": true})
		return nil
	}
	if event.Status != types.EvidenceEvidenceReady {
		jc.Fail("state", fmt.Errorf("event %s is %s, expected %s", event.EventID, event.Status, types.EvidenceEvidenceReady))
		return nil
	}

	snapshot, err := p.snapshots.GetByEvent(dbc, event.ID)
	if err != nil {
		jc.Fail("snapshot", err)
		return nil
	}
	if snapshot == nil {
		jc.Fail("snapshot", fmt.Errorf("event %s has no evidence snapshot", event.EventID))
		return nil
	}

	patternID, _ := jc.PayloadString("pattern_id")
	if patternID == "" {
		patternID = event.ParentNodeID
	}
	priorP := 0.5
	if prior, err := p.priors.Get(dbc, patternID); err == nil && prior != nil {
		priorP = prior.PSuccess
	}

	jc.Progress("score", 40, "Scoring the evidence")

	inputs := inputsFromEvidence(snapshot, priorP)
	result := stpf.Score(inputs)
	decisionType := mapDecision(result.Decision)

	decisionJSON, err := json.Marshal(map[string]any{
		"why":    result.Why,
		"how":    result.How,
		"inputs": inputs,
	})
	if err != nil {
		jc.Fail("score", err)
		return nil
	}
	stpfJSON, err := json.Marshal(result)
	if err != nil {
		jc.Fail("score", err)
		return nil
	}

	now := time.Now().UTC()
	decision := &types.DecisionObject{
		DecisionID:      ids.New("dec", now, event.EventID),
		EventID:         event.ID,
		DecisionType:    decisionType,
		DecisionJSON:    datatypes.JSON(decisionJSON),
		EvidenceSummary: result.Why,
		DecisionMethod:  "auto",
		DecidedBy:       "stpf",
		DecidedAt:       now,
		StpfResult:      datatypes.JSON(stpfJSON),
	}

	if wantTranscript, _ := jc.Payload()["transcript"].(bool); wantTranscript && p.llm != nil {
		if artifactID := p.transcript(jc, event, snapshot, result); artifactID != nil {
			decision.TranscriptArtifactID = artifactID
		}
	}

	if _, err := p.loop.CreateDecision(dbc, event.ID, decision); err != nil {
		jc.Fail("decide", err)
		return nil
	}

	jc.Succeed(map[string]any{
		"event_id":    event.EventID,
		"decision_id": decision.DecisionID,
		"decision":    decisionType,
		"score_1000":  result.Score1000,
		"confidence":  result.Confidence,
	})
	return nil
}

// inputsFromEvidence maps the snapshot and prior onto the 1-10 scales. Both
// live on [0,1], so scale(p)=1+9p; gates sit at a neutral 7 because nothing
// in the evidence loop measures trust, legality, or hygiene. Proof counts as
// evidenced only past three decided samples.
func inputsFromEvidence(snapshot *types.EvidenceSnapshot, prior float64) stpf.Inputs {
	scale := func(p float64) float64 { return 1 + 9*p }
	return stpf.Inputs{
		Trust:    7,
		Legality: 7,
		Hygiene:  7,

		Essence:    scale(prior),
		Capability: scale(snapshot.Confidence),
		Novelty:    5,
		Connection: scale(snapshot.TopMutationRate),
		Proof:      scale(snapshot.TopMutationRate),

		Cost:        4,
		Risk:        scale(1 - snapshot.Confidence),
		Threat:      3,
		Pressure:    3,
		TimeLag:     3,
		Uncertainty: scale(1 - snapshot.Confidence),

		Scarcity: 5,
		Network:  5,
		Leverage: 5,

		Evidence: map[string]bool{
			"proof": snapshot.SampleCount >= 3,
		},
	}
}

// mapDecision translates the scorer's label to the loop's vocabulary:
// CONSIDER means the pattern is worth another angle, not a stop.
func mapDecision(label string) string {
	switch label {
	case stpf.DecisionGo:
		return types.DecisionGo
	case stpf.DecisionConsider:
		return types.DecisionPivot
	default:
		return types.DecisionStop
	}
}

// transcript asks the LLM for a short narrative of the decision and stores
// it as a run artifact. Best effort only; the decision never waits on prose.
func (p *Pipeline) transcript(jc *jobrt.Context, event *types.EvidenceEvent, snapshot *types.EvidenceSnapshot, result stpf.Result) *uuid.UUID {
	user := fmt.Sprintf(
		"parent_node_id: %s\ntop_mutation: %s/%s at %.2f over %d samples\nverdict: %s (%d/1000)\nwhy: %s",
		event.ParentNodeID,
		snapshot.TopMutationType, snapshot.TopMutationPattern, snapshot.TopMutationRate, snapshot.SampleCount,
		result.Decision, result.Score1000, result.Why,
	)
	text, err := p.llm.GenerateTranscript(jc.Ctx,
		"You are a content strategist. Explain this evidence-based decision in under 150 words, plainly.",
		user,
	)
	if err != nil {
		p.log.Warn("Transcript generation failed", "event_id", event.EventID, "error", err)
		return nil
	}
	artifact, err := jc.AddArtifact(services.ArtifactInput{
		ArtifactType: "decision_transcript",
		Name:         "transcript-" + event.EventID,
		StorageType:  types.ArtifactStorageDB,
		MimeType:     "text/plain",
		Data:         map[string]any{"text": text},
	})
	if err != nil || artifact == nil {
		p.log.Warn("Transcript artifact write failed", "event_id", event.EventID, "error", err)
		return nil
	}
	id := artifact.ID
	return &id
}
