package source_pack_build

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	jobrt "github.com/hooklab-media/hooklab-backend/internal/jobs/runtime"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/ids"
	"github.com/hooklab-media/hooklab-backend/internal/services"
	"github.com/hooklab-media/hooklab-backend/internal/vdg"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Run == nil {
		return nil
	}
	dbc := dbctx.Context{Ctx: jc.Ctx}

	patternID, ok := jc.PayloadString("pattern_id")
	if !ok {
		jc.Fail("validate", fmt.Errorf("missing pattern_id"))
		return nil
	}

	// A pack build gated on an evidence event only proceeds on GO.
	if eventID, ok := jc.PayloadUUID("event_id"); ok {
		event, err := p.events.GetByID(dbc, eventID)
		if err != nil {
			jc.Fail("gate", err)
			return nil
		}
		if event == nil {
			jc.Fail("gate", fmt.Errorf("evidence event %s not found", eventID))
			return nil
		}
		decision, err := p.decisions.GetByEvent(dbc, event.ID)
		if err != nil {
			jc.Fail("gate", err)
			return nil
		}
		if decision == nil {
			jc.Fail("gate", fmt.Errorf("event %s has no decision yet", event.EventID))
			return nil
		}
		if decision.DecisionType != types.DecisionGo {
			jc.Succeed(map[string]any{
				"pattern_id": patternID,
				"skipped":    true,
				"decision":   decision.DecisionType,
			})
			return nil
		}
	}

	head, err := p.library.GetLatest(dbc, patternID)
	if err != nil {
		jc.Fail("library", err)
		return nil
	}
	clusterID, _ := jc.PayloadString("cluster_id")
	if clusterID == "" && head != nil {
		clusterID = head.ClusterID
	}
	if clusterID == "" {
		jc.Fail("validate", fmt.Errorf("pattern %s has no cluster_id and none was given", patternID))
		return nil
	}
	clusterRec, err := p.clusters.GetByClusterID(dbc, clusterID)
	if err != nil {
		jc.Fail("cluster", err)
		return nil
	}
	if clusterRec == nil {
		jc.Fail("cluster", fmt.Errorf("cluster %s not found", clusterID))
		return nil
	}
	dna, err := vdg.NormalizeRaw(clusterRec.CentroidDNA)
	if err != nil {
		jc.Fail("cluster", fmt.Errorf("cluster %s centroid: %w", clusterID, err))
		return nil
	}

	jc.Progress("crystallize", 30, "Appending library revision")

	rules := invariantRules(dna)
	rulesJSON, err := json.Marshal(rules)
	if err != nil {
		jc.Fail("crystallize", err)
		return nil
	}
	slots := p.mutationSlots(dbc, patternID, dna)
	slotsJSON, err := json.Marshal(slots)
	if err != nil {
		jc.Fail("crystallize", err)
		return nil
	}

	entry := &types.PatternLibraryEntry{
		PatternID:        patternID,
		ClusterID:        clusterID,
		TemporalPhase:    temporalPhase(head),
		InvariantRules:   datatypes.JSON(rulesJSON),
		MutationStrategy: datatypes.JSON(slotsJSON),
		ConfidenceScore:  clusterRec.RecurrenceScore,
		SampleCount:      clusterRec.MemberCount,
	}
	entry, err = p.library.AppendRevision(dbc, entry)
	if err != nil {
		jc.Fail("crystallize", err)
		return nil
	}

	jc.Progress("pack", 70, "Emitting director pack revision")

	pack, err := p.buildPack(dbc, patternID, dna, rules, slots)
	if err != nil {
		jc.Fail("pack", err)
		return nil
	}
	pack, err = p.packs.AppendRevision(dbc, pack)
	if err != nil {
		jc.Fail("pack", err)
		return nil
	}

	if _, err := jc.AddArtifact(services.ArtifactInput{
		ArtifactType: "learning_report",
		Name:         "pack-build-" + patternID,
		StorageType:  types.ArtifactStorageDB,
		MimeType:     "application/json",
		Data: map[string]any{
			"pattern_id":       patternID,
			"cluster_id":       clusterID,
			"library_revision": entry.Revision,
			"pack_revision":    pack.Revision,
			"invariant_rules":  len(rules),
			"mutation_slots":   slotNames(slots),
		},
	}); err != nil {
		p.log.Warn("Learning report artifact failed", "pattern_id", patternID, "error", err)
	}

	jc.Succeed(map[string]any{
		"pattern_id":       patternID,
		"cluster_id":       clusterID,
		"library_revision": entry.Revision,
		"pack_id":          pack.PackID,
		"pack_revision":    pack.Revision,
		"pack_hash":        pack.PackHash,
	})
	return nil
}

// invariantRules crystallizes the stable DNA features into coaching rules on
// the metrics the session evaluators actually emit.
func invariantRules(dna vdg.NormalizedDNA) []types.PackRule {
	rules := []types.PackRule{
		{
			RuleID:            "eye_contact_floor",
			Description:       "keep the camera engaged through the hook",
			Metric:            "visual.eye_contact",
			Operator:          "gte",
			Target:            0.6,
			Priority:          types.PriorityHigh,
			Weight:            1.0,
			CoachLineTemplate: "Look at the lens",
		},
		{
			RuleID:            "brightness_band",
			Description:       "stay inside the exposure band",
			Metric:            "visual.brightness",
			Operator:          "range",
			Target:            0.35,
			TargetHigh:        0.85,
			Priority:          types.PriorityMedium,
			Weight:            1.0,
			CoachLineTemplate: "Fix your lighting",
		},
	}
	if dna.Hook.Delivery == "spoken" || len(dna.MicrobeatSequence) > 0 {
		rules = append(rules,
			types.PackRule{
				RuleID:            "pace_band",
				Description:       "hold conversational pace",
				Metric:            "delivery.words_per_sec",
				Operator:          "range",
				Target:            2.0,
				TargetHigh:        4.5,
				Priority:          types.PriorityMedium,
				Weight:            1.0,
				CoachLineTemplate: "Adjust your pace",
			},
			types.PackRule{
				RuleID:            "filler_ceiling",
				Description:       "keep filler words down",
				Metric:            "delivery.filler_rate",
				Operator:          "lte",
				Target:            0.08,
				Priority:          types.PriorityLow,
				Weight:            1.0,
				CoachLineTemplate: "Cut the filler words",
			},
		)
	}
	return rules
}

// mutationSlots carries the head pack's slots when one exists, otherwise
// seeds the sanctioned axes from the DNA; either way the bandit orders them.
func (p *Pipeline) mutationSlots(dbc dbctx.Context, patternID string, dna vdg.NormalizedDNA) []types.PackMutationSlot {
	var slots []types.PackMutationSlot
	if head, err := p.packs.GetLatestByPattern(dbc, patternID); err == nil && head != nil && len(head.MutationSlots) > 0 {
		if err := json.Unmarshal(head.MutationSlots, &slots); err != nil {
			p.log.Warn("Head pack slots do not decode, reseeding", "pattern_id", patternID, "error", err)
			slots = nil
		}
	}
	if len(slots) == 0 {
		slots = seedSlots(dna)
	}
	arms, err := p.arms.ListByPattern(dbc, patternID)
	if err != nil {
		p.log.Warn("Bandit arms unavailable, keeping declared slot order", "pattern_id", patternID, "error", err)
		return slots
	}
	return services.OrderSlotsByBandit(slots, arms)
}

func seedSlots(dna vdg.NormalizedDNA) []types.PackMutationSlot {
	slots := []types.PackMutationSlot{}
	if dna.Hook.Type != "" {
		slots = append(slots, types.PackMutationSlot{
			SlotID:       "hook_variation",
			MutationType: "hook",
			Pattern:      dna.Hook.Type,
			Weight:       1.0,
		})
	}
	if len(dna.VisualPatterns) > 0 {
		slots = append(slots, types.PackMutationSlot{
			SlotID:       "visual_variation",
			MutationType: "visual",
			Pattern:      dna.VisualPatterns[0],
			Weight:       1.0,
		})
	}
	if dna.AudioFlags.IsTrending {
		slots = append(slots, types.PackMutationSlot{
			SlotID:       "audio_swap",
			MutationType: "audio",
			Pattern:      "trending_sound",
			Weight:       1.0,
		})
	}
	return slots
}

func (p *Pipeline) buildPack(dbc dbctx.Context, patternID string, dna vdg.NormalizedDNA, rules []types.PackRule, slots []types.PackMutationSlot) (*types.DirectorPack, error) {
	rulesJSON, err := json.Marshal(rules)
	if err != nil {
		return nil, err
	}
	slotsJSON, err := json.Marshal(slots)
	if err != nil {
		return nil, err
	}
	checkpointsJSON, err := json.Marshal(checkpoints(dna))
	if err != nil {
		return nil, err
	}
	coachLines := make(map[string]string, len(rules))
	for _, r := range rules {
		coachLines[r.RuleID] = r.CoachLineTemplate
	}
	coachJSON, err := json.Marshal(coachLines)
	if err != nil {
		return nil, err
	}
	contractJSON, err := json.Marshal(types.PackRuntimeContract{
		TickRateHz:         1,
		Modalities:         []string{"visual", "audio"},
		MaxCoachLinePerMin: 6,
	})
	if err != nil {
		return nil, err
	}

	forbidden := datatypes.JSON([]byte("[]"))
	if head, err := p.packs.GetLatestByPattern(dbc, patternID); err == nil && head != nil && len(head.ForbiddenMutations) > 0 {
		forbidden = head.ForbiddenMutations
	}

	pack := &types.DirectorPack{
		PackID:             ids.New("pack", time.Now().UTC(), patternID),
		PatternID:          patternID,
		DNAInvariants:      datatypes.JSON(rulesJSON),
		MutationSlots:      datatypes.JSON(slotsJSON),
		ForbiddenMutations: forbidden,
		Checkpoints:        datatypes.JSON(checkpointsJSON),
		CoachLineTemplates: datatypes.JSON(coachJSON),
		RuntimeContract:    datatypes.JSON(contractJSON),
	}
	hash, err := services.PackHash(pack)
	if err != nil {
		return nil, err
	}
	pack.PackHash = hash
	return pack, nil
}

// checkpoints fire on elapsed time. The hook checkpoint lands where the DNA
// says the hook must be done; the midpoint check keeps longer takes honest.
func checkpoints(dna vdg.NormalizedDNA) []types.PackCheckpoint {
	hookDeadline := dna.Hook.DurationSec
	if hookDeadline <= 0 {
		hookDeadline = 3
	}
	return []types.PackCheckpoint{
		{
			CheckpointID: "hook_complete",
			AtSec:        hookDeadline,
			CoachLine:    "Land the hook now",
			RuleIDs:      []string{"eye_contact_floor"},
		},
		{
			CheckpointID: "midpoint_energy",
			AtSec:        15,
			CoachLine:    "Halfway, lift the energy",
		},
	}
}

func slotNames(slots []types.PackMutationSlot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.MutationType+"/"+s.Pattern)
	}
	return out
}

func temporalPhase(head *types.PatternLibraryEntry) string {
	if head == nil {
		return types.PhaseT0
	}
	return head.TemporalPhase
}
