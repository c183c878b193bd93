package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/hooklab-media/hooklab-backend/internal/data/repos"
	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/canonjson"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/ids"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

// Evidence thresholds for rule adjustment.
const (
	escalateBelow = 0.4
	relaxAbove    = 0.9
	weightGrowth  = 1.2
	weightCeiling = 2.0
)

// RuleStat is the aggregated coaching outcome for one rule since the last
// pack revision.
type RuleStat struct {
	SuccessRate float64 `json:"success_rate"`
	SampleCount int     `json:"sample_count"`
}

// PackDiffEntry records one field change between revisions.
type PackDiffEntry struct {
	RuleID string `json:"rule_id"`
	Field  string `json:"field"`
	Old    any    `json:"old"`
	New    any    `json:"new"`
}

// PackUpdaterService turns measured rule outcomes into a new immutable pack
// revision. Rules failing often escalate in priority; rules that nearly
// always succeed gain weight; everything else is carried unchanged.
type PackUpdaterService interface {
	UpdateFromEvidence(dbc dbctx.Context, run *types.Run, patternID string, stats map[string]RuleStat) (*types.DirectorPack, []PackDiffEntry, error)
}

type packUpdaterService struct {
	db    *gorm.DB
	log   *logger.Logger
	packs repos.DirectorPackRepo
	runs  RunService
}

func NewPackUpdaterService(db *gorm.DB, baseLog *logger.Logger, packs repos.DirectorPackRepo, runs RunService) PackUpdaterService {
	return &packUpdaterService{
		db:    db,
		log:   baseLog.With("service", "PackUpdaterService"),
		packs: packs,
		runs:  runs,
	}
}

func (s *packUpdaterService) UpdateFromEvidence(dbc dbctx.Context, run *types.Run, patternID string, stats map[string]RuleStat) (*types.DirectorPack, []PackDiffEntry, error) {
	current, err := s.packs.GetLatestByPattern(dbc, patternID)
	if err != nil {
		return nil, nil, err
	}
	if current == nil {
		return nil, nil, fmt.Errorf("pattern %s has no director pack to update", patternID)
	}

	var rules []types.PackRule
	if err := json.Unmarshal(current.DNAInvariants, &rules); err != nil {
		return nil, nil, fmt.Errorf("pack %s: decode dna_invariants: %w", current.PackID, err)
	}

	var diff []PackDiffEntry
	for i := range rules {
		// Every rule with evidence is adjusted; rules absent from the
		// summary are carried through unchanged.
		stat, ok := stats[rules[i].RuleID]
		if !ok {
			continue
		}
		switch {
		case stat.SuccessRate < escalateBelow:
			next := types.NextPriority(rules[i].Priority)
			if next != rules[i].Priority {
				diff = append(diff, PackDiffEntry{RuleID: rules[i].RuleID, Field: "priority", Old: rules[i].Priority, New: next})
				rules[i].Priority = next
			}
		case stat.SuccessRate >= relaxAbove:
			grown := rules[i].Weight * weightGrowth
			if grown > weightCeiling {
				grown = weightCeiling
			}
			if grown != rules[i].Weight {
				diff = append(diff, PackDiffEntry{RuleID: rules[i].RuleID, Field: "weight", Old: rules[i].Weight, New: grown})
				rules[i].Weight = grown
			}
		}
	}
	if len(diff) == 0 {
		return current, nil, nil
	}
	sort.Slice(diff, func(i, j int) bool {
		if diff[i].RuleID != diff[j].RuleID {
			return diff[i].RuleID < diff[j].RuleID
		}
		return diff[i].Field < diff[j].Field
	})

	rulesJSON, err := canonjson.Canonicalize(rules)
	if err != nil {
		return nil, nil, err
	}
	now := time.Now().UTC()
	next := &types.DirectorPack{
		PackID:             ids.New("pack", now, patternID),
		PatternID:          patternID,
		DNAInvariants:      datatypes.JSON(rulesJSON),
		MutationSlots:      current.MutationSlots,
		ForbiddenMutations: current.ForbiddenMutations,
		Checkpoints:        current.Checkpoints,
		CoachLineTemplates: current.CoachLineTemplates,
		RuntimeContract:    current.RuntimeContract,
	}
	hash, err := PackHash(next)
	if err != nil {
		return nil, nil, err
	}
	next.PackHash = hash

	created, err := s.packs.AppendRevision(dbc, next)
	if err != nil {
		return nil, nil, err
	}

	if run != nil {
		if _, err := s.runs.AddArtifact(dbc, run, ArtifactInput{
			ArtifactType: "pack_diff",
			Name:         fmt.Sprintf("pack diff %s r%d -> r%d", patternID, current.Revision, created.Revision),
			Data: map[string]any{
				"pattern_id":    patternID,
				"from_pack_id":  current.PackID,
				"to_pack_id":    created.PackID,
				"from_revision": current.Revision,
				"to_revision":   created.Revision,
				"changes":       diff,
			},
		}); err != nil {
			return nil, nil, err
		}
	}
	return created, diff, nil
}

// PackHash fingerprints a pack's coaching content; two packs with the same
// hash coach identically regardless of row identity.
func PackHash(p *types.DirectorPack) (string, error) {
	return canonjson.Hash(map[string]any{
		"pattern_id":           p.PatternID,
		"dna_invariants":       json.RawMessage(orEmpty(p.DNAInvariants)),
		"mutation_slots":       json.RawMessage(orEmpty(p.MutationSlots)),
		"forbidden_mutations":  json.RawMessage(orEmpty(p.ForbiddenMutations)),
		"checkpoints":          json.RawMessage(orEmpty(p.Checkpoints)),
		"coach_line_templates": json.RawMessage(orEmpty(p.CoachLineTemplates)),
		"runtime_contract":     json.RawMessage(orEmpty(p.RuntimeContract)),
	})
}

func orEmpty(raw datatypes.JSON) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}

// OrderSlotsByBandit sorts mutation slots by their posterior mean success
// with a +1/+2 smoothing, so new arms start optimistic at 0.5. Ties keep the
// pack's declared order.
func OrderSlotsByBandit(slots []types.PackMutationSlot, arms []*types.BanditArm) []types.PackMutationSlot {
	mean := make(map[string]float64, len(arms))
	for _, arm := range arms {
		key := arm.MutationType + "|" + arm.MutationPattern
		mean[key] = (float64(arm.Successes) + 1) / (float64(arm.Successes+arm.Failures) + 2)
	}
	out := make([]types.PackMutationSlot, len(slots))
	copy(out, slots)
	sort.SliceStable(out, func(i, j int) bool {
		mi := mean[out[i].MutationType+"|"+out[i].Pattern]
		mj := mean[out[j].MutationType+"|"+out[j].Pattern]
		if mi == 0 {
			mi = 0.5
		}
		if mj == 0 {
			mj = 0.5
		}
		return mi > mj
	})
	return out
}
