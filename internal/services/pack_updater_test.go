package services

import (
	"context"
	"encoding/json"
	"testing"

	"gorm.io/datatypes"

	"github.com/hooklab-media/hooklab-backend/internal/data/repos"
	"github.com/hooklab-media/hooklab-backend/internal/data/repos/testutil"
	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
)

func seedPack(t *testing.T, dbc dbctx.Context, packs repos.DirectorPackRepo, patternID string, rules []types.PackRule) *types.DirectorPack {
	t.Helper()
	rulesJSON, err := json.Marshal(rules)
	if err != nil {
		t.Fatalf("marshal rules: %v", err)
	}
	pack := &types.DirectorPack{
		PackID:        "pack_seed_" + patternID,
		PatternID:     patternID,
		DNAInvariants: datatypes.JSON(rulesJSON),
	}
	hash, err := PackHash(pack)
	if err != nil {
		t.Fatalf("pack hash: %v", err)
	}
	pack.PackHash = hash
	created, err := packs.AppendRevision(dbc, pack)
	if err != nil {
		t.Fatalf("seed pack: %v", err)
	}
	return created
}

func TestUpdateFromEvidenceAdjustsRules(t *testing.T) {
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	tx := testutil.Tx(t, gdb)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	packs := repos.NewDirectorPackRepo(gdb, log)
	runSvc := NewRunService(gdb, log, repos.NewRunRepo(gdb, log), repos.NewArtifactRepo(gdb, log))
	svc := NewPackUpdaterService(gdb, log, packs, runSvc)

	first := seedPack(t, dbc, packs, "pat_upd", []types.PackRule{
		{RuleID: "r_fail", Metric: "visual.face_ratio", Priority: types.PriorityLow, Weight: 1.0},
		{RuleID: "r_win", Metric: "audio.pace_wpm", Priority: types.PriorityMedium, Weight: 1.9},
		{RuleID: "r_thin", Metric: "visual.text_area", Priority: types.PriorityLow, Weight: 1.0},
		{RuleID: "r_mid", Metric: "delivery.hook_sec", Priority: types.PriorityHigh, Weight: 1.0},
	})

	next, diff, err := svc.UpdateFromEvidence(dbc, nil, "pat_upd", map[string]RuleStat{
		"r_fail": {SuccessRate: 0.2, SampleCount: 10}, // escalates low -> medium
		"r_win":  {SuccessRate: 0.95, SampleCount: 10}, // weight grows but caps at 2.0
		"r_thin": {SuccessRate: 0.1, SampleCount: 2},   // thin evidence still escalates
		"r_mid":  {SuccessRate: 0.6, SampleCount: 10},  // mid band, untouched
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if next.Revision != first.Revision+1 {
		t.Fatalf("expected revision %d, got %d", first.Revision+1, next.Revision)
	}
	if next.PackHash == first.PackHash {
		t.Fatal("changed content must change the pack hash")
	}
	if len(diff) != 3 {
		t.Fatalf("expected 3 diff entries, got %d: %+v", len(diff), diff)
	}
	if diff[0].RuleID != "r_fail" || diff[0].Field != "priority" || diff[0].New != types.PriorityMedium {
		t.Fatalf("unexpected first diff entry: %+v", diff[0])
	}
	if diff[1].RuleID != "r_thin" || diff[1].Field != "priority" || diff[1].New != types.PriorityMedium {
		t.Fatalf("unexpected second diff entry: %+v", diff[1])
	}
	if diff[2].RuleID != "r_win" || diff[2].Field != "weight" || diff[2].New != 2.0 {
		t.Fatalf("unexpected third diff entry: %+v", diff[2])
	}

	var rules []types.PackRule
	if err := json.Unmarshal(next.DNAInvariants, &rules); err != nil {
		t.Fatalf("decode new rules: %v", err)
	}
	byID := map[string]types.PackRule{}
	for _, r := range rules {
		byID[r.RuleID] = r
	}
	if byID["r_fail"].Priority != types.PriorityMedium {
		t.Fatalf("r_fail priority: got %s", byID["r_fail"].Priority)
	}
	if byID["r_win"].Weight != 2.0 {
		t.Fatalf("r_win weight should cap at 2.0, got %v", byID["r_win"].Weight)
	}
	if byID["r_thin"].Priority != types.PriorityMedium || byID["r_thin"].Weight != 1.0 {
		t.Fatal("a failing rule escalates even on a small sample")
	}
	if byID["r_mid"].Priority != types.PriorityHigh || byID["r_mid"].Weight != 1.0 {
		t.Fatal("mid-band rule must stay unchanged")
	}
}

func TestUpdateFromEvidenceNoChangeKeepsRevision(t *testing.T) {
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	tx := testutil.Tx(t, gdb)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	packs := repos.NewDirectorPackRepo(gdb, log)
	runSvc := NewRunService(gdb, log, repos.NewRunRepo(gdb, log), repos.NewArtifactRepo(gdb, log))
	svc := NewPackUpdaterService(gdb, log, packs, runSvc)

	first := seedPack(t, dbc, packs, "pat_same", []types.PackRule{
		{RuleID: "r1", Metric: "visual.face_ratio", Priority: types.PriorityCritical, Weight: 1.0},
	})

	// Critical cannot escalate further, so nothing changes and no revision
	// is appended.
	same, diff, err := svc.UpdateFromEvidence(dbc, nil, "pat_same", map[string]RuleStat{
		"r1": {SuccessRate: 0.1, SampleCount: 20},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(diff) != 0 {
		t.Fatalf("expected no diff, got %+v", diff)
	}
	if same.ID != first.ID || same.Revision != first.Revision {
		t.Fatal("no-op update must return the current revision")
	}
}

func TestOrderSlotsByBandit(t *testing.T) {
	slots := []types.PackMutationSlot{
		{SlotID: "s1", MutationType: "hook", Pattern: "question"},
		{SlotID: "s2", MutationType: "hook", Pattern: "shock"},
		{SlotID: "s3", MutationType: "pacing", Pattern: "fast"},
	}
	arms := []*types.BanditArm{
		{MutationType: "hook", MutationPattern: "shock", Successes: 9, Failures: 1},
		{MutationType: "pacing", MutationPattern: "fast", Successes: 1, Failures: 9},
	}

	out := OrderSlotsByBandit(slots, arms)
	if out[0].SlotID != "s2" {
		t.Fatalf("best arm should lead, got %s", out[0].SlotID)
	}
	// s1 has no arm and starts at the optimistic 0.5; s3's posterior is well
	// below that.
	if out[1].SlotID != "s1" || out[2].SlotID != "s3" {
		t.Fatalf("unexpected order: %s, %s", out[1].SlotID, out[2].SlotID)
	}
	if slots[0].SlotID != "s1" {
		t.Fatal("input slice must not be reordered")
	}
}
