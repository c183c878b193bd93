package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hooklab-media/hooklab-backend/internal/data/repos"
	"github.com/hooklab-media/hooklab-backend/internal/data/repos/testutil"
	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/apperr"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
)

func newTestEvidenceLoop(t *testing.T) (EvidenceLoopService, dbctx.Context) {
	t.Helper()
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	tx := testutil.Tx(t, gdb)
	svc := NewEvidenceLoopService(gdb, log,
		repos.NewEvidenceEventRepo(gdb, log),
		repos.NewEvidenceSnapshotRepo(gdb, log),
		repos.NewDecisionRepo(gdb, log),
	)
	return svc, dbctx.Context{Ctx: context.Background(), Tx: tx}
}

func TestEvidenceCycleStampsMonotonicTimestamps(t *testing.T) {
	svc, dbc := newTestEvidenceLoop(t)

	event, err := svc.StartCycle(dbc, "node_cycle", nil)
	if err != nil {
		t.Fatalf("start cycle: %v", err)
	}
	if event.Status != types.EvidenceQueued {
		t.Fatalf("expected QUEUED, got %s", event.Status)
	}

	if _, err := svc.Advance(dbc, event.ID, types.EvidenceQueued, types.EvidenceRunning); err != nil {
		t.Fatalf("queued -> running: %v", err)
	}
	if _, err := svc.AttachSnapshot(dbc, event.ID, &types.EvidenceSnapshot{
		SnapshotID:   "snap_cycle",
		EventID:      event.ID,
		ParentNodeID: "node_cycle",
		SampleCount:  12,
		Confidence:   0.8,
	}); err != nil {
		t.Fatalf("attach snapshot: %v", err)
	}
	if _, err := svc.CreateDecision(dbc, event.ID, &types.DecisionObject{
		DecisionID:   "dec_cycle",
		DecisionType: types.DecisionGo,
	}); err != nil {
		t.Fatalf("create decision: %v", err)
	}
	if _, err := svc.Advance(dbc, event.ID, types.EvidenceDecided, types.EvidenceExecuted); err != nil {
		t.Fatalf("decided -> executed: %v", err)
	}
	final, err := svc.Advance(dbc, event.ID, types.EvidenceExecuted, types.EvidenceMeasured)
	if err != nil {
		t.Fatalf("executed -> measured: %v", err)
	}

	if final.Status != types.EvidenceMeasured {
		t.Fatalf("expected MEASURED, got %s", final.Status)
	}
	if final.EvidenceSnapshotID == nil || final.DecisionObjectID == nil {
		t.Fatal("snapshot and decision refs must be set on the event")
	}
	stamps := []*time.Time{
		&final.QueuedAt, final.RunningAt, final.EvidenceReadyAt,
		final.DecidedAt, final.ExecutedAt, final.MeasuredAt,
	}
	for i, ts := range stamps {
		if ts == nil {
			t.Fatalf("timestamp %d missing", i)
		}
		if i > 0 && ts.Before(*stamps[i-1]) {
			t.Fatalf("timestamp %d (%s) precedes timestamp %d (%s)", i, ts, i-1, stamps[i-1])
		}
	}
	if final.FailedAt != nil {
		t.Fatal("failed_at must stay empty on the happy path")
	}
}

func TestStartCycleConflictsWhileActive(t *testing.T) {
	svc, dbc := newTestEvidenceLoop(t)

	first, err := svc.StartCycle(dbc, "node_active", nil)
	if err != nil {
		t.Fatalf("start cycle: %v", err)
	}
	again, err := svc.StartCycle(dbc, "node_active", nil)
	if !apperr.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if again == nil || again.ID != first.ID {
		t.Fatal("conflict should surface the in-flight event")
	}
}

func TestAdvanceRejectsSkippedStage(t *testing.T) {
	svc, dbc := newTestEvidenceLoop(t)

	event, err := svc.StartCycle(dbc, "node_skip", nil)
	if err != nil {
		t.Fatalf("start cycle: %v", err)
	}
	_, err = svc.Advance(dbc, event.ID, types.EvidenceQueued, types.EvidenceDecided)
	var illegal *apperr.IllegalTransitionError
	if !errors.As(err, &illegal) {
		t.Fatalf("expected illegal transition, got %v", err)
	}

	// The stored status decides the CAS even when the caller claims a legal
	// from status.
	_, err = svc.Advance(dbc, event.ID, types.EvidenceRunning, types.EvidenceEvidenceReady)
	if err == nil {
		t.Fatal("advance from a status the row is not in must not succeed")
	}
}

func TestMarkFailedOnlyFromNonTerminal(t *testing.T) {
	svc, dbc := newTestEvidenceLoop(t)

	event, err := svc.StartCycle(dbc, "node_fail", nil)
	if err != nil {
		t.Fatalf("start cycle: %v", err)
	}
	failed, err := svc.MarkFailed(dbc, event.ID, "crawler unreachable")
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if failed.Status != types.EvidenceFailed || failed.FailedAt == nil {
		t.Fatalf("expected FAILED with failed_at, got %s", failed.Status)
	}
	if failed.ErrorMessage != "crawler unreachable" {
		t.Fatalf("unexpected error message %q", failed.ErrorMessage)
	}

	_, err = svc.MarkFailed(dbc, event.ID, "again")
	var illegal *apperr.IllegalTransitionError
	if !errors.As(err, &illegal) {
		t.Fatalf("terminal event should reject another failure, got %v", err)
	}
}
