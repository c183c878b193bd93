package services

import (
	"context"
	"errors"
	"testing"

	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/data/repos"
	"github.com/hooklab-media/hooklab-backend/internal/data/repos/testutil"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/apperr"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
)

func newTestRunService(t *testing.T) (RunService, dbctx.Context) {
	t.Helper()
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	tx := testutil.Tx(t, gdb)
	svc := NewRunService(gdb, log, repos.NewRunRepo(gdb, log), repos.NewArtifactRepo(gdb, log))
	return svc, dbctx.Context{Ctx: context.Background(), Tx: tx}
}

func TestAcquireReturnsCompletedRunOnSecondCall(t *testing.T) {
	svc, dbc := newTestRunService(t)

	in := AcquireInput{
		RunType:     types.RunTypeAnalysis,
		Inputs:      map[string]any{"video_id": "v1", "schema": "vdg-1.0"},
		TriggeredBy: "test",
	}
	first, skipped, err := svc.Acquire(dbc, in)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if skipped {
		t.Fatal("first acquire should not be skipped")
	}
	if first.Status != types.RunStatusRunning {
		t.Fatalf("expected RUNNING, got %s", first.Status)
	}
	if err := svc.Complete(dbc, first, map[string]any{"frames": 42}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// Same logical inputs with a different key order must resolve to the
	// finished run, not start a new one.
	again, skipped, err := svc.Acquire(dbc, AcquireInput{
		RunType:     types.RunTypeAnalysis,
		Inputs:      map[string]any{"schema": "vdg-1.0", "video_id": "v1"},
		TriggeredBy: "test",
	})
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if !skipped {
		t.Fatal("second acquire should be skipped")
	}
	if again.ID != first.ID {
		t.Fatalf("expected run %s, got %s", first.ID, again.ID)
	}
	if again.Status != types.RunStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", again.Status)
	}
}

func TestAcquireRerunSupersedesCompleted(t *testing.T) {
	svc, dbc := newTestRunService(t)

	in := AcquireInput{
		RunType:     types.RunTypeAnalysis,
		Inputs:      map[string]any{"video_id": "v_rerun"},
		TriggeredBy: "test",
	}
	first, _, err := svc.Acquire(dbc, in)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := svc.Complete(dbc, first, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}

	rerun := false
	in.SkipIfExists = &rerun
	second, skipped, err := svc.Acquire(dbc, in)
	if err != nil {
		t.Fatalf("rerun acquire: %v", err)
	}
	if skipped {
		t.Fatal("rerun must not be skipped")
	}
	if second.ID == first.ID {
		t.Fatal("rerun must create a new run row")
	}
	if second.IdempotencyKey != first.IdempotencyKey {
		t.Fatal("rerun keeps the same idempotency key")
	}
	// The prior completed row is superseded, so the rerun can complete
	// without tripping the one-COMPLETED-per-key index.
	if err := svc.Complete(dbc, second, map[string]any{"rerun": true}); err != nil {
		t.Fatalf("complete rerun: %v", err)
	}

	in.SkipIfExists = nil
	third, skipped, err := svc.Acquire(dbc, in)
	if err != nil {
		t.Fatalf("third acquire: %v", err)
	}
	if !skipped || third.ID != second.ID {
		t.Fatal("default acquire must return the rerun's completed row")
	}
}

func TestAcquireConflictsWhileKeyActive(t *testing.T) {
	svc, dbc := newTestRunService(t)

	in := AcquireInput{
		RunType:     types.RunTypeClustering,
		Inputs:      map[string]any{"window": "2026-08"},
		TriggeredBy: "test",
	}
	first, _, err := svc.Acquire(dbc, in)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	holder, _, err := svc.Acquire(dbc, in)
	if !apperr.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if holder == nil || holder.ID != first.ID {
		t.Fatal("conflict should surface the run holding the key")
	}

	// A different run type with the same inputs is a different key space.
	if _, _, err := svc.Acquire(dbc, AcquireInput{
		RunType:     types.RunTypeBandit,
		Inputs:      map[string]any{"window": "2026-08"},
		TriggeredBy: "test",
	}); err != nil {
		t.Fatalf("other run type should acquire cleanly: %v", err)
	}
}

func TestAddArtifactOnlyWhileRunning(t *testing.T) {
	svc, dbc := newTestRunService(t)

	run, _, err := svc.Acquire(dbc, AcquireInput{
		RunType:     types.RunTypeEvidence,
		Inputs:      map[string]any{"event_id": "ev_art"},
		TriggeredBy: "test",
	})
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	a, err := svc.AddArtifact(dbc, run, ArtifactInput{
		ArtifactType: "evidence_snapshot",
		Name:         "snapshot",
		Data:         map[string]any{"views": 100, "likes": 7},
	})
	if err != nil {
		t.Fatalf("add artifact: %v", err)
	}
	if a.ContentHash == "" || a.SizeBytes == 0 {
		t.Fatal("artifact should carry a content hash and size")
	}

	// Canonicalization makes the hash independent of the caller's key order.
	b, err := svc.AddArtifact(dbc, run, ArtifactInput{
		ArtifactType: "evidence_snapshot",
		Name:         "snapshot_again",
		Data:         map[string]any{"likes": 7, "views": 100},
	})
	if err != nil {
		t.Fatalf("add artifact: %v", err)
	}
	if b.ContentHash != a.ContentHash {
		t.Fatalf("hash should be order independent: %s vs %s", a.ContentHash, b.ContentHash)
	}

	if err := svc.Complete(dbc, run, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}
	_, err = svc.AddArtifact(dbc, run, ArtifactInput{ArtifactType: "late", Name: "late", Data: map[string]any{}})
	var illegal *apperr.IllegalTransitionError
	if !errors.As(err, &illegal) {
		t.Fatalf("expected illegal transition, got %v", err)
	}
}

func TestTerminalTransitionsAreCAS(t *testing.T) {
	svc, dbc := newTestRunService(t)

	run, _, err := svc.Acquire(dbc, AcquireInput{
		RunType:     types.RunTypeDecision,
		Inputs:      map[string]any{"event_id": "ev_cas"},
		TriggeredBy: "test",
	})
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := svc.Fail(dbc, run, "score", errors.New("boom")); err != nil {
		t.Fatalf("fail: %v", err)
	}

	// The row already left RUNNING; a second terminal write must lose the CAS.
	err = svc.Complete(dbc, run, map[string]any{"ok": true})
	var illegal *apperr.IllegalTransitionError
	if !errors.As(err, &illegal) {
		t.Fatalf("expected illegal transition, got %v", err)
	}
	if illegal.From != types.RunStatusFailed {
		t.Fatalf("expected FAILED as current status, got %s", illegal.From)
	}
}

func TestEnqueueCreatesQueuedRun(t *testing.T) {
	svc, dbc := newTestRunService(t)

	run, skipped, err := svc.Enqueue(dbc, AcquireInput{
		RunType:     types.RunTypeSourcePack,
		Inputs:      map[string]any{"pattern_id": "pat_q"},
		TriggeredBy: "test",
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if skipped {
		t.Fatal("fresh enqueue should not be skipped")
	}
	if run.Status != types.RunStatusQueued {
		t.Fatalf("expected QUEUED, got %s", run.Status)
	}
	if run.StartedAt != nil {
		t.Fatal("queued run should not have started")
	}

	cancelled, err := svc.Cancel(dbc, run.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != types.RunStatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", cancelled.Status)
	}
}
