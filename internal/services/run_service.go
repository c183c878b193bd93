package services

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/hooklab-media/hooklab-backend/internal/data/repos"
	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/apperr"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/canonjson"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/ids"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

const defaultRunTimeout = 10 * time.Minute

// AcquireInput describes a run to start or look up.
type AcquireInput struct {
	RunType     string
	Inputs      map[string]any
	TriggeredBy string
	ParentRunID *uuid.UUID
	Timeout     time.Duration
	// SkipIfExists controls reuse of a COMPLETED run holding the same key.
	// Nil means true. When explicitly false the prior completed row is
	// soft-deleted and the work re-executes; the one-COMPLETED-per-key
	// index only covers live rows, so the invariant survives the rerun.
	SkipIfExists *bool
}

// ArtifactInput is one output to attach to a RUNNING run.
type ArtifactInput struct {
	ArtifactType  string
	Name          string
	StorageType   string
	StoragePath   string
	SchemaVersion string
	MimeType      string
	Data          any
}

type RunService interface {
	// Acquire returns the COMPLETED run for the same canonical inputs when
	// one exists (skipped=true), errors with Conflict when the key is
	// QUEUED or RUNNING elsewhere, and otherwise starts a RUNNING run.
	Acquire(dbc dbctx.Context, in AcquireInput) (*types.Run, bool, error)
	// Enqueue is Acquire with QUEUED status; the worker pool claims it.
	Enqueue(dbc dbctx.Context, in AcquireInput) (*types.Run, bool, error)
	AddArtifact(dbc dbctx.Context, run *types.Run, in ArtifactInput) (*types.Artifact, error)
	Complete(dbc dbctx.Context, run *types.Run, summary map[string]any) error
	Fail(dbc dbctx.Context, run *types.Run, stage string, cause error) error
	Cancel(dbc dbctx.Context, runID uuid.UUID) (*types.Run, error)
	// Execute wraps a body with acquire, panic recovery, and the terminal
	// transition.
	Execute(ctx context.Context, in AcquireInput, body func(dbc dbctx.Context, run *types.Run) (map[string]any, error)) (*types.Run, bool, error)
}

type runService struct {
	db        *gorm.DB
	log       *logger.Logger
	runs      repos.RunRepo
	artifacts repos.ArtifactRepo
}

func NewRunService(db *gorm.DB, baseLog *logger.Logger, runs repos.RunRepo, artifacts repos.ArtifactRepo) RunService {
	return &runService{
		db:        db,
		log:       baseLog.With("service", "RunService"),
		runs:      runs,
		artifacts: artifacts,
	}
}

// IdempotencyKey hashes run inputs in canonical form; key order and
// whitespace in the caller's map never change the key.
func IdempotencyKey(inputs map[string]any) (string, error) {
	if inputs == nil {
		inputs = map[string]any{}
	}
	return canonjson.Hash(inputs)
}

func (s *runService) Acquire(dbc dbctx.Context, in AcquireInput) (*types.Run, bool, error) {
	return s.acquire(dbc, in, types.RunStatusRunning)
}

func (s *runService) Enqueue(dbc dbctx.Context, in AcquireInput) (*types.Run, bool, error) {
	return s.acquire(dbc, in, types.RunStatusQueued)
}

func (s *runService) acquire(dbc dbctx.Context, in AcquireInput, status string) (*types.Run, bool, error) {
	if !types.ValidRunType(in.RunType) {
		return nil, false, fmt.Errorf("unknown run_type %q", in.RunType)
	}
	key, err := IdempotencyKey(in.Inputs)
	if err != nil {
		return nil, false, fmt.Errorf("idempotency key: %w", err)
	}

	skipIfExists := in.SkipIfExists == nil || *in.SkipIfExists
	if done, err := s.runs.GetCompletedByKey(dbc, in.RunType, key); err != nil {
		return nil, false, err
	} else if done != nil {
		if skipIfExists {
			return done, true, nil
		}
		if err := s.runs.SoftDelete(dbc, done.ID); err != nil {
			return nil, false, fmt.Errorf("supersede completed run %s: %w", done.RunID, err)
		}
		s.log.Info("Superseding completed run for rerun", "run_id", done.RunID, "run_type", in.RunType)
	}
	if active, err := s.runs.GetActiveByKey(dbc, in.RunType, key); err != nil {
		return nil, false, err
	} else if active != nil {
		return active, false, &apperr.ConflictError{
			Resource: "pipeline_run",
			Detail:   fmt.Sprintf("%s already %s for this key", active.RunID, strings.ToLower(active.Status)),
		}
	}

	inputsJSON, err := canonjson.Canonicalize(in.Inputs)
	if err != nil {
		return nil, false, err
	}
	timeout := in.Timeout
	if timeout <= 0 {
		timeout = defaultRunTimeout
	}
	now := time.Now().UTC()
	run := &types.Run{
		RunID:          ids.New("run", now, in.RunType, key),
		RunType:        in.RunType,
		Status:         status,
		IdempotencyKey: key,
		InputsJSON:     datatypes.JSON(inputsJSON),
		TriggeredBy:    in.TriggeredBy,
		ParentRunID:    in.ParentRunID,
		TimeoutSeconds: int(timeout.Seconds()),
	}
	if status == types.RunStatusRunning {
		run.StartedAt = &now
		run.HeartbeatAt = &now
		run.Attempts = 1
	}

	created, err := s.runs.Create(dbc, run)
	if err == nil {
		return created, false, nil
	}
	// A concurrent acquirer can beat us to the partial unique index; the
	// winner's row decides what the caller sees.
	if skipIfExists {
		if done, lookupErr := s.runs.GetCompletedByKey(dbc, in.RunType, key); lookupErr == nil && done != nil {
			return done, true, nil
		}
	}
	if active, lookupErr := s.runs.GetActiveByKey(dbc, in.RunType, key); lookupErr == nil && active != nil {
		return active, false, &apperr.ConflictError{
			Resource: "pipeline_run",
			Detail:   fmt.Sprintf("lost acquire race to %s", active.RunID),
		}
	}
	if apperr.IsUniqueViolation(err) {
		// The winner's row exists but is not visible from this transaction.
		return nil, false, &apperr.ConflictError{
			Resource: "pipeline_run",
			Detail:   "lost acquire race for key " + key,
		}
	}
	return nil, false, err
}

func (s *runService) AddArtifact(dbc dbctx.Context, run *types.Run, in ArtifactInput) (*types.Artifact, error) {
	if run == nil {
		return nil, fmt.Errorf("missing run")
	}
	if run.Status != types.RunStatusRunning {
		return nil, &apperr.IllegalTransitionError{
			Entity: "pipeline_artifact",
			ID:     run.RunID,
			From:   run.Status,
			To:     "artifact append",
		}
	}
	canonical, err := canonjson.Canonicalize(in.Data)
	if err != nil {
		return nil, fmt.Errorf("canonicalize artifact: %w", err)
	}
	hash, err := canonjson.HashRaw(canonical)
	if err != nil {
		return nil, err
	}
	storageType := in.StorageType
	if storageType == "" {
		storageType = types.ArtifactStorageDB
	}
	art := &types.Artifact{
		RunID:         run.ID,
		ArtifactType:  in.ArtifactType,
		Name:          in.Name,
		StorageType:   storageType,
		StoragePath:   in.StoragePath,
		SchemaVersion: in.SchemaVersion,
		ContentHash:   hash,
		SizeBytes:     int64(len(canonical)),
		MimeType:      in.MimeType,
	}
	if storageType == types.ArtifactStorageDB {
		art.DataJSON = datatypes.JSON(canonical)
	}
	out, err := s.artifacts.Create(dbc, []*types.Artifact{art})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (s *runService) Complete(dbc dbctx.Context, run *types.Run, summary map[string]any) error {
	if run == nil {
		return fmt.Errorf("missing run")
	}
	summaryJSON, err := canonjson.Canonicalize(summary)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":         types.RunStatusCompleted,
		"result_summary": datatypes.JSON(summaryJSON),
		"ended_at":       now,
	}
	if run.StartedAt != nil {
		updates["duration_ms"] = now.Sub(*run.StartedAt).Milliseconds()
	}
	return s.transition(dbc, run, types.RunStatusCompleted, updates)
}

func (s *runService) Fail(dbc dbctx.Context, run *types.Run, stage string, cause error) error {
	if run == nil {
		return fmt.Errorf("missing run")
	}
	msg := "unknown failure"
	if cause != nil {
		msg = cause.Error()
	}
	if stage != "" {
		msg = stage + ": " + msg
	}
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":          types.RunStatusFailed,
		"error_message":   msg,
		"error_traceback": string(debug.Stack()),
		"ended_at":        now,
	}
	if run.StartedAt != nil {
		updates["duration_ms"] = now.Sub(*run.StartedAt).Milliseconds()
	}
	return s.transition(dbc, run, types.RunStatusFailed, updates)
}

// transition is the single CAS write every terminal edge goes through.
func (s *runService) transition(dbc dbctx.Context, run *types.Run, to string, updates map[string]interface{}) error {
	moved, err := s.runs.UpdateFieldsWhereStatus(dbc, run.ID, types.RunStatusRunning, updates)
	if err != nil {
		return err
	}
	if !moved {
		current, err := s.runs.GetByID(dbc, run.ID)
		if err != nil {
			return err
		}
		from := "missing"
		if current != nil {
			from = current.Status
		}
		return &apperr.IllegalTransitionError{Entity: "pipeline_run", ID: run.RunID, From: from, To: to}
	}
	run.Status = to
	return nil
}

// Cancel ends a run cooperatively. A QUEUED run that never started moves to
// CANCELLED; a RUNNING run fails with reason cancelled and its artifacts are
// marked orphaned so downstream consumers skip them.
func (s *runService) Cancel(dbc dbctx.Context, runID uuid.UUID) (*types.Run, error) {
	run, err := s.runs.GetByID(dbc, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if types.IsTerminalRunStatus(run.Status) {
		return run, &apperr.ConflictError{Resource: "pipeline_run", Detail: "already " + strings.ToLower(run.Status)}
	}

	now := time.Now().UTC()
	if run.Status == types.RunStatusQueued {
		moved, err := s.runs.UpdateFieldsWhereStatus(dbc, run.ID, types.RunStatusQueued, map[string]interface{}{
			"status":        types.RunStatusCancelled,
			"error_message": apperr.ErrCancelRequested.Error(),
			"ended_at":      now,
		})
		if err != nil {
			return nil, err
		}
		if !moved {
			return s.Cancel(dbc, runID) // state moved under us; re-read once
		}
		run.Status = types.RunStatusCancelled
		return run, nil
	}

	moved, err := s.runs.UpdateFieldsWhereStatus(dbc, run.ID, types.RunStatusRunning, map[string]interface{}{
		"status":        types.RunStatusFailed,
		"error_message": apperr.ErrCancelRequested.Error(),
		"ended_at":      now,
	})
	if err != nil {
		return nil, err
	}
	if !moved {
		current, _ := s.runs.GetByID(dbc, run.ID)
		if current != nil {
			return current, &apperr.ConflictError{Resource: "pipeline_run", Detail: "already " + strings.ToLower(current.Status)}
		}
		return run, err
	}
	if _, err := s.artifacts.MarkOrphanedByRun(dbc, run.ID); err != nil {
		s.log.Error("orphan artifacts after cancel", "run_id", run.RunID, "error", err)
	}
	run.Status = types.RunStatusFailed
	return run, nil
}

func (s *runService) Execute(ctx context.Context, in AcquireInput, body func(dbc dbctx.Context, run *types.Run) (map[string]any, error)) (*types.Run, bool, error) {
	dbc := dbctx.Context{Ctx: ctx}
	run, skipped, err := s.Acquire(dbc, in)
	if err != nil || skipped {
		return run, skipped, err
	}

	var summary map[string]any
	bodyErr := func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("panic: %v", rec)
			}
		}()
		summary, err = body(dbc, run)
		return
	}()

	if bodyErr != nil {
		if failErr := s.Fail(dbc, run, "execute", bodyErr); failErr != nil {
			s.log.Error("mark run failed", "run_id", run.RunID, "error", failErr)
		}
		return run, false, bodyErr
	}
	if err := s.Complete(dbc, run, summary); err != nil {
		return run, false, err
	}
	return run, false, nil
}
