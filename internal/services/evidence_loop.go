package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hooklab-media/hooklab-backend/internal/data/repos"
	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/domain/evidence"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/apperr"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/ids"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

// EvidenceLoopService owns the event state machine. Every advance is a
// compare-and-swap on (id, expected status); a swap that moves zero rows is
// re-read and reported as either an illegal edge or a lost race.
type EvidenceLoopService interface {
	StartCycle(dbc dbctx.Context, parentNodeID string, runID *uuid.UUID) (*types.EvidenceEvent, error)
	Advance(dbc dbctx.Context, eventID uuid.UUID, from, to string) (*types.EvidenceEvent, error)
	MarkFailed(dbc dbctx.Context, eventID uuid.UUID, reason string) (*types.EvidenceEvent, error)
	AttachSnapshot(dbc dbctx.Context, eventID uuid.UUID, snapshot *types.EvidenceSnapshot) (*types.EvidenceSnapshot, error)
	// CreateDecision writes the decision row and the event's decision ref in
	// one transaction while advancing EVIDENCE_READY -> DECIDED.
	CreateDecision(dbc dbctx.Context, eventID uuid.UUID, decision *types.DecisionObject) (*types.DecisionObject, error)
	GetPendingEvents(dbc dbctx.Context, parentNodeID string, limit int) ([]*types.EvidenceEvent, error)
	GetLatestEventForParent(dbc dbctx.Context, parentNodeID string) (*types.EvidenceEvent, error)
}

type evidenceLoopService struct {
	db        *gorm.DB
	log       *logger.Logger
	events    repos.EvidenceEventRepo
	snapshots repos.EvidenceSnapshotRepo
	decisions repos.DecisionRepo
}

func NewEvidenceLoopService(
	db *gorm.DB,
	baseLog *logger.Logger,
	events repos.EvidenceEventRepo,
	snapshots repos.EvidenceSnapshotRepo,
	decisions repos.DecisionRepo,
) EvidenceLoopService {
	return &evidenceLoopService{
		db:        db,
		log:       baseLog.With("service", "EvidenceLoopService"),
		events:    events,
		snapshots: snapshots,
		decisions: decisions,
	}
}

// StartCycle queues a new event for a parent unless one is already in
// flight; a parent has at most one non-terminal event at a time.
func (s *evidenceLoopService) StartCycle(dbc dbctx.Context, parentNodeID string, runID *uuid.UUID) (*types.EvidenceEvent, error) {
	if parentNodeID == "" {
		return nil, fmt.Errorf("missing parent_node_id")
	}
	active, err := s.events.GetActiveForParent(dbc, parentNodeID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return active, &apperr.ConflictError{
			Resource: "evidence_event",
			Detail:   fmt.Sprintf("%s already %s for parent %s", active.EventID, active.Status, parentNodeID),
		}
	}
	now := time.Now().UTC()
	event := &types.EvidenceEvent{
		EventID:      ids.New("ev", now, parentNodeID),
		ParentNodeID: parentNodeID,
		RunID:        runID,
		Status:       types.EvidenceQueued,
		QueuedAt:     now,
	}
	return s.events.Create(dbc, event)
}

// Advance moves an event along one legal edge.
func (s *evidenceLoopService) Advance(dbc dbctx.Context, eventID uuid.UUID, from, to string) (*types.EvidenceEvent, error) {
	if !evidence.CanTransition(from, to) {
		return nil, &apperr.IllegalTransitionError{Entity: "evidence_event", ID: eventID.String(), From: from, To: to}
	}
	updates := map[string]interface{}{"status": to}
	if col := timestampColumn(to); col != "" {
		updates[col] = time.Now().UTC()
	}
	return s.cas(dbc, eventID, from, to, updates)
}

func (s *evidenceLoopService) MarkFailed(dbc dbctx.Context, eventID uuid.UUID, reason string) (*types.EvidenceEvent, error) {
	event, err := s.events.GetByID(dbc, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, fmt.Errorf("event %s not found", eventID)
	}
	if evidence.IsTerminalStatus(event.Status) {
		return event, &apperr.IllegalTransitionError{Entity: "evidence_event", ID: event.EventID, From: event.Status, To: types.EvidenceFailed}
	}
	return s.cas(dbc, eventID, event.Status, types.EvidenceFailed, map[string]interface{}{
		"status":        types.EvidenceFailed,
		"failed_at":     time.Now().UTC(),
		"error_message": reason,
	})
}

func (s *evidenceLoopService) cas(dbc dbctx.Context, eventID uuid.UUID, from, to string, updates map[string]interface{}) (*types.EvidenceEvent, error) {
	moved, err := s.events.TransitionCAS(dbc, eventID, from, updates)
	if err != nil {
		return nil, err
	}
	current, readErr := s.events.GetByID(dbc, eventID)
	if readErr != nil {
		return nil, readErr
	}
	if moved {
		return current, nil
	}
	if current == nil {
		return nil, fmt.Errorf("event %s not found", eventID)
	}
	if evidence.CanTransition(current.Status, to) || current.Status == to {
		// The edge itself is fine; another writer moved the row first.
		return current, &apperr.ConflictError{
			Resource: "evidence_event",
			Detail:   fmt.Sprintf("%s moved to %s by a concurrent writer", current.EventID, current.Status),
		}
	}
	return current, &apperr.IllegalTransitionError{Entity: "evidence_event", ID: current.EventID, From: current.Status, To: to}
}

// AttachSnapshot writes the snapshot and advances RUNNING -> EVIDENCE_READY
// in one transaction.
func (s *evidenceLoopService) AttachSnapshot(dbc dbctx.Context, eventID uuid.UUID, snapshot *types.EvidenceSnapshot) (*types.EvidenceSnapshot, error) {
	var out *types.EvidenceSnapshot
	err := s.inTx(dbc, func(txc dbctx.Context) error {
		created, err := s.snapshots.Create(txc, snapshot)
		if err != nil {
			return err
		}
		if _, err := s.cas(txc, eventID, types.EvidenceRunning, types.EvidenceEvidenceReady, map[string]interface{}{
			"status":               types.EvidenceEvidenceReady,
			"evidence_ready_at":    time.Now().UTC(),
			"evidence_snapshot_id": created.ID,
		}); err != nil {
			return err
		}
		out = created
		return nil
	})
	return out, err
}

func (s *evidenceLoopService) CreateDecision(dbc dbctx.Context, eventID uuid.UUID, decision *types.DecisionObject) (*types.DecisionObject, error) {
	var out *types.DecisionObject
	err := s.inTx(dbc, func(txc dbctx.Context) error {
		decision.EventID = eventID
		created, err := s.decisions.Create(txc, decision)
		if err != nil {
			return err
		}
		if _, err := s.cas(txc, eventID, types.EvidenceEvidenceReady, types.EvidenceDecided, map[string]interface{}{
			"status":             types.EvidenceDecided,
			"decided_at":         time.Now().UTC(),
			"decision_object_id": created.ID,
		}); err != nil {
			return err
		}
		out = created
		return nil
	})
	return out, err
}

func (s *evidenceLoopService) GetPendingEvents(dbc dbctx.Context, parentNodeID string, limit int) ([]*types.EvidenceEvent, error) {
	return s.events.ListPending(dbc, parentNodeID, limit)
}

func (s *evidenceLoopService) GetLatestEventForParent(dbc dbctx.Context, parentNodeID string) (*types.EvidenceEvent, error) {
	return s.events.GetLatestForParent(dbc, parentNodeID)
}

// inTx runs fn inside the caller's transaction when one is present, or a
// fresh one otherwise.
func (s *evidenceLoopService) inTx(dbc dbctx.Context, fn func(txc dbctx.Context) error) error {
	if dbc.Tx != nil {
		return fn(dbc)
	}
	return s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: dbc.Ctx, Tx: tx})
	})
}

// timestampColumn maps each status to the column stamped on entry.
func timestampColumn(status string) string {
	switch status {
	case types.EvidenceRunning:
		return "running_at"
	case types.EvidenceEvidenceReady:
		return "evidence_ready_at"
	case types.EvidenceDecided:
		return "decided_at"
	case types.EvidenceExecuted:
		return "executed_at"
	case types.EvidenceMeasured:
		return "measured_at"
	case types.EvidenceFailed:
		return "failed_at"
	default:
		return ""
	}
}
