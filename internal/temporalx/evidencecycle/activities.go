package evidencecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"gorm.io/gorm"

	"github.com/hooklab-media/hooklab-backend/internal/data/repos"
	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/apperr"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/platform/envutil"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
	"github.com/hooklab-media/hooklab-backend/internal/services"
)

type Activities struct {
	Log       *logger.Logger
	DB        *gorm.DB
	Events    repos.EvidenceEventRepo
	Decisions repos.DecisionRepo
	Runs      services.RunService
}

// Tick inspects the event and fires whichever transition is due: a snapshot
// build for QUEUED, a decision run for EVIDENCE_READY (unless manual mode),
// a pack build after a GO. The run engine's idempotency key makes repeated
// enqueues for the same event collapse, so ticking is safe at any rate.
func (a *Activities) Tick(ctx context.Context, eventID string) (TickResult, error) {
	res := TickResult{EventID: strings.TrimSpace(eventID)}
	if a == nil || a.DB == nil || a.Events == nil || a.Runs == nil {
		return res, fmt.Errorf("evidencecycle: activity not configured")
	}

	id, err := uuid.Parse(res.EventID)
	if err != nil || id == uuid.Nil {
		return res, fmt.Errorf("evidencecycle: invalid event_id %q", eventID)
	}
	dbc := dbctx.Context{Ctx: ctx}

	event, err := a.Events.GetByID(dbc, id)
	if err != nil {
		return res, err
	}
	if event == nil {
		return res, fmt.Errorf("evidencecycle: event %s not found", eventID)
	}
	activity.RecordHeartbeat(ctx, event.Status)

	switch event.Status {
	case types.EvidenceQueued, types.EvidenceRunning:
		// The snapshot pipeline advances QUEUED itself; just make sure a
		// run exists.
		if err := a.enqueue(dbc, types.RunTypeEvidence, event); err != nil {
			return res, err
		}
		res.Status = "working"

	case types.EvidenceEvidenceReady:
		if !envutil.Bool("EVIDENCE_AUTO_DECIDE", true) {
			res.Status = "waiting_manual"
			return res, nil
		}
		if err := a.enqueue(dbc, types.RunTypeDecision, event); err != nil {
			return res, err
		}
		res.Status = "working"

	case types.EvidenceDecided, types.EvidenceExecuted, types.EvidenceMeasured:
		decision, err := a.Decisions.GetByEvent(dbc, event.ID)
		if err != nil {
			return res, err
		}
		if decision != nil {
			res.Decision = decision.DecisionType
			if decision.DecisionType == types.DecisionGo {
				if err := a.enqueue(dbc, types.RunTypeSourcePack, event); err != nil {
					return res, err
				}
			}
		}
		res.Status = "decided"

	case types.EvidenceFailed:
		res.Status = "failed"

	default:
		return res, fmt.Errorf("evidencecycle: event %s in unknown status %q", event.EventID, event.Status)
	}
	return res, nil
}

func (a *Activities) enqueue(dbc dbctx.Context, runType string, event *types.EvidenceEvent) error {
	_, skipped, err := a.Runs.Enqueue(dbc, services.AcquireInput{
		RunType:     runType,
		Inputs:      map[string]any{"event_id": event.ID.String()},
		TriggeredBy: "evidence_cycle",
	})
	if err != nil {
		// An active duplicate means another driver got there first.
		if apperr.IsConflict(err) {
			return nil
		}
		return err
	}
	if !skipped && a.Log != nil {
		a.Log.Info("Evidence cycle enqueued run", "event_id", event.EventID, "run_type", runType)
	}
	return nil
}

// Driver starts and signals cycle workflows. Nil-safe so the API works with
// Temporal disabled.
type Driver struct {
	Client    temporalsdkclient.Client
	TaskQueue string
}

func (d *Driver) StartCycle(ctx context.Context, eventID uuid.UUID) error {
	if d == nil || d.Client == nil {
		return nil
	}
	_, err := d.Client.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:                       eventID.String(),
		TaskQueue:                d.TaskQueue,
		WorkflowIDReusePolicy:    enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		WorkflowExecutionTimeout: 30 * 24 * time.Hour,
	}, WorkflowName)
	if err != nil && strings.Contains(err.Error(), "already") {
		return nil
	}
	return err
}

// Resume signals a workflow parked on a manual decision.
func (d *Driver) Resume(ctx context.Context, eventID uuid.UUID) error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.SignalWorkflow(ctx, eventID.String(), "", SignalResume, nil)
}
