package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/hooklab-media/hooklab-backend/internal/data/repos"
	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/http/response"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/ids"
	"github.com/hooklab-media/hooklab-backend/internal/services"
)

type EvidenceHandler struct {
	loop      services.EvidenceLoopService
	runSvc    services.RunService
	events    repos.EvidenceEventRepo
	snapshots repos.EvidenceSnapshotRepo
	decisions repos.DecisionRepo
}

func NewEvidenceHandler(
	loop services.EvidenceLoopService,
	runSvc services.RunService,
	events repos.EvidenceEventRepo,
	snapshots repos.EvidenceSnapshotRepo,
	decisions repos.DecisionRepo,
) *EvidenceHandler {
	return &EvidenceHandler{loop: loop, runSvc: runSvc, events: events, snapshots: snapshots, decisions: decisions}
}

type startCycleRequest struct {
	ParentNodeID string `json:"parent_node_id" binding:"required"`
	Period       string `json:"period"`
}

// POST /api/evidence/cycles opens an event for the parent and enqueues the
// snapshot build run that will drive it.
func (h *EvidenceHandler) StartCycle(c *gin.Context) {
	var req startCycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}

	event, err := h.loop.StartCycle(dbc, req.ParentNodeID, nil)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}

	inputs := map[string]any{"event_id": event.ID.String()}
	if req.Period != "" {
		inputs["period"] = req.Period
	}
	run, _, err := h.runSvc.Enqueue(dbc, services.AcquireInput{
		RunType:     types.RunTypeEvidence,
		Inputs:      inputs,
		TriggeredBy: "api",
	})
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"event": event, "run": run})
}

// GET /api/evidence/events/:id
func (h *EvidenceHandler) GetEvent(c *gin.Context) {
	event, ok := h.load(c)
	if !ok {
		return
	}
	response.RespondOK(c, gin.H{"event": event})
}

// GET /api/evidence/events/:id/snapshot
func (h *EvidenceHandler) GetSnapshot(c *gin.Context) {
	event, ok := h.load(c)
	if !ok {
		return
	}
	snapshot, err := h.snapshots.GetByEvent(dbctx.Context{Ctx: c.Request.Context()}, event.ID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	if snapshot == nil {
		response.RespondError(c, http.StatusNotFound, "snapshot_not_found", fmt.Errorf("no snapshot for event %s", event.EventID))
		return
	}
	response.RespondOK(c, gin.H{"snapshot": snapshot})
}

// GET /api/evidence/events/:id/decision
func (h *EvidenceHandler) GetDecision(c *gin.Context) {
	event, ok := h.load(c)
	if !ok {
		return
	}
	decision, err := h.decisions.GetByEvent(dbctx.Context{Ctx: c.Request.Context()}, event.ID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	if decision == nil {
		response.RespondError(c, http.StatusNotFound, "decision_not_found", fmt.Errorf("no decision for event %s", event.EventID))
		return
	}
	response.RespondOK(c, gin.H{"decision": decision})
}

type manualDecisionRequest struct {
	DecisionType string         `json:"decision_type" binding:"required"`
	DecidedBy    string         `json:"decided_by" binding:"required"`
	Summary      string         `json:"summary"`
	Detail       map[string]any `json:"detail"`
}

// POST /api/evidence/events/:id/decision records a manual GO/STOP/PIVOT on
// an EVIDENCE_READY event.
func (h *EvidenceHandler) CreateManualDecision(c *gin.Context) {
	var req manualDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	switch req.DecisionType {
	case types.DecisionGo, types.DecisionStop, types.DecisionPivot:
	default:
		response.RespondError(c, http.StatusBadRequest, "invalid_decision_type",
			fmt.Errorf("decision_type must be GO, STOP or PIVOT, got %q", req.DecisionType))
		return
	}
	event, ok := h.load(c)
	if !ok {
		return
	}

	detailJSON := datatypes.JSON("{}")
	if req.Detail != nil {
		raw, err := json.Marshal(req.Detail)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_detail", err)
			return
		}
		detailJSON = datatypes.JSON(raw)
	}
	now := time.Now().UTC()
	decision := &types.DecisionObject{
		DecisionID:      ids.New("dec", now, event.EventID, "manual"),
		DecisionType:    req.DecisionType,
		DecisionJSON:    detailJSON,
		EvidenceSummary: req.Summary,
		DecisionMethod:  types.DecisionMethodManual,
		DecidedBy:       req.DecidedBy,
		DecidedAt:       now,
	}
	created, err := h.loop.CreateDecision(dbctx.Context{Ctx: c.Request.Context()}, event.ID, decision)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"decision": created})
}

// GET /api/nodes/:id/evidence/latest
func (h *EvidenceHandler) GetLatestForParent(c *gin.Context) {
	parentNodeID := c.Param("id")
	event, err := h.loop.GetLatestEventForParent(dbctx.Context{Ctx: c.Request.Context()}, parentNodeID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	if event == nil {
		response.RespondError(c, http.StatusNotFound, "event_not_found", fmt.Errorf("no evidence events for parent %s", parentNodeID))
		return
	}
	response.RespondOK(c, gin.H{"event": event})
}

func (h *EvidenceHandler) load(c *gin.Context) (*types.EvidenceEvent, bool) {
	raw := c.Param("id")
	dbc := dbctx.Context{Ctx: c.Request.Context()}

	var event *types.EvidenceEvent
	var err error
	if id, parseErr := uuid.Parse(raw); parseErr == nil {
		event, err = h.events.GetByID(dbc, id)
	} else {
		event, err = h.events.GetByEventID(dbc, raw)
	}
	if err != nil {
		response.RespondAppError(c, err)
		return nil, false
	}
	if event == nil {
		response.RespondError(c, http.StatusNotFound, "event_not_found", fmt.Errorf("evidence event %s not found", raw))
		return nil, false
	}
	return event, true
}
