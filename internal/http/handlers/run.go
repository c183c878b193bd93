package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hooklab-media/hooklab-backend/internal/data/repos"
	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/http/response"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/services"
)

type RunHandler struct {
	runSvc    services.RunService
	runs      repos.RunRepo
	artifacts repos.ArtifactRepo
}

func NewRunHandler(runSvc services.RunService, runs repos.RunRepo, artifacts repos.ArtifactRepo) *RunHandler {
	return &RunHandler{runSvc: runSvc, runs: runs, artifacts: artifacts}
}

type enqueueRunRequest struct {
	RunType        string         `json:"run_type" binding:"required"`
	Inputs         map[string]any `json:"inputs"`
	TriggeredBy    string         `json:"triggered_by"`
	TimeoutSeconds int            `json:"timeout_seconds"`
	SkipIfExists   *bool          `json:"skip_if_exists"`
}

// POST /api/runs
func (h *RunHandler) EnqueueRun(c *gin.Context) {
	var req enqueueRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if !types.ValidRunType(req.RunType) {
		response.RespondError(c, http.StatusBadRequest, "invalid_run_type", fmt.Errorf("unknown run_type %q", req.RunType))
		return
	}
	triggeredBy := req.TriggeredBy
	if triggeredBy == "" {
		triggeredBy = "api"
	}
	run, skipped, err := h.runSvc.Enqueue(dbctx.Context{Ctx: c.Request.Context()}, services.AcquireInput{
		RunType:      req.RunType,
		Inputs:       req.Inputs,
		TriggeredBy:  triggeredBy,
		Timeout:      time.Duration(req.TimeoutSeconds) * time.Second,
		SkipIfExists: req.SkipIfExists,
	})
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	status := http.StatusAccepted
	if skipped {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"run": run, "skipped": skipped})
}

// GET /api/runs/:id
func (h *RunHandler) GetRun(c *gin.Context) {
	run, err := h.loadRun(c)
	if err != nil {
		return
	}
	response.RespondOK(c, gin.H{"run": run})
}

// GET /api/runs
func (h *RunHandler) ListRuns(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	dbc := dbctx.Context{Ctx: c.Request.Context()}

	if status := c.Query("status"); status != "" {
		runs, err := h.runs.ListByStatus(dbc, status, limit)
		if err != nil {
			response.RespondAppError(c, err)
			return
		}
		response.RespondOK(c, gin.H{"runs": runs})
		return
	}
	runs, err := h.runs.ListRecent(dbc, c.Query("run_type"), limit)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"runs": runs})
}

// POST /api/runs/:id/cancel
func (h *RunHandler) CancelRun(c *gin.Context) {
	run, err := h.loadRun(c)
	if err != nil {
		return
	}
	cancelled, err := h.runSvc.Cancel(dbctx.Context{Ctx: c.Request.Context()}, run.ID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"run": cancelled})
}

// GET /api/runs/:id/artifacts
func (h *RunHandler) ListRunArtifacts(c *gin.Context) {
	run, err := h.loadRun(c)
	if err != nil {
		return
	}
	arts, err := h.artifacts.ListByRun(dbctx.Context{Ctx: c.Request.Context()}, run.ID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"artifacts": arts})
}

// loadRun resolves :id as either the row UUID or the public run_id. It
// writes the error response itself so callers just return on error.
func (h *RunHandler) loadRun(c *gin.Context) (*types.Run, error) {
	raw := c.Param("id")
	dbc := dbctx.Context{Ctx: c.Request.Context()}

	var run *types.Run
	var err error
	if id, parseErr := uuid.Parse(raw); parseErr == nil {
		run, err = h.runs.GetByID(dbc, id)
	} else {
		run, err = h.runs.GetByRunID(dbc, raw)
	}
	if err != nil {
		response.RespondAppError(c, err)
		return nil, err
	}
	if run == nil {
		err = fmt.Errorf("run %s not found", raw)
		response.RespondError(c, http.StatusNotFound, "run_not_found", err)
		return nil, err
	}
	return run, nil
}
