package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/hooklab-media/hooklab-backend/internal/curation"
	"github.com/hooklab-media/hooklab-backend/internal/data/repos"
	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/http/response"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
)

type CurationHandler struct {
	rules repos.CurationRuleRepo
}

func NewCurationHandler(rules repos.CurationRuleRepo) *CurationHandler {
	return &CurationHandler{rules: rules}
}

// GET /api/curation/rules
func (h *CurationHandler) ListRules(c *gin.Context) {
	rules, err := h.rules.ListEnabled(dbctx.Context{Ctx: c.Request.Context()})
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"rules": rules})
}

type upsertRuleRequest struct {
	RuleID     string                     `json:"rule_id" binding:"required"`
	Conditions map[string]curation.Clause `json:"conditions" binding:"required"`
	Action     string                     `json:"action" binding:"required"`
	Priority   int                        `json:"priority"`
	Enabled    *bool                      `json:"enabled"`
	Notes      string                     `json:"notes"`
}

// PUT /api/curation/rules upserts a rule after auditing its keys against
// the declared feature keyspace. A rule naming an unknown key never lands.
func (h *CurationHandler) UpsertRule(c *gin.Context) {
	var req upsertRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	parsed := curation.Rule{
		RuleID:     req.RuleID,
		Conditions: req.Conditions,
		Action:     req.Action,
		Priority:   req.Priority,
	}
	if err := parsed.AuditKeys(); err != nil {
		response.RespondError(c, http.StatusUnprocessableEntity, "rule_key_mismatch", err)
		return
	}

	condJSON, err := json.Marshal(req.Conditions)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_conditions", err)
		return
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	row := &types.CurationRule{
		RuleID:     req.RuleID,
		Conditions: datatypes.JSON(condJSON),
		Action:     req.Action,
		Priority:   req.Priority,
		Enabled:    enabled,
		Notes:      req.Notes,
	}
	if err := h.rules.UpsertByRuleID(dbctx.Context{Ctx: c.Request.Context()}, []*types.CurationRule{row}); err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"rule": row})
}
