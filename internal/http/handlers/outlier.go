package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hooklab-media/hooklab-backend/internal/data/repos"
	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/http/response"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
)

type OutlierHandler struct {
	outliers repos.OutlierItemRepo
}

func NewOutlierHandler(outliers repos.OutlierItemRepo) *OutlierHandler {
	return &OutlierHandler{outliers: outliers}
}

// GET /api/outliers?status=pending&limit=50
func (h *OutlierHandler) ListOutliers(c *gin.Context) {
	status := c.Query("status")
	if status == "" {
		status = types.OutlierStatusPending
	}
	items, err := h.outliers.ListByStatus(dbctx.Context{Ctx: c.Request.Context()}, status, intQuery(c, "limit", 50))
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"outliers": items})
}

// GET /api/outliers/:id
func (h *OutlierHandler) GetOutlier(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_outlier_id", err)
		return
	}
	item, err := h.outliers.GetByID(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	if item == nil {
		response.RespondError(c, http.StatusNotFound, "outlier_not_found", fmt.Errorf("outlier %s not found", id))
		return
	}
	response.RespondOK(c, gin.H{"outlier": item})
}
