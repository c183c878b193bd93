package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hooklab-media/hooklab-backend/internal/data/repos"
	"github.com/hooklab-media/hooklab-backend/internal/http/response"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
)

type LibraryHandler struct {
	library repos.LibraryRepo
	packs   repos.DirectorPackRepo
}

func NewLibraryHandler(library repos.LibraryRepo, packs repos.DirectorPackRepo) *LibraryHandler {
	return &LibraryHandler{library: library, packs: packs}
}

// GET /api/patterns
func (h *LibraryHandler) ListPatterns(c *gin.Context) {
	entries, err := h.library.ListLatest(dbctx.Context{Ctx: c.Request.Context()}, intQuery(c, "limit", 100))
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"patterns": entries})
}

// GET /api/patterns/:id
func (h *LibraryHandler) GetPattern(c *gin.Context) {
	patternID := c.Param("id")
	entry, err := h.library.GetLatest(dbctx.Context{Ctx: c.Request.Context()}, patternID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	if entry == nil {
		response.RespondError(c, http.StatusNotFound, "pattern_not_found", fmt.Errorf("pattern %s not found", patternID))
		return
	}
	response.RespondOK(c, gin.H{"pattern": entry})
}

// GET /api/patterns/:id/revisions
func (h *LibraryHandler) ListPatternRevisions(c *gin.Context) {
	revisions, err := h.library.ListRevisions(dbctx.Context{Ctx: c.Request.Context()}, c.Param("id"))
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"revisions": revisions})
}

// GET /api/patterns/:id/pack
func (h *LibraryHandler) GetLatestPack(c *gin.Context) {
	patternID := c.Param("id")
	pack, err := h.packs.GetLatestByPattern(dbctx.Context{Ctx: c.Request.Context()}, patternID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	if pack == nil {
		response.RespondError(c, http.StatusNotFound, "pack_not_found", fmt.Errorf("no pack for pattern %s", patternID))
		return
	}
	response.RespondOK(c, gin.H{"pack": pack})
}

// GET /api/patterns/:id/packs
func (h *LibraryHandler) ListPacks(c *gin.Context) {
	packs, err := h.packs.ListByPattern(dbctx.Context{Ctx: c.Request.Context()}, c.Param("id"))
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"packs": packs})
}

// GET /api/packs/:id
func (h *LibraryHandler) GetPack(c *gin.Context) {
	packID := c.Param("id")
	pack, err := h.packs.GetByPackID(dbctx.Context{Ctx: c.Request.Context()}, packID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	if pack == nil {
		response.RespondError(c, http.StatusNotFound, "pack_not_found", fmt.Errorf("pack %s not found", packID))
		return
	}
	response.RespondOK(c, gin.H{"pack": pack})
}
