package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hooklab-media/hooklab-backend/internal/data/repos"
	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/http/response"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/services"
)

type ClusterHandler struct {
	clusters repos.ClusterRepo
	notebook repos.NotebookRepo
	links    repos.RecurrenceLinkRepo
	nodes    repos.NodeRepo
	cards    services.CardRenderService
}

func NewClusterHandler(
	clusters repos.ClusterRepo,
	notebook repos.NotebookRepo,
	links repos.RecurrenceLinkRepo,
	nodes repos.NodeRepo,
	cards services.CardRenderService,
) *ClusterHandler {
	return &ClusterHandler{clusters: clusters, notebook: notebook, links: links, nodes: nodes, cards: cards}
}

// GET /api/clusters
func (h *ClusterHandler) ListClusters(c *gin.Context) {
	list, err := h.clusters.ListAll(dbctx.Context{Ctx: c.Request.Context()}, intQuery(c, "limit", 100))
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"clusters": list})
}

// GET /api/clusters/:id
func (h *ClusterHandler) GetCluster(c *gin.Context) {
	cluster, ok := h.load(c)
	if !ok {
		return
	}
	response.RespondOK(c, gin.H{"cluster": cluster})
}

// GET /api/clusters/:id/notebook
func (h *ClusterHandler) ListNotebook(c *gin.Context) {
	cluster, ok := h.load(c)
	if !ok {
		return
	}
	entries, err := h.notebook.ListByCluster(dbctx.Context{Ctx: c.Request.Context()}, cluster.ClusterID, intQuery(c, "limit", 100))
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"entries": entries})
}

// GET /api/clusters/:id/recurrences
func (h *ClusterHandler) ListRecurrences(c *gin.Context) {
	cluster, ok := h.load(c)
	if !ok {
		return
	}
	list, err := h.links.ListForCluster(dbctx.Context{Ctx: c.Request.Context()}, cluster.ClusterID, intQuery(c, "limit", 50))
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"links": list})
}

// GET /api/clusters/:id/nodes
func (h *ClusterHandler) ListNodes(c *gin.Context) {
	cluster, ok := h.load(c)
	if !ok {
		return
	}
	list, err := h.nodes.ListByCluster(dbctx.Context{Ctx: c.Request.Context()}, cluster.ClusterID, intQuery(c, "limit", 100))
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"nodes": list})
}

// POST /api/clusters/:id/card renders the summary card synchronously and
// returns its public URL. Heavy batches go through the CARD_RENDER run type
// instead.
func (h *ClusterHandler) RenderCard(c *gin.Context) {
	if h.cards == nil {
		response.RespondError(c, http.StatusServiceUnavailable, "card_render_disabled", fmt.Errorf("card rendering not configured"))
		return
	}
	cluster, ok := h.load(c)
	if !ok {
		return
	}
	url, err := h.cards.RenderClusterCard(dbctx.Context{Ctx: c.Request.Context()}, cluster.ClusterID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"cluster_id": cluster.ClusterID, "card_url": url})
}

func (h *ClusterHandler) load(c *gin.Context) (*types.PatternCluster, bool) {
	clusterID := c.Param("id")
	rec, err := h.clusters.GetByClusterID(dbctx.Context{Ctx: c.Request.Context()}, clusterID)
	if err != nil {
		response.RespondAppError(c, err)
		return nil, false
	}
	if rec == nil {
		response.RespondError(c, http.StatusNotFound, "cluster_not_found", fmt.Errorf("cluster %s not found", clusterID))
		return nil, false
	}
	return rec, true
}
