package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/hooklab-media/hooklab-backend/internal/http/handlers"
	httpMW "github.com/hooklab-media/hooklab-backend/internal/http/middleware"
	"github.com/hooklab-media/hooklab-backend/internal/observability"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log     *logger.Logger
	Metrics *observability.Metrics

	HealthHandler   *httpH.HealthHandler
	RunHandler      *httpH.RunHandler
	OutlierHandler  *httpH.OutlierHandler
	ClusterHandler  *httpH.ClusterHandler
	LibraryHandler  *httpH.LibraryHandler
	EvidenceHandler *httpH.EvidenceHandler
	CurationHandler *httpH.CurationHandler
	RealtimeHandler *httpH.RealtimeHandler
	CoachingHandler *httpH.CoachingHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("hooklab-api"))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		if cfg.RunHandler != nil {
			api.POST("/runs", cfg.RunHandler.EnqueueRun)
			api.GET("/runs", cfg.RunHandler.ListRuns)
			api.GET("/runs/:id", cfg.RunHandler.GetRun)
			api.POST("/runs/:id/cancel", cfg.RunHandler.CancelRun)
			api.GET("/runs/:id/artifacts", cfg.RunHandler.ListRunArtifacts)
		}

		if cfg.OutlierHandler != nil {
			api.GET("/outliers", cfg.OutlierHandler.ListOutliers)
			api.GET("/outliers/:id", cfg.OutlierHandler.GetOutlier)
		}

		if cfg.ClusterHandler != nil {
			api.GET("/clusters", cfg.ClusterHandler.ListClusters)
			api.GET("/clusters/:id", cfg.ClusterHandler.GetCluster)
			api.GET("/clusters/:id/notebook", cfg.ClusterHandler.ListNotebook)
			api.GET("/clusters/:id/recurrences", cfg.ClusterHandler.ListRecurrences)
			api.GET("/clusters/:id/nodes", cfg.ClusterHandler.ListNodes)
			api.POST("/clusters/:id/card", cfg.ClusterHandler.RenderCard)
		}

		if cfg.LibraryHandler != nil {
			api.GET("/patterns", cfg.LibraryHandler.ListPatterns)
			api.GET("/patterns/:id", cfg.LibraryHandler.GetPattern)
			api.GET("/patterns/:id/revisions", cfg.LibraryHandler.ListPatternRevisions)
			api.GET("/patterns/:id/pack", cfg.LibraryHandler.GetLatestPack)
			api.GET("/patterns/:id/packs", cfg.LibraryHandler.ListPacks)
			api.GET("/packs/:id", cfg.LibraryHandler.GetPack)
		}

		if cfg.EvidenceHandler != nil {
			api.POST("/evidence/cycles", cfg.EvidenceHandler.StartCycle)
			api.GET("/evidence/events/:id", cfg.EvidenceHandler.GetEvent)
			api.GET("/evidence/events/:id/snapshot", cfg.EvidenceHandler.GetSnapshot)
			api.GET("/evidence/events/:id/decision", cfg.EvidenceHandler.GetDecision)
			api.POST("/evidence/events/:id/decision", cfg.EvidenceHandler.CreateManualDecision)
			api.GET("/nodes/:id/evidence/latest", cfg.EvidenceHandler.GetLatestForParent)
		}

		if cfg.CurationHandler != nil {
			api.GET("/curation/rules", cfg.CurationHandler.ListRules)
			api.PUT("/curation/rules", cfg.CurationHandler.UpsertRule)
		}

		if cfg.RealtimeHandler != nil {
			api.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
		}

		if cfg.CoachingHandler != nil {
			api.GET("/coach/sessions/:id/stream", cfg.CoachingHandler.Stream)
			api.POST("/coach/sessions/:id/upload", cfg.CoachingHandler.RecordUpload)
		}
	}

	return r
}
