package app

import (
	"github.com/gin-gonic/gin"

	internalhttp "github.com/hooklab-media/hooklab-backend/internal/http"
	"github.com/hooklab-media/hooklab-backend/internal/observability"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, metrics *observability.Metrics, h Handlers) *gin.Engine {
	return internalhttp.NewRouter(internalhttp.RouterConfig{
		Log:     log,
		Metrics: metrics,

		HealthHandler:   h.Health,
		RunHandler:      h.Run,
		OutlierHandler:  h.Outlier,
		ClusterHandler:  h.Cluster,
		LibraryHandler:  h.Library,
		EvidenceHandler: h.Evidence,
		CurationHandler: h.Curation,
		RealtimeHandler: h.Realtime,
		CoachingHandler: h.Coaching,
	})
}
