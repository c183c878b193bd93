package app

import (
	httpH "github.com/hooklab-media/hooklab-backend/internal/http/handlers"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
	"github.com/hooklab-media/hooklab-backend/internal/realtime"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Run      *httpH.RunHandler
	Outlier  *httpH.OutlierHandler
	Cluster  *httpH.ClusterHandler
	Library  *httpH.LibraryHandler
	Evidence *httpH.EvidenceHandler
	Curation *httpH.CurationHandler
	Realtime *httpH.RealtimeHandler
	Coaching *httpH.CoachingHandler
}

func wireHandlers(log *logger.Logger, s Services, r Repos, hub *realtime.Hub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(),
		Run:      httpH.NewRunHandler(s.Run, r.Run, r.Artifact),
		Outlier:  httpH.NewOutlierHandler(r.OutlierItem),
		Cluster:  httpH.NewClusterHandler(r.Cluster, r.Notebook, r.RecurrenceLink, r.Node, s.CardRender),
		Library:  httpH.NewLibraryHandler(r.Library, r.DirectorPack),
		Evidence: httpH.NewEvidenceHandler(s.EvidenceLoop, s.Run, r.EvidenceEvent, r.EvidenceSnapshot, r.Decision),
		Curation: httpH.NewCurationHandler(r.CurationRule),
		Realtime: httpH.NewRealtimeHandler(log, hub),
		Coaching: httpH.NewCoachingHandler(log, s.Coaching, s.PackUpdater, s.Run),
	}
}
