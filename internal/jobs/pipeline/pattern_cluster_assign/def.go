package pattern_cluster_assign

import (
	"gorm.io/gorm"

	"github.com/hooklab-media/hooklab-backend/internal/data/repos"
	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
	"github.com/hooklab-media/hooklab-backend/internal/services"
)

type Pipeline struct {
	db       *gorm.DB
	log      *logger.Logger
	nodes    repos.NodeRepo
	clusters repos.ClusterRepo
	outliers repos.OutlierItemRepo
	notebook repos.NotebookRepo
	links    repos.RecurrenceLinkRepo
	graph    services.GraphProjectionService
}

func New(
	db *gorm.DB,
	baseLog *logger.Logger,
	nodes repos.NodeRepo,
	clusters repos.ClusterRepo,
	outliers repos.OutlierItemRepo,
	notebook repos.NotebookRepo,
	links repos.RecurrenceLinkRepo,
	graph services.GraphProjectionService,
) *Pipeline {
	return &Pipeline{
		db:       db,
		log:      baseLog.With("job", "pattern_cluster_assign"),
		nodes:    nodes,
		clusters: clusters,
		outliers: outliers,
		notebook: notebook,
		links:    links,
		graph:    graph,
	}
}

func (p *Pipeline) Type() string { return types.RunTypeClustering }
