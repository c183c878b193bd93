package crawl_ingest

import (
	"gorm.io/gorm"

	"github.com/hooklab-media/hooklab-backend/internal/data/repos"
	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
	"github.com/hooklab-media/hooklab-backend/internal/platform/ratelimit"
	"github.com/hooklab-media/hooklab-backend/internal/services"
)

type Pipeline struct {
	db       *gorm.DB
	log      *logger.Logger
	registry *services.SourceRegistry
	outliers repos.OutlierItemRepo
	rules    repos.CurationRuleRepo
	nodes    repos.NodeRepo
	limiter  *ratelimit.Limiter
}

func New(
	db *gorm.DB,
	baseLog *logger.Logger,
	registry *services.SourceRegistry,
	outliers repos.OutlierItemRepo,
	rules repos.CurationRuleRepo,
	nodes repos.NodeRepo,
	limiter *ratelimit.Limiter,
) *Pipeline {
	return &Pipeline{
		db:       db,
		log:      baseLog.With("job", "crawl_ingest"),
		registry: registry,
		outliers: outliers,
		rules:    rules,
		nodes:    nodes,
		limiter:  limiter,
	}
}

func (p *Pipeline) Type() string { return types.RunTypeCrawler }
