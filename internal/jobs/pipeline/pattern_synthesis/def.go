package pattern_synthesis

import (
	"gorm.io/gorm"

	"github.com/hooklab-media/hooklab-backend/internal/data/repos"
	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

type Pipeline struct {
	db       *gorm.DB
	log      *logger.Logger
	links    repos.RecurrenceLinkRepo
	clusters repos.ClusterRepo
	library  repos.LibraryRepo
}

func New(
	db *gorm.DB,
	baseLog *logger.Logger,
	links repos.RecurrenceLinkRepo,
	clusters repos.ClusterRepo,
	library repos.LibraryRepo,
) *Pipeline {
	return &Pipeline{
		db:       db,
		log:      baseLog.With("job", "pattern_synthesis"),
		links:    links,
		clusters: clusters,
		library:  library,
	}
}

func (p *Pipeline) Type() string { return types.RunTypePatternSynthesis }
