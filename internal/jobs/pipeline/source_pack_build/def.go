package source_pack_build

import (
	"gorm.io/gorm"

	"github.com/hooklab-media/hooklab-backend/internal/data/repos"
	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

type Pipeline struct {
	db        *gorm.DB
	log       *logger.Logger
	events    repos.EvidenceEventRepo
	decisions repos.DecisionRepo
	clusters  repos.ClusterRepo
	library   repos.LibraryRepo
	packs     repos.DirectorPackRepo
	arms      repos.BanditArmRepo
}

func New(
	db *gorm.DB,
	baseLog *logger.Logger,
	events repos.EvidenceEventRepo,
	decisions repos.DecisionRepo,
	clusters repos.ClusterRepo,
	library repos.LibraryRepo,
	packs repos.DirectorPackRepo,
	arms repos.BanditArmRepo,
) *Pipeline {
	return &Pipeline{
		db:        db,
		log:       baseLog.With("job", "source_pack_build"),
		events:    events,
		decisions: decisions,
		clusters:  clusters,
		library:   library,
		packs:     packs,
		arms:      arms,
	}
}

func (p *Pipeline) Type() string { return types.RunTypeSourcePack }
