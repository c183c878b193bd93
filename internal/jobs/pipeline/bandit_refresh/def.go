package bandit_refresh

import (
	"gorm.io/gorm"

	"github.com/hooklab-media/hooklab-backend/internal/data/repos"
	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

type Pipeline struct {
	db       *gorm.DB
	log      *logger.Logger
	evidence repos.PatternEvidenceRepo
	arms     repos.BanditArmRepo
}

func New(db *gorm.DB, baseLog *logger.Logger, evidence repos.PatternEvidenceRepo, arms repos.BanditArmRepo) *Pipeline {
	return &Pipeline{
		db:       db,
		log:      baseLog.With("job", "bandit_refresh"),
		evidence: evidence,
		arms:     arms,
	}
}

func (p *Pipeline) Type() string { return types.RunTypeBandit }
