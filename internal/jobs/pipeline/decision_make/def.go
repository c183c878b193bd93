package decision_make

import (
	"gorm.io/gorm"

	"github.com/hooklab-media/hooklab-backend/internal/data/repos"
	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
	"github.com/hooklab-media/hooklab-backend/internal/services"
)

type Pipeline struct {
	db        *gorm.DB
	log       *logger.Logger
	events    repos.EvidenceEventRepo
	snapshots repos.EvidenceSnapshotRepo
	priors    repos.PriorRepo
	loop      services.EvidenceLoopService
	llm       services.VisionLLMClient
}

// New wires the decision maker. llm may be nil; transcripts are then
// skipped.
func New(
	db *gorm.DB,
	baseLog *logger.Logger,
	events repos.EvidenceEventRepo,
	snapshots repos.EvidenceSnapshotRepo,
	priors repos.PriorRepo,
	loop services.EvidenceLoopService,
	llm services.VisionLLMClient,
) *Pipeline {
	return &Pipeline{
		db:        db,
		log:       baseLog.With("job", "decision_make"),
		events:    events,
		snapshots: snapshots,
		priors:    priors,
		loop:      loop,
		llm:       llm,
	}
}

func (p *Pipeline) Type() string { return types.RunTypeDecision }
