package evidence_snapshot_build

import (
	"sync"

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
	loop      services.EvidenceLoopService
	evidence  repos.PatternEvidenceRepo
	priors    repos.PriorRepo
	parentsMu sync.Map
}

func New(
	db *gorm.DB,
	baseLog *logger.Logger,
	events repos.EvidenceEventRepo,
	loop services.EvidenceLoopService,
	evidence repos.PatternEvidenceRepo,
	priors repos.PriorRepo,
) *Pipeline {
	return &Pipeline{
		db:       db,
		log:      baseLog.With("job", "evidence_snapshot_build"),
		events:   events,
		loop:     loop,
		evidence: evidence,
		priors:   priors,
	}
}

func (p *Pipeline) Type() string { return types.RunTypeEvidence }

// lockParent serializes snapshot builds per parent node. Runs for different
// parents proceed in parallel; two runs for the same parent queue behind one
// mutex so the reducer never races itself.
func (p *Pipeline) lockParent(parentNodeID string) func() {
	v, _ := p.parentsMu.LoadOrStore(parentNodeID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
