package vdg_analysis

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
	outliers repos.OutlierItemRepo
	nodes    repos.NodeRepo
	llm      services.VisionLLMClient
}

func New(
	db *gorm.DB,
	baseLog *logger.Logger,
	outliers repos.OutlierItemRepo,
	nodes repos.NodeRepo,
	llm services.VisionLLMClient,
) *Pipeline {
	return &Pipeline{
		db:       db,
		log:      baseLog.With("job", "vdg_analysis"),
		outliers: outliers,
		nodes:    nodes,
		llm:      llm,
	}
}

func (p *Pipeline) Type() string { return types.RunTypeAnalysis }
