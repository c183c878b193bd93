package pattern_card_render

import (
	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
	"github.com/hooklab-media/hooklab-backend/internal/services"
)

type Pipeline struct {
	log   *logger.Logger
	cards services.CardRenderService
}

func New(baseLog *logger.Logger, cards services.CardRenderService) *Pipeline {
	return &Pipeline{
		log:   baseLog.With("job", "pattern_card_render"),
		cards: cards,
	}
}

func (p *Pipeline) Type() string { return types.RunTypeCardRender }
