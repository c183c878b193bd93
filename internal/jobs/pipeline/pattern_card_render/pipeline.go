package pattern_card_render

import (
	"fmt"

	jobrt "github.com/hooklab-media/hooklab-backend/internal/jobs/runtime"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Run == nil {
		return nil
	}
	clusterID, ok := jc.PayloadString("cluster_id")
	if !ok {
		jc.Fail("validate", fmt.Errorf("missing cluster_id"))
		return nil
	}

	jc.Progress("render", 30, "Rendering pattern card")
	url, err := p.cards.RenderClusterCard(dbctx.Context{Ctx: jc.Ctx}, clusterID)
	if err != nil {
		jc.Fail("render", err)
		return nil
	}

	jc.Succeed(map[string]any{
		"cluster_id": clusterID,
		"card_url":   url,
	})
	return nil
}
