package observability

import (
	"context"
	"time"

	"github.com/hooklab-media/hooklab-backend/internal/data/repos"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

// StartQueueDepthPoller samples run counts by status every 30 s into the
// queue depth gauge. No-op when metrics are disabled.
func (m *Metrics) StartQueueDepthPoller(ctx context.Context, log *logger.Logger, runs repos.RunRepo) {
	if m == nil || runs == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				counts, err := runs.CountByStatus(dbctx.Context{Ctx: ctx})
				if err != nil {
					if log != nil {
						log.Warn("Queue depth sample failed", "error", err)
					}
					continue
				}
				for status, n := range counts {
					m.SetQueueDepth(status, n)
				}
			}
		}
	}()
}
