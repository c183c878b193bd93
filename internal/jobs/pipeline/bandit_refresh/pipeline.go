package bandit_refresh

import (
	"fmt"
	"time"

	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	jobrt "github.com/hooklab-media/hooklab-backend/internal/jobs/runtime"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
)

const (
	defaultWindowHours = 168
	defaultRowLimit    = 500
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Run == nil {
		return nil
	}
	dbc := dbctx.Context{Ctx: jc.Ctx}

	hours, ok := jc.PayloadInt("window_hours")
	if !ok || hours <= 0 {
		hours = defaultWindowHours
	}
	limit, ok := jc.PayloadInt("limit")
	if !ok || limit <= 0 {
		limit = defaultRowLimit
	}
	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)

	rows, err := p.evidence.ListMeasuredSince(dbc, since, limit)
	if err != nil {
		jc.Fail("list", err)
		return nil
	}
	if len(rows) == 0 {
		jc.Succeed(map[string]any{"recorded": 0, "noop": true})
		return nil
	}

	jc.Progress("record", 30, fmt.Sprintf("Folding %d outcomes into arms", len(rows)))

	recorded, skipped := 0, 0
	for _, row := range rows {
		if row.MutationType == "" || row.Outcome == types.OutcomeUnknown {
			skipped++
			continue
		}
		success := row.Outcome == types.OutcomeSuccess
		if err := p.arms.RecordOutcome(dbc, row.PatternID, row.MutationType, row.MutationPattern, success); err != nil {
			jc.Fail("record", fmt.Errorf("arm %s/%s/%s: %w", row.PatternID, row.MutationType, row.MutationPattern, err))
			return nil
		}
		recorded++
	}

	jc.Succeed(map[string]any{
		"window_hours": hours,
		"recorded":     recorded,
		"skipped":      skipped,
	})
	return nil
}
