package evidence_snapshot_build

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/hooklab-media/hooklab-backend/internal/bayes"
	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	jobrt "github.com/hooklab-media/hooklab-backend/internal/jobs/runtime"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/ids"
)

const defaultPeriod = "4w"

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Run == nil {
		return nil
	}
	dbc := dbctx.Context{Ctx: jc.Ctx}

	eventID, ok := jc.PayloadUUID("event_id")
	if !ok {
		jc.Fail("validate", fmt.Errorf("missing event_id"))
		return nil
	}
	period, _ := jc.PayloadString("period")
	if period == "" {
		period = defaultPeriod
	}
	window, err := parsePeriod(period)
	if err != nil {
		jc.Fail("validate", err)
		return nil
	}

	event, err := p.events.GetByID(dbc, eventID)
	if err != nil {
		jc.Fail("load", err)
		return nil
	}
	if event == nil {
		jc.Fail("load", fmt.Errorf("evidence event %s not found", eventID))
		return nil
	}

	switch event.Status {
	case types.EvidenceQueued:
		if event, err = p.loop.Advance(dbc, event.ID, types.EvidenceQueued, types.EvidenceRunning); err != nil {
			jc.Fail("advance", err)
			return nil
		}
	case types.EvidenceRunning:
		// claimed earlier, resume the build
	case types.EvidenceEvidenceReady:
		jc.Succeed(map[string]any{"event_id": event.EventID, "noop": true})
		return nil
	default:
		jc.Fail("state", fmt.Errorf("event %s is %s, cannot build a snapshot", event.EventID, event.Status))
		return nil
	}

	unlock := p.lockParent(event.ParentNodeID)
	defer unlock()

	jc.Progress("aggregate", 30, "Aggregating child evidence")

	now := time.Now().UTC()
	rows, err := p.evidence.ListForParentSince(dbc, event.ParentNodeID, now.Add(-window))
	if err != nil {
		jc.Fail("aggregate", err)
		return nil
	}

	summary, top, samples := reduce(rows)
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		jc.Fail("aggregate", err)
		return nil
	}

	patternID, belief, folded := p.fold(dbc, event.ParentNodeID, rows)

	snapshot := &types.EvidenceSnapshot{
		SnapshotID:         ids.New("snap", now, event.EventID, period),
		EventID:            event.ID,
		ParentNodeID:       event.ParentNodeID,
		Period:             period,
		Depth1Summary:      datatypes.JSON(summaryJSON),
		TopMutationType:    top.mutationType,
		TopMutationPattern: top.pattern,
		TopMutationRate:    top.rate,
		SampleCount:        samples,
		Confidence:         belief.Probability,
	}
	if _, err := p.loop.AttachSnapshot(dbc, event.ID, snapshot); err != nil {
		jc.Fail("attach", err)
		return nil
	}

	// Prior persistence is write-behind: the snapshot already carries the
	// confidence, so a failed upsert only delays the durable belief.
	if patternID != "" {
		if err := p.priors.Upsert(dbc, patternID, belief.Probability, belief.SampleSize); err != nil {
			p.log.Warn("Prior upsert failed", "pattern_id", patternID, "error", err)
		}
	}
	if len(folded) > 0 {
		if err := p.evidence.MarkApplied(dbc, folded); err != nil {
			p.log.Warn("Marking evidence applied failed", "count", len(folded), "error", err)
		}
	}

	jc.Succeed(map[string]any{
		"event_id":     event.EventID,
		"snapshot_id":  snapshot.SnapshotID,
		"sample_count": samples,
		"confidence":   belief.Probability,
		"top_mutation": top.mutationType + "/" + top.pattern,
	})
	return nil
}

type topCell struct {
	mutationType string
	pattern      string
	rate         float64
	samples      int
}

// reduce folds evidence rows into the depth-1 summary. Unknown outcomes are
// excluded entirely; a cell's rate is successes over decided outcomes. The
// argmax breaks ties toward the larger sample, then lexically, so a replay
// denormalizes the same top cell.
func reduce(rows []*types.PatternEvidence) (map[string]map[string]types.MutationStat, topCell, int) {
	type tally struct{ success, total int }
	cells := make(map[string]map[string]*tally)
	for _, row := range rows {
		if row.Outcome == types.OutcomeUnknown || row.MutationType == "" {
			continue
		}
		byPattern, ok := cells[row.MutationType]
		if !ok {
			byPattern = make(map[string]*tally)
			cells[row.MutationType] = byPattern
		}
		t, ok := byPattern[row.MutationPattern]
		if !ok {
			t = &tally{}
			byPattern[row.MutationPattern] = t
		}
		t.total++
		if row.Outcome == types.OutcomeSuccess {
			t.success++
		}
	}

	summary := make(map[string]map[string]types.MutationStat, len(cells))
	var top topCell
	total := 0
	mutationTypes := make([]string, 0, len(cells))
	for mt := range cells {
		mutationTypes = append(mutationTypes, mt)
	}
	sort.Strings(mutationTypes)
	for _, mt := range mutationTypes {
		byPattern := cells[mt]
		patterns := make([]string, 0, len(byPattern))
		for pat := range byPattern {
			patterns = append(patterns, pat)
		}
		sort.Strings(patterns)
		summary[mt] = make(map[string]types.MutationStat, len(byPattern))
		for _, pat := range patterns {
			t := byPattern[pat]
			rate := float64(t.success) / float64(t.total)
			summary[mt][pat] = types.MutationStat{SuccessRate: rate, SampleCount: t.total}
			total += t.total
			if rate > top.rate || (rate == top.rate && t.total > top.samples) {
				top = topCell{mutationType: mt, pattern: pat, rate: rate, samples: t.total}
			}
		}
	}
	return summary, top, total
}

// fold updates the Bayesian belief with every row not yet applied, starting
// from the persisted prior. Returns the pattern id, the resulting belief,
// and the ids folded in so the caller can mark them applied.
func (p *Pipeline) fold(dbc dbctx.Context, parentNodeID string, rows []*types.PatternEvidence) (string, bayes.Belief, []uuid.UUID) {
	patternID := ""
	for _, row := range rows {
		if row.PatternID != "" {
			patternID = row.PatternID
			break
		}
	}
	if patternID == "" {
		patternID = parentNodeID
	}

	belief := bayes.Belief{PatternID: patternID, Probability: 0.5}
	if prior, err := p.priors.Get(dbc, patternID); err == nil && prior != nil {
		belief.Probability = prior.PSuccess
		belief.SampleSize = prior.SampleCount
	}

	var folded []uuid.UUID
	for _, row := range rows {
		if row.Applied {
			continue
		}
		belief.Probability = bayes.Posterior(belief.Probability, bayes.Evidence{
			Outcome:         row.Outcome,
			ProofScore:      row.ProofStrength,
			EvidenceCost:    row.CostPaid,
			EngagementDelta: row.EngagementRate,
		})
		if row.Outcome != types.OutcomeUnknown {
			belief.SampleSize++
		}
		folded = append(folded, row.ID)
	}
	return patternID, belief, folded
}

// parsePeriod accepts Nw / Nd shorthand or any Go duration string.
func parsePeriod(period string) (time.Duration, error) {
	if n, err := strconv.Atoi(strings.TrimSuffix(period, "w")); err == nil && strings.HasSuffix(period, "w") {
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	}
	if n, err := strconv.Atoi(strings.TrimSuffix(period, "d")); err == nil && strings.HasSuffix(period, "d") {
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(period)
	if err != nil {
		return 0, fmt.Errorf("bad period %q: %w", period, err)
	}
	return d, nil
}
