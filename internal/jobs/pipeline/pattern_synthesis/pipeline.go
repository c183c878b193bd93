package pattern_synthesis

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/hooklab-media/hooklab-backend/internal/cluster"
	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	jobrt "github.com/hooklab-media/hooklab-backend/internal/jobs/runtime"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/ids"
	"github.com/hooklab-media/hooklab-backend/internal/vdg"
)

const defaultLinkLimit = 50

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Run == nil {
		return nil
	}
	dbc := dbctx.Context{Ctx: jc.Ctx}

	limit, ok := jc.PayloadInt("limit")
	if !ok || limit <= 0 {
		limit = defaultLinkLimit
	}

	confirmed, err := p.links.ListByStatus(dbc, types.RecurrenceConfirmed, limit)
	if err != nil {
		jc.Fail("list", err)
		return nil
	}
	if len(confirmed) == 0 {
		jc.Succeed(map[string]any{"synthesized": 0, "noop": true})
		return nil
	}

	jc.Progress("synthesize", 30, fmt.Sprintf("Folding %d confirmed links", len(confirmed)))

	// One revision per pattern per run; the strongest link for a lineage
	// wins so a batch with several sightings doesn't stack revisions.
	best := make(map[string]*types.PatternRecurrenceLink)
	origins := make(map[string]string)
	for _, link := range confirmed {
		anc, err := p.clusters.GetByClusterID(dbc, link.ClusterIDAncestor)
		if err != nil {
			jc.Fail("synthesize", err)
			return nil
		}
		if anc == nil {
			p.log.Warn("Confirmed link points at a missing ancestor", "cluster_id", link.ClusterIDAncestor)
			continue
		}
		origin := anc.OriginClusterID
		if origin == "" {
			origin = anc.ClusterID
		}
		patternID := "pat_" + ids.Fingerprint(origin)
		if cur, ok := best[patternID]; !ok || link.RecurrenceScore > cur.RecurrenceScore {
			best[patternID] = link
			origins[patternID] = origin
		}
	}

	synthesized := 0
	for patternID, link := range best {
		if err := p.synthesize(dbc, patternID, link); err != nil {
			jc.Fail("synthesize", fmt.Errorf("pattern %s: %w", patternID, err))
			return nil
		}
		synthesized++
		p.log.Info("Library revision appended from recurrence",
			"pattern_id", patternID,
			"origin_cluster", origins[patternID],
			"current_cluster", link.ClusterIDCurrent,
			"score", link.RecurrenceScore,
		)
	}

	jc.Succeed(map[string]any{
		"confirmed_links": len(confirmed),
		"synthesized":     synthesized,
	})
	return nil
}

// synthesize appends a library revision whose invariant rules keep only the
// DNA features the recurrence proved stable across the lineage.
func (p *Pipeline) synthesize(dbc dbctx.Context, patternID string, link *types.PatternRecurrenceLink) error {
	current, err := p.clusters.GetByClusterID(dbc, link.ClusterIDCurrent)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("current cluster %s not found", link.ClusterIDCurrent)
	}
	dna, err := vdg.NormalizeRaw(current.CentroidDNA)
	if err != nil {
		return fmt.Errorf("cluster %s centroid: %w", current.ClusterID, err)
	}

	invariants := map[string]any{}
	if link.HookGenomeSim >= cluster.RecurrenceHookMin {
		invariants["hook_type"] = dna.Hook.Type
	}
	if link.MicrobeatSim >= cluster.RecurrenceMicrobeatMin {
		invariants["microbeat_sequence"] = dna.MicrobeatSequence
	}
	if link.AudioFormatSim >= cluster.RecurrenceAudioMin {
		invariants["audio_trending"] = dna.AudioFlags.IsTrending
	}
	rulesJSON, err := json.Marshal(invariants)
	if err != nil {
		return err
	}
	strategyJSON, err := json.Marshal(map[string]any{
		"derived_from": "recurrence",
		"ancestor":     link.ClusterIDAncestor,
		"subscores": map[string]float64{
			"microbeat":    link.MicrobeatSim,
			"hook_genome":  link.HookGenomeSim,
			"focus_window": link.FocusWindowSim,
			"audio_format": link.AudioFormatSim,
		},
	})
	if err != nil {
		return err
	}

	head, err := p.library.GetLatest(dbc, patternID)
	if err != nil {
		return err
	}
	_, err = p.library.AppendRevision(dbc, &types.PatternLibraryEntry{
		PatternID:        patternID,
		ClusterID:        current.ClusterID,
		TemporalPhase:    nextPhase(head),
		InvariantRules:   datatypes.JSON(rulesJSON),
		MutationStrategy: datatypes.JSON(strategyJSON),
		ConfidenceScore:  link.RecurrenceScore,
		SampleCount:      link.EvidenceCount,
	})
	return err
}

// nextPhase advances the temporal phase one rung per confirmed recurrence;
// T4 is terminal.
func nextPhase(head *types.PatternLibraryEntry) string {
	if head == nil {
		return types.PhaseT1
	}
	switch head.TemporalPhase {
	case types.PhaseT0:
		return types.PhaseT1
	case types.PhaseT1:
		return types.PhaseT2
	case types.PhaseT2:
		return types.PhaseT3
	default:
		return types.PhaseT4
	}
}
