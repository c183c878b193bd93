package pattern_cluster_assign

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/hooklab-media/hooklab-backend/internal/cluster"
	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	jobrt "github.com/hooklab-media/hooklab-backend/internal/jobs/runtime"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/vdg"
)

const (
	defaultBatchLimit  = 50
	candidateScanLimit = 500
)

// known is one existing cluster with its centroid already decoded, so a
// batch doesn't re-parse the same jsonb for every node it assigns.
type known struct {
	rec *types.PatternCluster
	dna vdg.NormalizedDNA
}

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Run == nil {
		return nil
	}
	dbc := dbctx.Context{Ctx: jc.Ctx}

	limit, ok := jc.PayloadInt("limit")
	if !ok || limit <= 0 {
		limit = defaultBatchLimit
	}

	unclustered, err := p.nodes.ListUnclustered(dbc, limit)
	if err != nil {
		jc.Fail("list", err)
		return nil
	}
	if len(unclustered) == 0 {
		jc.Succeed(map[string]any{"assigned": 0, "noop": true})
		return nil
	}

	existing, err := p.loadKnown(dbc)
	if err != nil {
		jc.Fail("candidates", err)
		return nil
	}

	var assigned, created, recurrences, skipped int
	for i, node := range unclustered {
		jc.Progress("assign", 10+80*i/len(unclustered), fmt.Sprintf("Assigning node %s", node.NodeID))
		res, err := p.assignOne(dbc, node, &existing)
		if err != nil {
			jc.Fail("assign", fmt.Errorf("node %s: %w", node.NodeID, err))
			return nil
		}
		switch {
		case res.skipped:
			skipped++
		case res.created:
			created++
			assigned++
		default:
			assigned++
		}
		recurrences += res.recurrences
	}

	jc.Succeed(map[string]any{
		"assigned":    assigned,
		"created":     created,
		"recurrences": recurrences,
		"skipped":     skipped,
	})
	return nil
}

func (p *Pipeline) loadKnown(dbc dbctx.Context) ([]known, error) {
	recs, err := p.clusters.ListAll(dbc, candidateScanLimit)
	if err != nil {
		return nil, err
	}
	out := make([]known, 0, len(recs))
	for _, rec := range recs {
		if len(rec.CentroidDNA) == 0 {
			continue
		}
		dna, err := vdg.NormalizeRaw(rec.CentroidDNA)
		if err != nil {
			p.log.Warn("Cluster centroid does not decode, excluded from matching",
				"cluster_id", rec.ClusterID,
				"error", err,
			)
			continue
		}
		out = append(out, known{rec: rec, dna: dna})
	}
	return out, nil
}

type assignResult struct {
	skipped     bool
	created     bool
	recurrences int
}

func (p *Pipeline) assignOne(dbc dbctx.Context, node *types.PatternNode, existing *[]known) (assignResult, error) {
	if len(node.GeminiAnalysis) == 0 {
		return assignResult{skipped: true}, nil
	}
	dna, err := vdg.NormalizeRaw(node.GeminiAnalysis)
	if err != nil {
		p.log.Warn("Node DNA does not normalize, skipping", "node_id", node.NodeID, "error", err)
		return assignResult{skipped: true}, nil
	}
	score, err := p.outlierScore(dbc, node)
	if err != nil {
		return assignResult{}, err
	}

	candidates := make([]cluster.Candidate, 0, len(*existing))
	for _, k := range *existing {
		if k.rec.PatternType != dna.PatternType {
			continue
		}
		if k.rec.Platform != "" && node.Platform != "" && k.rec.Platform != node.Platform {
			continue
		}
		candidates = append(candidates, cluster.Candidate{
			ClusterID:   k.rec.ClusterID,
			MemberCount: k.rec.MemberCount,
			CreatedAt:   k.rec.CreatedAt,
			DNA:         k.dna,
		})
	}

	res := assignResult{}
	match, found := cluster.BestMatch(dna, candidates, cluster.AssignThreshold)
	clusterID := match.ClusterID
	if found {
		if err := p.clusters.AddMember(dbc, clusterID, score); err != nil {
			return res, err
		}
	} else {
		newID, rec, err := p.createCluster(dbc, node, dna, score, *existing)
		if err != nil {
			return res, err
		}
		clusterID = newID
		res.created = true
		*existing = append(*existing, known{rec: rec, dna: dna})
	}

	if err := p.nodes.UpdateFieldsByNodeID(dbc, node.NodeID, map[string]interface{}{
		"cluster_id": clusterID,
	}); err != nil {
		return res, err
	}

	dnaJSON, err := json.Marshal(dna)
	if err != nil {
		return res, err
	}
	if err := p.notebook.UpsertByNodeID(dbc, &types.NotebookEntry{
		ClusterID:    clusterID,
		NodeID:       node.NodeID,
		Platform:     node.Platform,
		Title:        node.Title,
		DNA:          datatypes.JSON(dnaJSON),
		OutlierScore: score,
		ProofReady:   node.ProofReady,
	}); err != nil {
		return res, err
	}

	res.recurrences, err = p.linkRecurrences(dbc, clusterID, dna, *existing)
	if err != nil {
		return res, err
	}

	if node.ParentNodeID != "" {
		p.graph.ProjectNodeFork(dbc.Ctx, node.NodeID, node.ParentNodeID, node.GenealogyDepth, node.Layer)
	}
	return res, nil
}

// createCluster mints a deterministic cluster identity from the founding
// DNA. If an older cluster qualifies as this one's ancestor the lineage is
// recorded on the row, and the origin is inherited so the whole descent
// chain shares one origin id.
func (p *Pipeline) createCluster(dbc dbctx.Context, node *types.PatternNode, dna vdg.NormalizedDNA, score float64, existing []known) (string, *types.PatternCluster, error) {
	clusterID, err := cluster.NewClusterID(dna, node.CreatedAt)
	if err != nil {
		return "", nil, err
	}

	var (
		ancestor     *types.PatternCluster
		ancestorSubs cluster.Subscores
	)
	for _, k := range existing {
		subs := cluster.CompareForRecurrence(dna, k.dna)
		if !subs.QualifiesAsRecurrence() {
			continue
		}
		if ancestor == nil || subs.Score() > ancestorSubs.Score() {
			ancestor = k.rec
			ancestorSubs = subs
		}
	}

	centroid, err := json.Marshal(dna)
	if err != nil {
		return "", nil, err
	}
	rec := &types.PatternCluster{
		ClusterID:       clusterID,
		ClusterName:     clusterName(dna),
		PatternType:     dna.PatternType,
		Platform:        node.Platform,
		MemberCount:     1,
		AvgOutlierScore: score,
		OriginClusterID: clusterID,
		CentroidDNA:     datatypes.JSON(centroid),
	}
	if ancestor != nil {
		rec.AncestorClusterID = ancestor.ClusterID
		rec.OriginClusterID = ancestor.OriginClusterID
		if rec.OriginClusterID == "" {
			rec.OriginClusterID = ancestor.ClusterID
		}
	}
	created, err := p.clusters.Create(dbc, rec)
	if err != nil {
		return "", nil, err
	}
	if created != nil {
		rec = created
	}
	if ancestor != nil {
		p.graph.ProjectClusterDescent(dbc.Ctx, clusterID, ancestor.ClusterID, ancestorSubs.Score())
	}
	return clusterID, rec, nil
}

// linkRecurrences compares the node's DNA against every other known cluster
// and records qualifying links current -> ancestor. RecordObservation
// increments evidence on an existing pair, so re-sightings accumulate toward
// auto-confirmation instead of duplicating edges.
func (p *Pipeline) linkRecurrences(dbc dbctx.Context, clusterID string, dna vdg.NormalizedDNA, existing []known) (int, error) {
	now := time.Now().UTC()
	count := 0
	for _, k := range existing {
		if k.rec.ClusterID == clusterID {
			continue
		}
		subs := cluster.CompareForRecurrence(dna, k.dna)
		if !subs.QualifiesAsRecurrence() {
			continue
		}
		score := subs.Score()
		if _, err := p.links.RecordObservation(dbc, &types.PatternRecurrenceLink{
			ClusterIDCurrent:  clusterID,
			ClusterIDAncestor: k.rec.ClusterID,
			Status:            types.RecurrenceCandidate,
			MicrobeatSim:      subs.Microbeat,
			HookGenomeSim:     subs.HookGenome,
			FocusWindowSim:    subs.FocusWindow,
			AudioFormatSim:    subs.AudioFormat,
			RecurrenceScore:   score,
			FirstSeenAt:       now,
			LastSeenAt:        now,
		}); err != nil {
			return count, err
		}
		if err := p.clusters.RecordRecurrence(dbc, k.rec.ClusterID, score, now); err != nil {
			return count, err
		}
		p.graph.ProjectRecurrence(dbc.Ctx, k.rec.ClusterID, clusterID, score)
		count++
	}
	return count, nil
}

// outlierScore pulls the crawler-scale score from the node's source item;
// nodes minted outside the crawl path score zero and simply don't move the
// cluster average much.
func (p *Pipeline) outlierScore(dbc dbctx.Context, node *types.PatternNode) (float64, error) {
	if node.SourceOutlierID == nil {
		return 0, nil
	}
	item, err := p.outliers.GetByID(dbc, *node.SourceOutlierID)
	if err != nil || item == nil {
		return 0, err
	}
	return item.OutlierScore, nil
}

func clusterName(dna vdg.NormalizedDNA) string {
	if dna.Hook.Type == "" {
		return dna.PatternType
	}
	return dna.PatternType + "/" + dna.Hook.Type
}
