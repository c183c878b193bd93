package vdg_analysis

import (
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	jobrt "github.com/hooklab-media/hooklab-backend/internal/jobs/runtime"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/vdg"
)

const (
	defaultBatchLimit    = 10
	defaultConcurrency   = 4
	defaultPromptVersion = "p3"
	defaultSchemaVersion = "v3.6"
)

type counters struct {
	mu        sync.Mutex
	analyzed  int
	proofed   int
	flagged   int
	rejected  int
	retriable int
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
	concurrency, ok := jc.PayloadInt("concurrency")
	if !ok || concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	promptVersion, _ := jc.PayloadString("prompt_version")
	if promptVersion == "" {
		promptVersion = defaultPromptVersion
	}
	schemaVersion, _ := jc.PayloadString("schema_version")
	if schemaVersion == "" {
		schemaVersion = defaultSchemaVersion
	}

	items, err := p.outliers.ListForAnalysis(dbc, limit)
	if err != nil {
		jc.Fail("list", err)
		return nil
	}
	if len(items) == 0 {
		jc.Succeed(map[string]any{"analyzed": 0, "noop": true})
		return nil
	}

	for _, item := range items {
		if err := p.outliers.UpdateFields(dbc, item.ID, map[string]interface{}{
			"analysis_status": types.AnalysisAnalyzing,
		}); err != nil {
			jc.Fail("claim", err)
			return nil
		}
	}

	jc.Progress("analyze", 20, fmt.Sprintf("Analyzing %d videos", len(items)))

	var c counters
	g, gctx := errgroup.WithContext(jc.Ctx)
	g.SetLimit(concurrency)
	for _, item := range items {
		item := item
		g.Go(func() error {
			return p.analyzeOne(dbctx.Context{Ctx: gctx}, item, promptVersion, schemaVersion, &c)
		})
	}
	if err := g.Wait(); err != nil {
		jc.Fail("analyze", err)
		return nil
	}

	jc.Succeed(map[string]any{
		"analyzed":       c.analyzed,
		"proof_ready":    c.proofed,
		"proof_flagged":  c.flagged,
		"rejected":       c.rejected,
		"retriable":      c.retriable,
		"prompt_version": promptVersion,
		"schema_version": schemaVersion,
	})
	return nil
}

// analyzeOne calls the vision model for one promoted outlier and stores the
// verdict on its node. Provider failures put the item back to approved for
// the next batch; contract violations are terminal for the item. The proof
// gate is fail-soft: a flagged analysis is still stored, with issues.
func (p *Pipeline) analyzeOne(dbc dbctx.Context, item *types.OutlierItem, promptVersion, schemaVersion string, c *counters) error {
	if item.PromotedToNodeID == "" {
		p.log.Warn("Promoted item has no node, skipping", "outlier_id", item.ID)
		return p.outliers.UpdateFields(dbc, item.ID, map[string]interface{}{
			"analysis_status": types.AnalysisSkipped,
		})
	}

	raw, err := p.llm.AnalyzeVideo(dbc.Ctx, item.VideoURL, promptVersion, schemaVersion)
	if err != nil {
		p.log.Warn("Vision analysis failed, requeueing item",
			"outlier_id", item.ID,
			"error", err,
		)
		c.mu.Lock()
		c.retriable++
		c.mu.Unlock()
		return p.outliers.UpdateFields(dbc, item.ID, map[string]interface{}{
			"analysis_status": types.AnalysisApproved,
		})
	}

	doc, err := vdg.Decode(raw)
	if err == nil {
		_, err = vdg.ValidateContract(doc)
	}
	if err != nil {
		p.log.Warn("Analysis violates the VDG contract",
			"outlier_id", item.ID,
			"error", err,
		)
		c.mu.Lock()
		c.rejected++
		c.mu.Unlock()
		return p.outliers.UpdateFields(dbc, item.ID, map[string]interface{}{
			"analysis_status": types.AnalysisSkipped,
		})
	}

	gate := vdg.ProofGate(doc)
	updates := map[string]interface{}{
		"gemini_analysis": datatypes.JSON(raw),
		"schema_version":  doc.SchemaVersion,
		"proof_ready":     gate.ProofReady,
	}
	if len(gate.Issues) > 0 {
		issues, merr := json.Marshal(gate.Issues)
		if merr != nil {
			return merr
		}
		updates["proof_issues"] = datatypes.JSON(issues)
	}
	if err := p.nodes.UpdateFieldsByNodeID(dbc, item.PromotedToNodeID, updates); err != nil {
		return err
	}
	if err := p.outliers.UpdateFields(dbc, item.ID, map[string]interface{}{
		"analysis_status": types.AnalysisCompleted,
	}); err != nil {
		return err
	}

	c.mu.Lock()
	c.analyzed++
	if gate.ProofReady {
		c.proofed++
	} else {
		c.flagged++
	}
	c.mu.Unlock()
	return nil
}
