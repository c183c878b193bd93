package crawl_ingest

import (
	"errors"
	"fmt"
	"os"

	"github.com/hooklab-media/hooklab-backend/internal/curation"
	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	jobrt "github.com/hooklab-media/hooklab-backend/internal/jobs/runtime"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/ids"
	"github.com/hooklab-media/hooklab-backend/internal/services"
)

const (
	defaultFetchLimit = 25
	defaultDailyLimit = 500
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Run == nil {
		return nil
	}
	dbc := dbctx.Context{Ctx: jc.Ctx}

	category, _ := jc.PayloadString("category")
	if category == "" {
		category = "general"
	}
	limit, ok := jc.PayloadInt("limit")
	if !ok || limit <= 0 {
		limit = defaultFetchLimit
	}
	dailyLimit, ok := jc.PayloadInt("daily_limit")
	if !ok || dailyLimit <= 0 {
		dailyLimit = defaultDailyLimit
	}

	sources := p.registry.All()
	if name, ok := jc.PayloadString("source"); ok {
		src, found := p.registry.Get(name)
		if !found {
			jc.Fail("sources", fmt.Errorf("unknown crawl source %q", name))
			return nil
		}
		sources = []services.CrawlSource{src}
	}
	if len(sources) == 0 {
		jc.Fail("sources", errors.New("no crawl sources registered"))
		return nil
	}

	jc.Progress("fetch", 10, fmt.Sprintf("Fetching from %d sources", len(sources)))

	var (
		rows      []*types.OutlierItem
		fetched   int
		malformed int
		throttled []string
	)
	for _, src := range sources {
		allowed, err := p.limiter.Allow(jc.Ctx, src.Platform(), int64(dailyLimit))
		if err != nil {
			p.log.Warn("Rate limit check failed, continuing", "platform", src.Platform(), "error", err)
		}
		if !allowed {
			throttled = append(throttled, src.Platform())
			continue
		}
		items, err := src.Fetch(jc.Ctx, category, limit)
		if err != nil {
			jc.Fail("fetch", fmt.Errorf("source %s: %w", src.Name(), err))
			return nil
		}
		fetched += len(items)
		for _, item := range items {
			row, err := services.ToOutlierItem(item)
			if err != nil {
				malformed++
				p.log.Warn("Dropping malformed crawl item",
					"source", src.Name(),
					"external_id", item.ExternalID,
					"error", err,
				)
				continue
			}
			rows = append(rows, row)
		}
	}

	jc.Progress("insert", 40, fmt.Sprintf("Inserting %d candidates", len(rows)))
	inserted, err := p.outliers.InsertIgnoreDupes(dbc, rows)
	if err != nil {
		jc.Fail("insert", err)
		return nil
	}

	jc.Progress("curate", 70, "Evaluating curation rules")
	promoted, rejected, campaigns, err := p.curate(jc, dbc, limit*len(sources))
	if err != nil {
		jc.Fail("curate", err)
		return nil
	}

	jc.Succeed(map[string]any{
		"category":  category,
		"sources":   len(sources),
		"fetched":   fetched,
		"malformed": malformed,
		"inserted":  inserted,
		"promoted":  promoted,
		"rejected":  rejected,
		"campaigns": campaigns,
		"throttled": throttled,
	})
	return nil
}

// curate runs every pending candidate through the active rule set. DB rules
// win; with none configured the YAML file is the fallback so a fresh deploy
// still curates.
func (p *Pipeline) curate(jc *jobrt.Context, dbc dbctx.Context, limit int) (promoted, rejected, campaigns int, err error) {
	rules, err := p.activeRules(dbc)
	if err != nil {
		return 0, 0, 0, err
	}
	if len(rules) == 0 {
		p.log.Warn("No curation rules active, candidates stay pending")
		return 0, 0, 0, nil
	}

	pending, err := p.outliers.ListByStatus(dbc, types.OutlierStatusPending, limit)
	if err != nil {
		return 0, 0, 0, err
	}
	for _, item := range pending {
		decision, matched := curation.Evaluate(rules, curation.Extract(item))
		if !matched {
			continue
		}
		switch decision.Action {
		case types.CurationActionPromote:
			if err := p.promote(dbc, item); err != nil {
				return promoted, rejected, campaigns, err
			}
			promoted++
		case types.CurationActionReject:
			if err := p.outliers.UpdateFields(dbc, item.ID, map[string]interface{}{
				"status": types.OutlierStatusRejected,
			}); err != nil {
				return promoted, rejected, campaigns, err
			}
			rejected++
		case types.CurationActionCampaign:
			if err := p.outliers.UpdateFields(dbc, item.ID, map[string]interface{}{
				"status": types.OutlierStatusSelected,
			}); err != nil {
				return promoted, rejected, campaigns, err
			}
			campaigns++
		default:
			return promoted, rejected, campaigns,
				fmt.Errorf("rule %s: unknown action %q", decision.RuleID, decision.Action)
		}
	}
	return promoted, rejected, campaigns, nil
}

func (p *Pipeline) activeRules(dbc dbctx.Context) ([]curation.Rule, error) {
	recs, err := p.rules.ListEnabled(dbc)
	if err != nil {
		return nil, err
	}
	rules := make([]curation.Rule, 0, len(recs))
	for _, rec := range recs {
		r, err := curation.ParseRule(rec)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	if len(rules) > 0 {
		return rules, nil
	}
	fileRules, err := curation.LoadFile(curation.RulesPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return fileRules, err
}

// promote mints a MASTER node for the candidate. The node id is
// deterministic over (platform, external_id), so a replayed curation pass
// reuses the identity instead of forking a twin.
func (p *Pipeline) promote(dbc dbctx.Context, item *types.OutlierItem) error {
	nodeID := ids.New("node", item.CreatedAt, item.Platform, item.ExternalID)
	existing, err := p.nodes.GetByNodeID(dbc, nodeID)
	if err != nil {
		return err
	}
	if existing == nil {
		sourceID := item.ID
		_, err = p.nodes.Create(dbc, []*types.PatternNode{{
			NodeID:          nodeID,
			Layer:           types.LayerMaster,
			GenealogyDepth:  0,
			Platform:        item.Platform,
			Title:           item.Title,
			ViewCount:       item.ViewCount,
			SourceOutlierID: &sourceID,
		}})
		if err != nil {
			return err
		}
	}
	return p.outliers.MarkPromoted(dbc, item.ID, nodeID)
}
