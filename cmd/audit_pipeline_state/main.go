package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/hooklab-media/hooklab-backend/internal/data/repos"
	"github.com/hooklab-media/hooklab-backend/internal/data/db"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/platform/envutil"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

// Audits stored state for invariant drift: promoted outliers without a
// node, child nodes whose parent is gone, and clusters whose members mix
// the multiplier score scale with percent-above-median CSV imports.
func main() {
	limit := flag.Int("limit", 500, "max rows to inspect per check")
	failOnIssue := flag.Bool("fail-on-issue", false, "exit non-zero when any check finds issues")
	flag.Parse()

	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	theDB := pg.DB()
	outliers := repos.NewOutlierItemRepo(theDB, log)
	nodes := repos.NewNodeRepo(theDB, log)

	dbc := dbctx.Context{Ctx: context.Background()}
	issues := 0

	broken, err := outliers.ListPromotedWithoutNode(dbc, *limit)
	if err != nil {
		log.Error("Promoted-without-node check failed", "error", err)
		os.Exit(1)
	}
	for _, item := range broken {
		fmt.Printf("promoted outlier %s/%s has no promoted_to_node_id\n", item.Platform, item.ExternalID)
		issues++
	}

	orphans, err := nodes.ListOrphanChildren(dbc, *limit)
	if err != nil {
		log.Error("Orphan-children check failed", "error", err)
		os.Exit(1)
	}
	for _, n := range orphans {
		fmt.Printf("node %s references missing parent %s\n", n.NodeID, n.ParentNodeID)
		issues++
	}

	mixed, err := mixedScaleClusters(dbc, outliers, nodes, *limit)
	if err != nil {
		log.Error("Mixed-scale check failed", "error", err)
		os.Exit(1)
	}
	for _, clusterID := range mixed {
		fmt.Printf("cluster %s mixes multiplier and percent-above-median outlier scores\n", clusterID)
		issues++
	}

	fmt.Printf("%d issues\n", issues)
	if issues > 0 && *failOnIssue {
		os.Exit(1)
	}
}

// mixedScaleClusters walks promoted outliers to their nodes and flags any
// cluster whose members came from both score scales. The scales are not
// comparable, so avg_outlier_score over such a cluster is meaningless.
func mixedScaleClusters(dbc dbctx.Context, outliers repos.OutlierItemRepo, nodes repos.NodeRepo, limit int) ([]string, error) {
	promoted, err := outliers.ListPromoted(dbc, limit)
	if err != nil {
		return nil, err
	}

	type scales struct{ median, multiplier bool }
	byCluster := map[string]*scales{}
	for _, item := range promoted {
		if item.PromotedToNodeID == "" {
			continue
		}
		node, err := nodes.GetByNodeID(dbc, item.PromotedToNodeID)
		if err != nil {
			return nil, err
		}
		if node == nil || node.ClusterID == "" {
			continue
		}
		s := byCluster[node.ClusterID]
		if s == nil {
			s = &scales{}
			byCluster[node.ClusterID] = s
		}
		if strings.HasSuffix(item.SourceName, ":median") {
			s.median = true
		} else {
			s.multiplier = true
		}
	}

	var mixed []string
	for clusterID, s := range byCluster {
		if s.median && s.multiplier {
			mixed = append(mixed, clusterID)
		}
	}
	sort.Strings(mixed)
	return mixed, nil
}
