package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/hooklab-media/hooklab-backend/internal/data/repos"
	"github.com/hooklab-media/hooklab-backend/internal/data/db"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/platform/envutil"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

// Reports how forks perform by genealogy depth: for each parent, node
// counts, average views, and publish counts per depth over the window.
// The interesting signal is whether depth-2 forks keep up with depth-1.
func main() {
	parentID := flag.String("parent-id", "", "report a single parent node")
	all := flag.Bool("all", false, "report every parent with children")
	days := flag.Int("days", 14, "lookback window in days")
	flag.Parse()

	if (*parentID == "" && !*all) || (*parentID != "" && *all) {
		fmt.Println("usage: track_depth_experiment --parent-id ID | --all [--days N]")
		os.Exit(2)
	}

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
	nodes := repos.NewNodeRepo(pg.DB(), log)

	dbc := dbctx.Context{Ctx: context.Background()}
	since := time.Now().UTC().AddDate(0, 0, -*days)

	parents := []string{*parentID}
	if *all {
		parents, err = nodes.ListParentsWithChildren(dbc, 200)
		if err != nil {
			log.Error("List parents failed", "error", err)
			os.Exit(1)
		}
		if len(parents) == 0 {
			fmt.Println("No parents with children")
			return
		}
	}

	for _, parent := range parents {
		stats, err := nodes.DepthStatsForParent(dbc, parent, since)
		if err != nil {
			log.Error("Depth stats failed", "parent_node_id", parent, "error", err)
			os.Exit(1)
		}
		fmt.Printf("%s (last %dd)\n", parent, *days)
		if len(stats) == 0 {
			fmt.Println("  no children in window")
			continue
		}
		for _, s := range stats {
			fmt.Printf("  depth %d: %d nodes, avg views %.0f, %d published\n",
				s.GenealogyDepth, s.NodeCount, s.AvgViewCount, s.PublishedCount)
		}
	}
}
