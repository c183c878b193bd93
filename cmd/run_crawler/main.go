package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/hooklab-media/hooklab-backend/internal/data/repos"
	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/data/db"
	"github.com/hooklab-media/hooklab-backend/internal/jobs/pipeline/crawl_ingest"
	"github.com/hooklab-media/hooklab-backend/internal/jobs/runtime"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/apperr"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/platform/envutil"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
	"github.com/hooklab-media/hooklab-backend/internal/platform/ratelimit"
	"github.com/hooklab-media/hooklab-backend/internal/services"
)

func main() {
	source := flag.String("source", "", "crawl one registered source instead of all")
	category := flag.String("category", "general", "category hint passed to the sources")
	limit := flag.Int("limit", 25, "max items to fetch per source")
	dailyLimit := flag.Int("daily-limit", 500, "per-platform daily fetch budget")
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
	if err := pg.AutoMigrateAll(); err != nil {
		log.Error("Postgres automigrate failed", "error", err)
		os.Exit(1)
	}
	theDB := pg.DB()

	runRepo := repos.NewRunRepo(theDB, log)
	artifactRepo := repos.NewArtifactRepo(theDB, log)
	outlierRepo := repos.NewOutlierItemRepo(theDB, log)
	ruleRepo := repos.NewCurationRuleRepo(theDB, log)
	nodeRepo := repos.NewNodeRepo(theDB, log)
	runSvc := services.NewRunService(theDB, log, runRepo, artifactRepo)

	registry := services.NewSourceRegistry()
	for _, platform := range strings.Split(envutil.String("CRAWL_PLATFORMS", "tiktok,instagram,youtube"), ",") {
		platform = strings.TrimSpace(platform)
		if platform != "" {
			registry.Register(services.NewMockSource(platform))
		}
	}

	pipeline := crawl_ingest.New(theDB, log, registry, outlierRepo, ruleRepo, nodeRepo, ratelimit.New(nil, log))

	inputs := map[string]any{
		"category":    *category,
		"limit":       *limit,
		"daily_limit": *dailyLimit,
	}
	if *source != "" {
		inputs["source"] = *source
	}

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	run, skipped, err := runSvc.Acquire(dbc, services.AcquireInput{
		RunType:     types.RunTypeCrawler,
		Inputs:      inputs,
		TriggeredBy: "cli",
	})
	if err != nil {
		if apperr.IsConflict(err) {
			fmt.Printf("A crawl with these inputs is already in flight (%s)\n", run.RunID)
			os.Exit(1)
		}
		log.Error("Acquire failed", "error", err)
		os.Exit(1)
	}
	if skipped {
		fmt.Printf("Already completed: %s (result: %s)\n", run.RunID, string(run.ResultSummary))
		return
	}

	jc := runtime.NewContext(ctx, theDB, run, runRepo, runSvc, nil)
	if err := pipeline.Run(jc); err != nil {
		jc.Fail("run", err)
	}

	final, err := runRepo.GetByID(dbc, run.ID)
	if err != nil || final == nil {
		log.Error("Could not reload run", "run_id", run.RunID, "error", err)
		os.Exit(1)
	}
	fmt.Printf("%s finished with status %s\n", final.RunID, final.Status)
	if final.Status != types.RunStatusCompleted {
		fmt.Printf("error: %s\n", final.ErrorMessage)
		os.Exit(1)
	}
	fmt.Println(string(final.ResultSummary))
}
