package main

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hooklab-media/hooklab-backend/internal/data/repos"
	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	ingestdom "github.com/hooklab-media/hooklab-backend/internal/domain/ingest"
	"github.com/hooklab-media/hooklab-backend/internal/data/db"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/platform/envutil"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
	"github.com/hooklab-media/hooklab-backend/internal/services"
)

// medianSuffix marks rows whose outlier_score is a percent-above-median
// figure rather than the crawler's multiplier scale. The two scales must
// never be compared as one population, so the suffix travels with the rows.
const medianSuffix = ":median"

func main() {
	csvPath := flag.String("csv", "", "path to the CSV file (required)")
	sourceName := flag.String("source-name", "", "source label stored on each row (required)")
	category := flag.String("category", "", "category stored on each row")
	medianScale := flag.Bool("median-scale", false, "scores are percent-above-median; forces the "+medianSuffix+" source suffix")
	flag.Parse()

	if *csvPath == "" || *sourceName == "" {
		fmt.Println("usage: ingest_outlier_csv --csv FILE --source-name NAME [--category C] [--median-scale]")
		os.Exit(2)
	}
	name := *sourceName
	if *medianScale && !strings.HasSuffix(name, medianSuffix) {
		name += medianSuffix
	}
	if !*medianScale && strings.HasSuffix(name, medianSuffix) {
		fmt.Printf("source-name ends in %s but --median-scale is not set\n", medianSuffix)
		os.Exit(2)
	}

	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	raw, err := os.ReadFile(*csvPath)
	if err != nil {
		log.Error("Read CSV failed", "path", *csvPath, "error", err)
		os.Exit(1)
	}
	rows, malformed, err := parseCSV(raw, name, *category, *medianScale)
	if err != nil {
		log.Error("Parse CSV failed", "path", *csvPath, "error", err)
		os.Exit(1)
	}
	if len(rows) == 0 {
		fmt.Println("No usable rows in CSV")
		os.Exit(1)
	}

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
	runSvc := services.NewRunService(theDB, log, runRepo, artifactRepo)

	digest := sha256.Sum256(raw)
	run, skipped, err := runSvc.Execute(context.Background(), services.AcquireInput{
		RunType: types.RunTypeCrawler,
		Inputs: map[string]any{
			"op":          "csv_ingest",
			"csv_sha256":  hex.EncodeToString(digest[:]),
			"source_name": name,
		},
		TriggeredBy: "cli",
	}, func(dbc dbctx.Context, run *types.Run) (map[string]any, error) {
		inserted, err := outlierRepo.InsertIgnoreDupes(dbc, rows)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"source_name": name,
			"rows":        len(rows),
			"inserted":    inserted,
			"malformed":   malformed,
		}, nil
	})
	if err != nil {
		log.Error("Ingest failed", "error", err)
		os.Exit(1)
	}
	if skipped {
		fmt.Printf("This file was already ingested: %s\n", run.RunID)
		return
	}
	fmt.Printf("%s: %s\n", run.RunID, string(run.ResultSummary))
}

// parseCSV expects a header row. Recognized columns: platform, external_id,
// video_url, title, view_count, like_count, share_count, comment_count,
// engagement_rate, growth_rate, creator_avg_views, outlier_score. Unknown
// columns are ignored; rows missing platform, external_id, or video_url are
// counted as malformed.
func parseCSV(raw []byte, sourceName, category string, medianScale bool) ([]*types.OutlierItem, int, error) {
	r := csv.NewReader(strings.NewReader(string(raw)))
	header, err := r.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	num := func(rec []string, name string) float64 {
		v, _ := strconv.ParseFloat(field(rec, name), 64)
		return v
	}

	var (
		rows      []*types.OutlierItem
		malformed int
	)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, malformed, err
		}
		platform := field(rec, "platform")
		externalID := field(rec, "external_id")
		videoURL := field(rec, "video_url")
		if platform == "" || externalID == "" || videoURL == "" {
			malformed++
			continue
		}
		canonical, err := services.CanonicalVideoURL(videoURL)
		if err != nil {
			malformed++
			continue
		}
		score := num(rec, "outlier_score")
		tier := ingestdom.TierForScore(score)
		if medianScale {
			// Percent-above-median does not map onto the multiplier tier
			// bands; leave the tier at the floor.
			tier = ingestdom.TierC
		}
		rows = append(rows, &types.OutlierItem{
			Platform:        platform,
			ExternalID:      externalID,
			VideoURL:        videoURL,
			CanonicalURL:    canonical,
			SourceName:      sourceName,
			Category:        category,
			Title:           field(rec, "title"),
			ViewCount:       int64(num(rec, "view_count")),
			LikeCount:       int64(num(rec, "like_count")),
			ShareCount:      int64(num(rec, "share_count")),
			CommentCount:    int64(num(rec, "comment_count")),
			EngagementRate:  num(rec, "engagement_rate"),
			GrowthRate:      num(rec, "growth_rate"),
			CreatorAvgViews: int64(num(rec, "creator_avg_views")),
			OutlierScore:    score,
			OutlierTier:     tier,
			AnalysisStatus:  ingestdom.AnalysisPending,
			Status:          ingestdom.StatusPending,
		})
	}
	return rows, malformed, nil
}
