package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"gorm.io/datatypes"

	"github.com/hooklab-media/hooklab-backend/internal/data/repos"
	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/data/db"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/platform/envutil"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

type inputEntry struct {
	PatternID        string          `json:"pattern_id"`
	ClusterID        string          `json:"cluster_id"`
	TemporalPhase    string          `json:"temporal_phase"`
	InvariantRules   json.RawMessage `json:"invariant_rules"`
	MutationStrategy json.RawMessage `json:"mutation_strategy"`
	ConfidenceScore  float64         `json:"confidence_score"`
	SampleCount      int             `json:"sample_count"`
}

var validPhases = map[string]bool{"T0": true, "T1": true, "T2": true, "T3": true, "T4": true}

func main() {
	input := flag.String("input", "patterns.json", "JSON array of pattern entries")
	dryRun := flag.Bool("dry-run", false, "validate only, write nothing")
	flag.Parse()

	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	raw, err := os.ReadFile(*input)
	if err != nil {
		log.Error("Read input failed", "path", *input, "error", err)
		os.Exit(1)
	}
	var entries []inputEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		log.Error("Decode input failed", "path", *input, "error", err)
		os.Exit(1)
	}

	issues := 0
	for i, e := range entries {
		switch {
		case e.PatternID == "":
			fmt.Printf("entry %d: missing pattern_id\n", i)
			issues++
		case e.ClusterID == "":
			fmt.Printf("entry %d (%s): missing cluster_id\n", i, e.PatternID)
			issues++
		case e.TemporalPhase != "" && !validPhases[e.TemporalPhase]:
			fmt.Printf("entry %d (%s): invalid temporal_phase %q\n", i, e.PatternID, e.TemporalPhase)
			issues++
		}
	}
	if issues > 0 {
		fmt.Printf("%d invalid entries, nothing written\n", issues)
		os.Exit(1)
	}
	if *dryRun {
		fmt.Printf("%d entries validated (dry run)\n", len(entries))
		return
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
	library := repos.NewLibraryRepo(pg.DB(), log)

	dbc := dbctx.Context{Ctx: context.Background()}
	written := 0
	for _, e := range entries {
		phase := e.TemporalPhase
		if phase == "" {
			phase = "T0"
		}
		entry := &types.PatternLibraryEntry{
			PatternID:        e.PatternID,
			ClusterID:        e.ClusterID,
			TemporalPhase:    phase,
			InvariantRules:   datatypes.JSON(e.InvariantRules),
			MutationStrategy: datatypes.JSON(e.MutationStrategy),
			ConfidenceScore:  e.ConfidenceScore,
			SampleCount:      e.SampleCount,
		}
		saved, err := library.AppendRevision(dbc, entry)
		if err != nil {
			log.Error("Append revision failed", "pattern_id", e.PatternID, "error", err)
			os.Exit(1)
		}
		fmt.Printf("%s -> revision %d\n", saved.PatternID, saved.Revision)
		written++
	}
	fmt.Printf("%d entries written\n", written)
}
