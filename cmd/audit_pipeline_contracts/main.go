package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/hooklab-media/hooklab-backend/internal/curation"
	"github.com/hooklab-media/hooklab-backend/internal/data/repos"
	"github.com/hooklab-media/hooklab-backend/internal/data/db"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/platform/envutil"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

// Audits every curation rule's condition keyspace against the feature
// extractor's declared keys. A rule naming a key the extractor never
// produces can silently match nothing; this catches it at build time.
func main() {
	withDB := flag.Bool("with-db", false, "also audit rules stored in postgres")
	failOnIssue := flag.Bool("fail-on-issue", false, "exit non-zero when any rule fails the audit")
	rulesPath := flag.String("rules", curation.RulesPath(), "YAML rules file to audit")
	flag.Parse()

	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	fmt.Printf("Declared feature keyspace: %v\n", curation.Keyspace())

	issues := 0
	audited := 0

	fileRules, err := curation.LoadFile(*rulesPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Printf("No rules file at %s\n", *rulesPath)
		} else {
			fmt.Printf("file: %v\n", err)
			issues++
		}
	}
	for _, r := range fileRules {
		audited++
		if err := r.AuditKeys(); err != nil {
			fmt.Printf("file rule %s: %v\n", r.RuleID, err)
			issues++
		}
	}

	if *withDB {
		pg, err := db.NewPostgresService(log)
		if err != nil {
			log.Error("Postgres init failed", "error", err)
			os.Exit(1)
		}
		ruleRepo := repos.NewCurationRuleRepo(pg.DB(), log)
		records, err := ruleRepo.ListEnabled(dbctx.Context{Ctx: context.Background()})
		if err != nil {
			log.Error("List rules failed", "error", err)
			os.Exit(1)
		}
		for _, rec := range records {
			audited++
			rule, err := curation.ParseRule(rec)
			if err != nil {
				fmt.Printf("db rule %s: %v\n", rec.RuleID, err)
				issues++
				continue
			}
			if err := rule.AuditKeys(); err != nil {
				fmt.Printf("db rule %s: %v\n", rec.RuleID, err)
				issues++
			}
		}
	}

	fmt.Printf("Audited %d rules, %d issues\n", audited, issues)
	if issues > 0 && *failOnIssue {
		os.Exit(1)
	}
}
