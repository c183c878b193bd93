package app

import (
	"context"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/hooklab-media/hooklab-backend/internal/coaching"
	"github.com/hooklab-media/hooklab-backend/internal/jobs/pipeline/bandit_refresh"
	"github.com/hooklab-media/hooklab-backend/internal/jobs/pipeline/crawl_ingest"
	"github.com/hooklab-media/hooklab-backend/internal/jobs/pipeline/decision_make"
	"github.com/hooklab-media/hooklab-backend/internal/jobs/pipeline/evidence_snapshot_build"
	"github.com/hooklab-media/hooklab-backend/internal/jobs/pipeline/pattern_card_render"
	"github.com/hooklab-media/hooklab-backend/internal/jobs/pipeline/pattern_cluster_assign"
	"github.com/hooklab-media/hooklab-backend/internal/jobs/pipeline/pattern_synthesis"
	"github.com/hooklab-media/hooklab-backend/internal/jobs/pipeline/source_pack_build"
	"github.com/hooklab-media/hooklab-backend/internal/jobs/pipeline/vdg_analysis"
	"github.com/hooklab-media/hooklab-backend/internal/jobs/runtime"
	"github.com/hooklab-media/hooklab-backend/internal/jobs/worker"
	"github.com/hooklab-media/hooklab-backend/internal/platform/envutil"
	"github.com/hooklab-media/hooklab-backend/internal/platform/gcp"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
	"github.com/hooklab-media/hooklab-backend/internal/platform/neo4jdb"
	"github.com/hooklab-media/hooklab-backend/internal/platform/ratelimit"
	"github.com/hooklab-media/hooklab-backend/internal/realtime"
	"github.com/hooklab-media/hooklab-backend/internal/realtime/bus"
	"github.com/hooklab-media/hooklab-backend/internal/services"
	"github.com/hooklab-media/hooklab-backend/internal/temporalx/evidencecycle"
)

type Services struct {
	Run             services.RunService
	EvidenceLoop    services.EvidenceLoopService
	PackUpdater     services.PackUpdaterService
	Coaching        services.CoachingService
	GraphProjection services.GraphProjectionService
	CardRender      services.CardRenderService
	VisionLLM       services.VisionLLMClient
	Notifier        services.RunNotifier

	Sources  *services.SourceRegistry
	Limiter  *ratelimit.Limiter
	Registry *runtime.Registry
	Worker   *worker.Worker
	Bus      bus.Bus

	EvidenceDriver *evidencecycle.Driver
}

// wireServices builds the service graph. Optional backends (Redis, Neo4j,
// GCS, the vision LLM) degrade to disabled with a warning rather than
// failing boot; the pipelines that need them are not registered.
func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, hub *realtime.Hub) (Services, error) {
	log.Info("Wiring services...")
	var s Services

	s.Bus = wireBus(log)
	s.Notifier = services.NewRunNotifier(log, hub, s.Bus)

	rdb := wireRedis(log)
	s.Limiter = ratelimit.New(rdb, log)

	neoClient, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Warn("Neo4j dial failed; graph projection disabled", "error", err)
		neoClient = nil
	}
	if neoClient == nil {
		log.Warn("Neo4j not configured; graph projection disabled")
	}
	s.GraphProjection = services.NewGraphProjectionService(log, neoClient)

	bucket, err := gcp.NewBucketService(log)
	if err != nil {
		log.Warn("Object storage unavailable; card rendering disabled", "error", err)
		bucket = nil
	}
	if bucket != nil {
		cards, err := services.NewCardRenderService(log, r.Cluster, bucket)
		if err != nil {
			log.Warn("Card renderer init failed; card rendering disabled", "error", err)
		} else {
			s.CardRender = cards
		}
	}

	llm, err := services.NewVisionLLMClient(log)
	if err != nil {
		log.Warn("Vision LLM unavailable; analysis pipeline disabled", "error", err)
		llm = nil
	}
	s.VisionLLM = llm

	s.Run = services.NewRunService(db, log, r.Run, r.Artifact)
	s.EvidenceLoop = services.NewEvidenceLoopService(db, log, r.EvidenceEvent, r.EvidenceSnapshot, r.Decision)
	s.PackUpdater = services.NewPackUpdaterService(db, log, r.DirectorPack, s.Run)
	s.Coaching = services.NewCoachingService(
		db, log,
		r.Session, r.Intervention, r.Outcome, r.UploadOutcome,
		r.PatternEvidence, r.DirectorPack,
		wireEvaluators(log),
		coaching.Config{
			TickInterval:  envutil.Duration("COACH_TICK_INTERVAL", 0),
			RuleCooldown:  envutil.Duration("COACH_RULE_COOLDOWN", 0),
			OutcomeWindow: envutil.Duration("COACH_OUTCOME_WINDOW", 0),
		},
	)

	s.Sources = wireSources()

	s.Registry = runtime.NewRegistry()
	s.Registry.Register(crawl_ingest.New(db, log, s.Sources, r.OutlierItem, r.CurationRule, r.Node, s.Limiter))
	if llm != nil {
		s.Registry.Register(vdg_analysis.New(db, log, r.OutlierItem, r.Node, llm))
	} else {
		log.Warn("Skipping vdg_analysis registration; no vision LLM configured")
	}
	s.Registry.Register(pattern_cluster_assign.New(db, log, r.Node, r.Cluster, r.OutlierItem, r.Notebook, r.RecurrenceLink, s.GraphProjection))
	s.Registry.Register(evidence_snapshot_build.New(db, log, r.EvidenceEvent, s.EvidenceLoop, r.PatternEvidence, r.Prior))
	s.Registry.Register(decision_make.New(db, log, r.EvidenceEvent, r.EvidenceSnapshot, r.Prior, s.EvidenceLoop, llm))
	s.Registry.Register(pattern_synthesis.New(db, log, r.RecurrenceLink, r.Cluster, r.Library))
	s.Registry.Register(source_pack_build.New(db, log, r.EvidenceEvent, r.Decision, r.Cluster, r.Library, r.DirectorPack, r.BanditArm))
	s.Registry.Register(bandit_refresh.New(db, log, r.PatternEvidence, r.BanditArm))
	if s.CardRender != nil {
		s.Registry.Register(pattern_card_render.New(log, s.CardRender))
	} else {
		log.Warn("Skipping pattern_card_render registration; no card renderer configured")
	}

	if cfg.WorkerEnabled {
		s.Worker = worker.NewWorker(db, log, r.Run, s.Run, s.Registry, s.Notifier)
	}

	return s, nil
}

func wireBus(log *logger.Logger) bus.Bus {
	b, err := bus.NewRedisBus(log)
	if err != nil {
		log.Warn("Redis bus unavailable; realtime fan-out is single-process", "error", err)
		return nil
	}
	return b
}

func wireRedis(log *logger.Logger) *goredis.Client {
	addr := envutil.String("REDIS_ADDR", "")
	if addr == "" {
		log.Warn("REDIS_ADDR not set; crawl rate limiting is permissive")
		return nil
	}
	return goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
}

// wireEvaluators builds the realtime frame evaluators. Vision and speech
// are independent; either can be absent.
func wireEvaluators(log *logger.Logger) []coaching.Evaluator {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var evaluators []coaching.Evaluator
	if annotator, err := gcp.NewFrameAnnotator(ctx, log); err != nil {
		log.Warn("Vision annotator unavailable; visual coaching rules inert", "error", err)
	} else {
		evaluators = append(evaluators, coaching.NewVisionEvaluator(annotator))
	}
	if transcriber, err := gcp.NewSpeechTranscriber(ctx, log); err != nil {
		log.Warn("Speech transcriber unavailable; audio coaching rules inert", "error", err)
	} else {
		evaluators = append(evaluators, coaching.NewSpeechEvaluator(transcriber))
	}
	return evaluators
}

func wireSources() *services.SourceRegistry {
	registry := services.NewSourceRegistry()
	for _, platform := range strings.Split(envutil.String("CRAWL_PLATFORMS", "tiktok,instagram,youtube"), ",") {
		platform = strings.TrimSpace(platform)
		if platform == "" {
			continue
		}
		registry.Register(services.NewMockSource(platform))
	}
	return registry
}
