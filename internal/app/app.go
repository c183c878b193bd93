package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hooklab-media/hooklab-backend/internal/data/db"
	internalhttp "github.com/hooklab-media/hooklab-backend/internal/http"
	"github.com/hooklab-media/hooklab-backend/internal/observability"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
	"github.com/hooklab-media/hooklab-backend/internal/realtime"
	"github.com/hooklab-media/hooklab-backend/internal/temporalx"
	"github.com/hooklab-media/hooklab-backend/internal/temporalx/evidencecycle"
	"github.com/hooklab-media/hooklab-backend/internal/temporalx/temporalworker"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services
	Hub      *realtime.Hub

	server         *internalhttp.Server
	temporalRunner *temporalworker.Runner
	otelShutdown   func(context.Context) error
	cancel         context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig()

	observability.Init()
	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "hooklab-api",
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	hub := realtime.NewHub(log)

	reposet := wireRepos(theDB, log)

	serviceset, err := wireServices(theDB, log, cfg, reposet, hub)
	if err != nil {
		log.Sync()
		return nil, err
	}

	a := &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Hub:          hub,
		otelShutdown: otelShutdown,
	}

	if cfg.TemporalEnabled {
		if err := a.wireTemporal(); err != nil {
			log.Sync()
			return nil, err
		}
	}

	handlerset := wireHandlers(log, a.Services, reposet, hub)
	a.Router = wireRouter(log, observability.Current(), handlerset)
	return a, nil
}

// wireTemporal connects the evidence cycle driver. A configured address
// that cannot be reached fails boot; an absent address just disables it.
func (a *App) wireTemporal() error {
	c, err := temporalx.NewClient(a.Log)
	if err != nil {
		return fmt.Errorf("init temporal: %w", err)
	}
	if c == nil {
		return nil
	}
	acts := &evidencecycle.Activities{
		Log:       a.Log,
		DB:        a.DB,
		Events:    a.Repos.EvidenceEvent,
		Decisions: a.Repos.Decision,
		Runs:      a.Services.Run,
	}
	runner, err := temporalworker.NewRunner(a.Log, c, acts)
	if err != nil {
		return fmt.Errorf("init temporal worker: %w", err)
	}
	a.temporalRunner = runner
	a.Services.EvidenceDriver = &evidencecycle.Driver{
		Client:    c,
		TaskQueue: temporalx.LoadConfig().TaskQueue,
	}
	return nil
}

func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Services.Worker != nil {
		a.Services.Worker.Start(ctx)
	}
	if a.Services.Bus != nil {
		if err := a.Services.Bus.StartForwarder(ctx, func(m realtime.Message) {
			a.Hub.Broadcast(m)
		}); err != nil {
			a.Log.Warn("Realtime bus forwarder failed to start", "error", err)
		}
	}
	if m := observability.Current(); m != nil {
		m.StartQueueDepthPoller(ctx, a.Log, a.Repos.Run)
	}
	if a.temporalRunner != nil {
		go func() {
			if err := a.temporalRunner.Start(ctx); err != nil {
				a.Log.Error("Temporal worker stopped", "error", err)
			}
		}()
	}
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	a.server = internalhttp.NewServerForEngine(a.Router)
	return a.server.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_ = a.server.Shutdown(ctx)
		cancel()
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Services.Bus != nil {
		_ = a.Services.Bus.Close()
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
