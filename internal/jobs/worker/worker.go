// Package worker claims queued pipeline runs and dispatches them to
// registered handlers, enforcing each run's declared timeout.
package worker

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/hooklab-media/hooklab-backend/internal/data/repos"
	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/jobs/runtime"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/platform/envutil"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
	"github.com/hooklab-media/hooklab-backend/internal/services"
)

const (
	claimInterval  = 1 * time.Second
	reaperInterval = 30 * time.Second
)

type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	runs     repos.RunRepo
	runSvc   services.RunService
	registry *runtime.Registry
	notify   services.RunNotifier
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, runs repos.RunRepo, runSvc services.RunService, registry *runtime.Registry, notify services.RunNotifier) *Worker {
	return &Worker{
		db:       db,
		log:      baseLog.With("component", "RunWorker"),
		runs:     runs,
		runSvc:   runSvc,
		registry: registry,
		notify:   notify,
	}
}

// Start launches the claim loops plus one reaper. Loops exit when ctx is
// cancelled; in-flight runs finish under their own deadline.
func (w *Worker) Start(ctx context.Context) {
	concurrency := envutil.Int("WORKER_CONCURRENCY", 4)
	if concurrency < 1 {
		concurrency = 1
	}
	w.log.Info("Starting run worker pool", "concurrency", concurrency, "run_types", w.registry.Types())

	for i := 0; i < concurrency; i++ {
		workerID := i + 1
		go w.claimLoop(ctx, workerID)
	}
	go w.reaperLoop(ctx)
}

func (w *Worker) claimLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(claimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			run, err := w.runs.ClaimNextQueued(dbctx.Context{Ctx: ctx})
			if err != nil {
				w.log.Warn("ClaimNextQueued failed", "worker_id", workerID, "error", err)
				continue
			}
			if run == nil {
				continue
			}
			w.execute(ctx, workerID, run)
		}
	}
}

func (w *Worker) execute(ctx context.Context, workerID int, run *types.Run) {
	timeout := time.Duration(run.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	jc := runtime.NewContext(runCtx, w.db, run, w.runs, w.runSvc, w.notify)

	h, ok := w.registry.Get(run.RunType)
	if !ok {
		w.log.Warn("No handler registered for run_type",
			"worker_id", workerID,
			"run_type", run.RunType,
			"run_id", run.RunID,
		)
		jc.Fail("dispatch", &missingHandlerError{RunType: run.RunType})
		return
	}

	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Run handler panic",
				"worker_id", workerID,
				"run_id", run.RunID,
				"run_type", run.RunType,
				"panic", r,
			)
			jc.Fail("panic", fmt.Errorf("panic: %v", r))
		}
	}()

	if runErr := h.Run(jc); runErr != nil {
		// Pipelines normally call jc.Fail themselves; this is the net
		// under a handler that returns instead.
		jc.Fail("run", runErr)
	}
}

// reaperLoop fails RUNNING runs whose timeout has elapsed, so a crashed
// worker never wedges an idempotency key.
func (w *Worker) reaperLoop(ctx context.Context) {
	ticker := time.NewTicker(reaperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.runs.FailOverdue(dbctx.Context{Ctx: ctx}, time.Now().UTC())
			if err != nil {
				w.log.Warn("FailOverdue sweep failed", "error", err)
				continue
			}
			if n > 0 {
				w.log.Warn("Reaped overdue runs", "count", n)
			}
		}
	}
}

type missingHandlerError struct{ RunType string }

func (e *missingHandlerError) Error() string {
	return "no handler registered for run_type=" + e.RunType
}
