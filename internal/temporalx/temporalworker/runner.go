package temporalworker

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/hooklab-media/hooklab-backend/internal/platform/envutil"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
	"github.com/hooklab-media/hooklab-backend/internal/temporalx"
	"github.com/hooklab-media/hooklab-backend/internal/temporalx/evidencecycle"
)

// Runner hosts the evidence cycle workflow and its tick activity on the
// configured task queue.
type Runner struct {
	log    *logger.Logger
	worker worker.Worker
}

func NewRunner(log *logger.Logger, c temporalsdkclient.Client, acts *evidencecycle.Activities) (*Runner, error) {
	if c == nil {
		return nil, fmt.Errorf("temporalworker: nil client")
	}
	cfg := temporalx.LoadConfig()

	w := worker.New(c, cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     envutil.Int("TEMPORAL_WORKER_MAX_ACTIVITIES", 16),
		MaxConcurrentWorkflowTaskExecutionSize: envutil.Int("TEMPORAL_WORKER_MAX_WORKFLOW_TASKS", 16),
	})
	w.RegisterWorkflowWithOptions(evidencecycle.Workflow, workflow.RegisterOptions{
		Name: evidencecycle.WorkflowName,
	})
	w.RegisterActivityWithOptions(acts.Tick, activity.RegisterOptions{
		Name: evidencecycle.ActivityTick,
	})

	return &Runner{
		log:    log.With("component", "temporal_worker"),
		worker: w,
	}, nil
}

// Start runs the worker until ctx is cancelled.
func (r *Runner) Start(ctx context.Context) error {
	if r == nil || r.worker == nil {
		return nil
	}
	r.log.Info("Temporal worker starting", "task_queue", temporalx.LoadConfig().TaskQueue)
	go func() {
		<-ctx.Done()
		r.worker.Stop()
	}()
	if err := r.worker.Run(nil); err != nil {
		return fmt.Errorf("temporal worker: %w", err)
	}
	return nil
}

func (r *Runner) Stop() {
	if r != nil && r.worker != nil {
		r.worker.Stop()
	}
}
