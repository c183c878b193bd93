package services

import (
	"context"

	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
	"github.com/hooklab-media/hooklab-backend/internal/realtime"
	"github.com/hooklab-media/hooklab-backend/internal/realtime/bus"
)

// RunNotifier pushes pipeline run lifecycle events to SSE subscribers.
// Every event lands on the global "runs" channel and the run's own
// "run:<run_id>" channel; with a bus configured it also crosses processes.
type RunNotifier interface {
	RunQueued(run *types.Run)
	RunProgress(run *types.Run, stage string, pct int, msg string)
	RunCompleted(run *types.Run)
	RunFailed(run *types.Run, stage, errorMessage string)
}

type runNotifier struct {
	log *logger.Logger
	hub *realtime.Hub
	bus bus.Bus
}

func NewRunNotifier(baseLog *logger.Logger, hub *realtime.Hub, b bus.Bus) RunNotifier {
	return &runNotifier{
		log: baseLog.With("service", "RunNotifier"),
		hub: hub,
		bus: b,
	}
}

func (n *runNotifier) emit(event realtime.Event, run *types.Run, data map[string]any) {
	if run == nil {
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	data["run_id"] = run.RunID
	data["run_type"] = run.RunType
	data["status"] = run.Status

	for _, channel := range []string{"runs", "run:" + run.RunID} {
		msg := realtime.Message{Channel: channel, Event: event, Data: data}
		n.hub.Broadcast(msg)
		if n.bus != nil {
			if err := n.bus.Publish(context.Background(), msg); err != nil {
				n.log.Warn("bus publish failed", "run_id", run.RunID, "error", err)
			}
		}
	}
}

func (n *runNotifier) RunQueued(run *types.Run) {
	n.emit(realtime.EventRunQueued, run, nil)
}

func (n *runNotifier) RunProgress(run *types.Run, stage string, pct int, msg string) {
	n.emit(realtime.EventRunProgress, run, map[string]any{
		"stage":    stage,
		"progress": pct,
		"message":  msg,
	})
}

func (n *runNotifier) RunCompleted(run *types.Run) {
	n.emit(realtime.EventRunCompleted, run, nil)
}

func (n *runNotifier) RunFailed(run *types.Run, stage, errorMessage string) {
	n.emit(realtime.EventRunFailed, run, map[string]any{
		"stage": stage,
		"error": errorMessage,
	})
}
