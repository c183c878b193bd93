package evidencecycle

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/workflow"
)

// Workflow drives one evidence event to a decision. The event row in
// postgres is the source of truth; the workflow only inspects it and fires
// due transitions through the tick activity, so a lost workflow never
// corrupts the state machine.
func Workflow(ctx workflow.Context) error {
	eventID := strings.TrimSpace(workflow.GetInfo(ctx).WorkflowExecution.ID)
	if eventID == "" {
		return fmt.Errorf("evidencecycle: missing event_id")
	}

	const (
		defaultPollInterval = 5 * time.Second
		manualPollInterval  = 2 * time.Minute
		continueTickLimit   = 2000
		continueHistory     = 15000
	)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Hour,
		HeartbeatTimeout:    30 * time.Second,
	})

	resumeCh := workflow.GetSignalChannel(ctx, SignalResume)
	ticks := 0

	for {
		ticks++
		var out TickResult
		if err := workflow.ExecuteActivity(ctx, ActivityTick, eventID).Get(ctx, &out); err != nil {
			return err
		}

		switch strings.ToLower(strings.TrimSpace(out.Status)) {
		case "decided":
			return nil
		case "failed":
			return fmt.Errorf("evidence event failed (event_id=%s)", eventID)
		case "waiting_manual":
			waitForResumeOrPoll(ctx, resumeCh, manualPollInterval)
		default:
			if err := workflow.Sleep(ctx, nextWait(ctx, out.WaitUntil, defaultPollInterval)); err != nil {
				return err
			}
		}
		if shouldContinueAsNew(ctx, ticks, continueTickLimit, continueHistory) {
			return workflow.NewContinueAsNewError(ctx, Workflow)
		}
	}
}

func waitForResumeOrPoll(ctx workflow.Context, ch workflow.ReceiveChannel, maxWait time.Duration) {
	timer := workflow.NewTimer(ctx, maxWait)
	sel := workflow.NewSelector(ctx)
	sel.AddReceive(ch, func(c workflow.ReceiveChannel, more bool) {
		var v any
		c.Receive(ctx, &v)
	})
	sel.AddFuture(timer, func(f workflow.Future) {})
	sel.Select(ctx)
}

func nextWait(ctx workflow.Context, waitUntil *time.Time, def time.Duration) time.Duration {
	if waitUntil == nil || waitUntil.IsZero() {
		return def
	}
	now := workflow.Now(ctx)
	if !waitUntil.After(now) {
		return def
	}
	d := waitUntil.Sub(now)
	if d > 15*time.Minute {
		return 15 * time.Minute
	}
	return d
}

func shouldContinueAsNew(ctx workflow.Context, ticks, maxTicks, maxHistory int) bool {
	if maxTicks > 0 && ticks >= maxTicks {
		return true
	}
	info := workflow.GetInfo(ctx)
	if info == nil || maxHistory <= 0 {
		return false
	}
	return info.GetCurrentHistoryLength() >= maxHistory
}
