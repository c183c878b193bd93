package coaching

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

// Config holds the loop pacing knobs. Zero values take the production
// defaults.
type Config struct {
	TickInterval    time.Duration
	RuleCooldown    time.Duration
	OutcomeWindow   time.Duration
	EvaluatorBudget time.Duration
	LineBuffer      int
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if c.RuleCooldown <= 0 {
		c.RuleCooldown = 6 * time.Second
	}
	if c.OutcomeWindow <= 0 {
		c.OutcomeWindow = 10 * time.Second
	}
	if c.EvaluatorBudget <= 0 {
		c.EvaluatorBudget = time.Second
	}
	if c.LineBuffer <= 0 {
		c.LineBuffer = 8
	}
	return c
}

// SessionState is everything the loop needs about one session, parsed out of
// the pinned pack revision at start.
type SessionState struct {
	SessionID   string
	Assignment  string
	Holdout     bool
	Rules       []types.PackRule
	Checkpoints []types.PackCheckpoint
}

// ParsePack extracts the rule set and checkpoint schedule from a pack row.
func ParsePack(pack *types.DirectorPack) ([]types.PackRule, []types.PackCheckpoint, error) {
	var rules []types.PackRule
	if len(pack.DNAInvariants) > 0 {
		if err := json.Unmarshal(pack.DNAInvariants, &rules); err != nil {
			return nil, nil, fmt.Errorf("pack %s: decode dna_invariants: %w", pack.PackID, err)
		}
	}
	var checkpoints []types.PackCheckpoint
	if len(pack.Checkpoints) > 0 {
		if err := json.Unmarshal(pack.Checkpoints, &checkpoints); err != nil {
			return nil, nil, fmt.Errorf("pack %s: decode checkpoints: %w", pack.PackID, err)
		}
	}
	return rules, checkpoints, nil
}

// CoachLine is one message pushed to the creator's device.
type CoachLine struct {
	SessionID    string    `json:"session_id"`
	RuleID       string    `json:"rule_id,omitempty"`
	CheckpointID string    `json:"checkpoint_id,omitempty"`
	Text         string    `json:"text"`
	At           time.Time `json:"at"`
}

// Sink receives everything the loop decides, for persistence. Sink methods
// must not block the tick; implementations write through the repos layer.
type Sink interface {
	OnIntervention(sessionID string, v Violation, checkpointID string, delivered bool) (interventionID string, err error)
	OnOutcome(interventionID string, compliance string, latencySec float64, reason string) error
	OnSessionEnd(sessionID string, cancelled bool) error
}

type pendingOutcome struct {
	interventionID string
	rule           types.PackRule
	openedAt       time.Time
	sawMetric      bool
	stillViolating bool
}

// Controller drives one session at the pack's tick rate. Frames arrive
// through Offer into a capacity-one buffer: while a frame is waiting, newer
// frames are dropped, so under backpressure the loop always evaluates the
// oldest undelivered frame rather than thrashing on arrivals.
type Controller struct {
	cfg        Config
	log        *logger.Logger
	sess       SessionState
	evaluators []Evaluator
	sink       Sink

	frames   chan Frame
	lines    chan CoachLine
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	lastFired   map[string]time.Time
	firedChecks map[string]bool
	pending     []pendingOutcome
}

func NewController(log *logger.Logger, sess SessionState, evaluators []Evaluator, sink Sink, cfg Config) *Controller {
	cfg = cfg.withDefaults()
	return &Controller{
		cfg:         cfg,
		log:         log.With("component", "coaching_controller", "session_id", sess.SessionID),
		sess:        sess,
		evaluators:  evaluators,
		sink:        sink,
		frames:      make(chan Frame, 1),
		lines:       make(chan CoachLine, cfg.LineBuffer),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
		lastFired:   make(map[string]time.Time),
		firedChecks: make(map[string]bool),
	}
}

// Offer hands a frame to the loop without blocking. Returns false when the
// buffer already holds an unprocessed frame and this one was dropped.
func (c *Controller) Offer(frame Frame) bool {
	select {
	case c.frames <- frame:
		return true
	default:
		return false
	}
}

// Lines is the coach-line feed for the session's websocket.
func (c *Controller) Lines() <-chan CoachLine { return c.lines }

// Done closes when the loop has fully stopped.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Stop ends the session as a normal end. Safe to call more than once.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Run ticks until Stop is called or the context is cancelled. Either way the
// exit is cooperative and clean: open outcome windows close as unknown and
// the session-end write happens before Run returns. Stop reports a normal
// end to the sink; context cancellation reports the session as cancelled.
func (c *Controller) Run(ctx context.Context) {
	defer close(c.done)
	defer close(c.lines)

	started := time.Now()
	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			c.shutdown(false)
			return
		case <-ctx.Done():
			c.shutdown(true)
			return
		case now := <-ticker.C:
			c.tick(ctx, now, started)
		}
	}
}

func (c *Controller) tick(ctx context.Context, now time.Time, started time.Time) {
	var measurements []Measurement
	var frameTS int64

	select {
	case frame := <-c.frames:
		frameTS = frame.TSMillis
		for _, ev := range c.evaluators {
			if ev.Modality() != frame.Modality {
				continue
			}
			ms, err := evaluateWithBudget(ctx, ev, frame, c.cfg.EvaluatorBudget)
			if err != nil {
				c.log.Warn("evaluator failed", "modality", ev.Modality(), "error", err)
				continue
			}
			measurements = append(measurements, ms...)
		}
	default:
		// No frame this tick; checkpoints and window expiry still run.
	}

	c.settleOutcomes(now, measurements)
	c.checkRules(now, frameTS, measurements)
	c.fireCheckpoints(now, started)
}

// checkRules evaluates every pack rule against this tick's measurements and
// fires at most one intervention per rule per cooldown window.
func (c *Controller) checkRules(now time.Time, frameTS int64, measurements []Measurement) {
	for _, rule := range c.sess.Rules {
		if last, ok := c.lastFired[rule.RuleID]; ok && now.Sub(last) < c.cfg.RuleCooldown {
			continue
		}
		for _, m := range measurements {
			v, violated := CheckRule(rule, m)
			if !violated {
				continue
			}
			v.FrameTS = frameTS
			c.fire(now, v, "")
			break
		}
	}
}

// fire logs the intervention and, for coached sessions, delivers the line
// and opens an outcome window. Control sessions log only: the intervention
// row exists for the experiment but nothing reaches the creator.
func (c *Controller) fire(now time.Time, v Violation, checkpointID string) {
	delivered := c.sess.Assignment == types.AssignmentCoached
	id, err := c.sink.OnIntervention(c.sess.SessionID, v, checkpointID, delivered)
	if err != nil {
		c.log.Error("record intervention", "rule_id", v.Rule.RuleID, "error", err)
		return
	}
	c.lastFired[v.Rule.RuleID] = now
	if !delivered {
		return
	}
	c.pushLine(CoachLine{
		SessionID:    c.sess.SessionID,
		RuleID:       v.Rule.RuleID,
		CheckpointID: checkpointID,
		Text:         v.CoachLine,
		At:           now,
	})
	c.pending = append(c.pending, pendingOutcome{
		interventionID: id,
		rule:           v.Rule,
		openedAt:       now,
		stillViolating: true,
	})
}

// settleOutcomes re-measures open windows. A measurement that satisfies the
// rule closes the window as complied; a window that expires with the rule
// still violating closes as violated; a window that never saw its metric
// again closes as unknown.
func (c *Controller) settleOutcomes(now time.Time, measurements []Measurement) {
	remaining := c.pending[:0]
	for _, p := range c.pending {
		for _, m := range measurements {
			if m.Metric != p.rule.Metric {
				continue
			}
			p.sawMetric = true
			if _, violated := CheckRule(p.rule, m); !violated {
				latency := now.Sub(p.openedAt).Seconds()
				if err := c.sink.OnOutcome(p.interventionID, types.ComplianceComplied, latency, ""); err != nil {
					c.log.Error("record outcome", "intervention_id", p.interventionID, "error", err)
				}
				p.interventionID = ""
				break
			}
			p.stillViolating = true
		}
		if p.interventionID == "" {
			continue
		}
		if now.Sub(p.openedAt) >= c.cfg.OutcomeWindow {
			c.expire(p)
			continue
		}
		remaining = append(remaining, p)
	}
	c.pending = remaining
}

func (c *Controller) expire(p pendingOutcome) {
	compliance := types.ComplianceUnknown
	reason := "metric not observed again inside the window"
	if p.sawMetric && p.stillViolating {
		compliance = types.ComplianceViolated
		reason = "rule still violated at window close"
	}
	if err := c.sink.OnOutcome(p.interventionID, compliance, c.cfg.OutcomeWindow.Seconds(), reason); err != nil {
		c.log.Error("record outcome", "intervention_id", p.interventionID, "error", err)
	}
}

// fireCheckpoints delivers time-based coach lines once each, keyed on
// elapsed session time so they fire even when no frames arrive.
func (c *Controller) fireCheckpoints(now time.Time, started time.Time) {
	elapsed := now.Sub(started).Seconds()
	for _, cp := range c.sess.Checkpoints {
		if c.firedChecks[cp.CheckpointID] || elapsed < cp.AtSec {
			continue
		}
		c.firedChecks[cp.CheckpointID] = true
		if c.sess.Assignment != types.AssignmentCoached {
			continue
		}
		c.pushLine(CoachLine{
			SessionID:    c.sess.SessionID,
			CheckpointID: cp.CheckpointID,
			Text:         cp.CoachLine,
			At:           now,
		})
	}
}

// pushLine never blocks the tick; a stalled consumer loses lines rather
// than freezing the loop.
func (c *Controller) pushLine(line CoachLine) {
	select {
	case c.lines <- line:
	default:
		c.log.Warn("coach line dropped, consumer stalled", "rule_id", line.RuleID)
	}
}

// shutdown closes open windows as unknown and records the session end with
// the exit reason.
func (c *Controller) shutdown(cancelled bool) {
	for _, p := range c.pending {
		if err := c.sink.OnOutcome(p.interventionID, types.ComplianceUnknown, 0, "session ended inside the window"); err != nil {
			c.log.Error("record outcome at shutdown", "intervention_id", p.interventionID, "error", err)
		}
	}
	c.pending = nil
	if err := c.sink.OnSessionEnd(c.sess.SessionID, cancelled); err != nil {
		c.log.Error("record session end", "cancelled", cancelled, "error", err)
	}
}
