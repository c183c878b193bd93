package coaching

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func TestAssignDeterministic(t *testing.T) {
	a1, h1 := Assign("sess_fixed")
	a2, h2 := Assign("sess_fixed")
	if a1 != a2 || h1 != h2 {
		t.Fatalf("assignment not deterministic: %s/%v vs %s/%v", a1, h1, a2, h2)
	}
}

func TestAssignDistribution(t *testing.T) {
	var control, holdout, coached int
	for i := 0; i < 1000; i++ {
		assignment, hold := Assign("sess_" + uuid.NewSHA1(uuid.NameSpaceOID, []byte{byte(i), byte(i >> 8)}).String())
		switch {
		case assignment == types.AssignmentControl:
			control++
		case hold:
			holdout++
		default:
			coached++
		}
	}
	if control < 70 || control > 130 {
		t.Fatalf("control = %d, want within [70, 130]", control)
	}
	if holdout < 30 || holdout > 70 {
		t.Fatalf("holdout = %d, want within [30, 70]", holdout)
	}
	if coached < 800 || coached > 900 {
		t.Fatalf("coached = %d, want within [800, 900]", coached)
	}
}

func TestCheckRuleOperators(t *testing.T) {
	rule := types.PackRule{RuleID: "r1", Metric: "visual.face_ratio", Operator: "gte", Target: 0.3, Tolerance: 0.02}
	if _, violated := CheckRule(rule, Measurement{Metric: "visual.face_ratio", Value: 0.29, Confidence: 0.9}); violated {
		t.Fatal("value inside tolerance must not violate")
	}
	v, violated := CheckRule(rule, Measurement{Metric: "visual.face_ratio", Value: 0.1, Confidence: 0.9})
	if !violated {
		t.Fatal("value far below target must violate")
	}
	if v.CoachLine == "" {
		t.Fatal("violation must carry a coach line")
	}
	if _, violated := CheckRule(rule, Measurement{Metric: "audio.energy", Value: 0.0}); violated {
		t.Fatal("different metric must not violate")
	}
	unknown := types.PackRule{RuleID: "r2", Metric: "visual.face_ratio", Operator: "matches", Target: 1}
	if _, violated := CheckRule(unknown, Measurement{Metric: "visual.face_ratio", Value: 0}); violated {
		t.Fatal("unknown operator must never fire")
	}
}

func TestCheckRuleIgnoresLowConfidence(t *testing.T) {
	rule := types.PackRule{RuleID: "r1", Metric: "visual.face_ratio", Operator: "gte", Target: 0.3}
	if _, violated := CheckRule(rule, Measurement{Metric: "visual.face_ratio", Value: 0.05, Confidence: 0.1}); violated {
		t.Fatal("a measurement below the confidence floor must not fire")
	}
	if _, violated := CheckRule(rule, Measurement{Metric: "visual.face_ratio", Value: 0.05, Confidence: 0.49}); violated {
		t.Fatal("just under the floor must not fire")
	}
	if _, violated := CheckRule(rule, Measurement{Metric: "visual.face_ratio", Value: 0.05, Confidence: 0.5}); !violated {
		t.Fatal("at the floor the violation must fire")
	}
}

func TestRenderCoachLineTemplate(t *testing.T) {
	rule := types.PackRule{
		Metric: "audio.energy", Target: 0.6,
		CoachLineTemplate: "energy at {measured}, bring it to {target}",
	}
	got := renderCoachLine(rule, 0.21)
	if got != "energy at 0.2, bring it to 0.6" {
		t.Fatalf("rendered line = %q", got)
	}
}

type stubEvaluator struct {
	mu    sync.Mutex
	value float64
}

func (s *stubEvaluator) Modality() string { return "visual" }

func (s *stubEvaluator) Evaluate(ctx context.Context, frame Frame) ([]Measurement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return []Measurement{{Metric: "visual.face_ratio", Value: s.value, Confidence: 0.9}}, nil
}

func (s *stubEvaluator) set(v float64) {
	s.mu.Lock()
	s.value = v
	s.mu.Unlock()
}

type recordingSink struct {
	mu            sync.Mutex
	interventions []bool // delivered flags
	outcomes      []string
	ends          []bool // cancelled flags
}

func (s *recordingSink) OnIntervention(sessionID string, v Violation, checkpointID string, delivered bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interventions = append(s.interventions, delivered)
	return uuid.NewString(), nil
}

func (s *recordingSink) OnOutcome(interventionID, compliance string, latencySec float64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, compliance)
	return nil
}

func (s *recordingSink) OnSessionEnd(sessionID string, cancelled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ends = append(s.ends, cancelled)
	return nil
}

func (s *recordingSink) counts() (int, []string, []bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.interventions), append([]string(nil), s.outcomes...), append([]bool(nil), s.ends...)
}

func fastConfig() Config {
	return Config{
		TickInterval:    5 * time.Millisecond,
		RuleCooldown:    time.Hour,
		OutcomeWindow:   200 * time.Millisecond,
		EvaluatorBudget: 100 * time.Millisecond,
	}
}

func faceRule() types.PackRule {
	return types.PackRule{RuleID: "face", Metric: "visual.face_ratio", Operator: "gte", Target: 0.3, Priority: types.PriorityMedium, Weight: 1}
}

func runSession(t *testing.T, assignment string, eval *stubEvaluator, sink *recordingSink, cfg Config) (*Controller, context.CancelFunc) {
	t.Helper()
	sess := SessionState{
		SessionID:  "sess_test",
		Assignment: assignment,
		Rules:      []types.PackRule{faceRule()},
	}
	ctrl := NewController(testLogger(t), sess, []Evaluator{eval}, sink, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	go ctrl.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-ctrl.Done()
	})
	return ctrl, cancel
}

func offerUntil(t *testing.T, ctrl *Controller, frame Frame, d time.Duration) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		ctrl.Offer(frame)
		time.Sleep(2 * time.Millisecond)
	}
}

func TestControllerCooldownLimitsInterventions(t *testing.T) {
	eval := &stubEvaluator{value: 0.1}
	sink := &recordingSink{}
	ctrl, _ := runSession(t, types.AssignmentCoached, eval, sink, fastConfig())

	go func() {
		for range ctrl.Lines() {
		}
	}()
	offerUntil(t, ctrl, Frame{SessionID: "sess_test", Modality: "visual", TSMillis: 1}, 100*time.Millisecond)

	n, _, _ := sink.counts()
	if n != 1 {
		t.Fatalf("interventions = %d, want exactly 1 under an hour-long cooldown", n)
	}
}

func TestControllerCompliedOutcome(t *testing.T) {
	eval := &stubEvaluator{value: 0.1}
	sink := &recordingSink{}
	ctrl, _ := runSession(t, types.AssignmentCoached, eval, sink, fastConfig())

	go func() {
		for range ctrl.Lines() {
		}
	}()
	offerUntil(t, ctrl, Frame{SessionID: "sess_test", Modality: "visual", TSMillis: 1}, 40*time.Millisecond)
	eval.set(0.8)
	offerUntil(t, ctrl, Frame{SessionID: "sess_test", Modality: "visual", TSMillis: 2}, 40*time.Millisecond)

	_, outcomes, _ := sink.counts()
	if len(outcomes) == 0 || outcomes[0] != types.ComplianceComplied {
		t.Fatalf("outcomes = %v, want complied first", outcomes)
	}
}

func TestControllerControlSuppressesDelivery(t *testing.T) {
	eval := &stubEvaluator{value: 0.1}
	sink := &recordingSink{}
	ctrl, _ := runSession(t, types.AssignmentControl, eval, sink, fastConfig())

	offerUntil(t, ctrl, Frame{SessionID: "sess_test", Modality: "visual", TSMillis: 1}, 60*time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.interventions) == 0 {
		t.Fatal("control sessions must still log interventions")
	}
	for _, delivered := range sink.interventions {
		if delivered {
			t.Fatal("control session must never deliver")
		}
	}
	select {
	case line, ok := <-ctrl.Lines():
		if ok {
			t.Fatalf("control session pushed a line: %+v", line)
		}
	default:
	}
}

func TestControllerCleanCancel(t *testing.T) {
	eval := &stubEvaluator{value: 0.1}
	sink := &recordingSink{}
	ctrl, cancel := runSession(t, types.AssignmentCoached, eval, sink, Config{
		TickInterval:  5 * time.Millisecond,
		RuleCooldown:  time.Hour,
		OutcomeWindow: time.Hour, // keep the window open across the cancel
	})

	go func() {
		for range ctrl.Lines() {
		}
	}()
	offerUntil(t, ctrl, Frame{SessionID: "sess_test", Modality: "visual", TSMillis: 1}, 40*time.Millisecond)
	cancel()
	<-ctrl.Done()

	_, outcomes, ends := sink.counts()
	if len(ends) != 1 {
		t.Fatalf("session end recorded %d times, want 1", len(ends))
	}
	if !ends[0] {
		t.Fatal("context cancellation must record the session as cancelled")
	}
	if len(outcomes) != 1 || outcomes[0] != types.ComplianceUnknown {
		t.Fatalf("outcomes = %v, want single unknown from the open window", outcomes)
	}
}

func TestControllerStopReportsNormalEnd(t *testing.T) {
	eval := &stubEvaluator{value: 0.1}
	sink := &recordingSink{}
	ctrl, _ := runSession(t, types.AssignmentCoached, eval, sink, Config{
		TickInterval:  5 * time.Millisecond,
		RuleCooldown:  time.Hour,
		OutcomeWindow: time.Hour,
	})

	go func() {
		for range ctrl.Lines() {
		}
	}()
	offerUntil(t, ctrl, Frame{SessionID: "sess_test", Modality: "visual", TSMillis: 1}, 40*time.Millisecond)
	ctrl.Stop()
	ctrl.Stop() // idempotent
	<-ctrl.Done()

	_, outcomes, ends := sink.counts()
	if len(ends) != 1 {
		t.Fatalf("session end recorded %d times, want 1", len(ends))
	}
	if ends[0] {
		t.Fatal("an explicit stop must record a normal end, not a cancel")
	}
	if len(outcomes) != 1 || outcomes[0] != types.ComplianceUnknown {
		t.Fatalf("outcomes = %v, want single unknown from the open window", outcomes)
	}
}

func TestOfferDropsWhenBufferFull(t *testing.T) {
	ctrl := NewController(testLogger(t), SessionState{SessionID: "s"}, nil, &recordingSink{}, Config{})
	if !ctrl.Offer(Frame{TSMillis: 1}) {
		t.Fatal("first offer should buffer")
	}
	if ctrl.Offer(Frame{TSMillis: 2}) {
		t.Fatal("second offer should drop while the first is unprocessed")
	}
}

func TestHubReattachAndStop(t *testing.T) {
	sink := &recordingSink{}
	hub := NewHub(testLogger(t), sink, nil, fastConfig())
	defer hub.Shutdown()

	a := hub.Start(SessionState{SessionID: "s1", Assignment: types.AssignmentCoached})
	b := hub.Start(SessionState{SessionID: "s1", Assignment: types.AssignmentCoached})
	if a != b {
		t.Fatal("restarting an active session must reattach, not duplicate")
	}
	if hub.ActiveCount() != 1 {
		t.Fatalf("active = %d, want 1", hub.ActiveCount())
	}
	hub.Stop("s1")
	if hub.ActiveCount() != 0 {
		t.Fatalf("active after stop = %d, want 0", hub.ActiveCount())
	}
	_, _, ends := sink.counts()
	if len(ends) != 1 || ends[0] {
		t.Fatalf("hub stop must record one normal end, got %v", ends)
	}

	hub.Start(SessionState{SessionID: "s2", Assignment: types.AssignmentCoached})
	hub.Shutdown()
	_, _, ends = sink.counts()
	if len(ends) != 2 || !ends[1] {
		t.Fatalf("hub shutdown must record a cancelled end, got %v", ends)
	}
}
