package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hooklab-media/hooklab-backend/internal/coaching"
	"github.com/hooklab-media/hooklab-backend/internal/data/repos"
	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/apperr"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

// StartSessionInput opens a coaching session against a pattern's latest
// pack revision.
type StartSessionInput struct {
	SessionID  string
	UserIDHash string
	Mode       string
	PatternID  string
}

// CoachingService owns session lifecycle and is the hub's persistence sink.
// Session end folds per-rule compliance into PatternEvidence rows (holdout
// sessions are coached but excluded) and returns the stats the pack updater
// consumes.
type CoachingService interface {
	StartSession(dbc dbctx.Context, in StartSessionInput) (*types.CoachingSession, *coaching.Controller, error)
	EndSession(dbc dbctx.Context, sessionID string, cancelled bool) (map[string]RuleStat, error)
	RecordUpload(dbc dbctx.Context, sessionID string, videoURL string, viewCount int64, engagementRate float64) error
	Hub() *coaching.Hub
}

type coachingService struct {
	db            *gorm.DB
	log           *logger.Logger
	sessions      repos.SessionRepo
	interventions repos.InterventionRepo
	outcomes      repos.OutcomeRepo
	uploads       repos.UploadOutcomeRepo
	evidence      repos.PatternEvidenceRepo
	packs         repos.DirectorPackRepo

	hub *coaching.Hub
}

func NewCoachingService(
	db *gorm.DB,
	baseLog *logger.Logger,
	sessions repos.SessionRepo,
	interventions repos.InterventionRepo,
	outcomes repos.OutcomeRepo,
	uploads repos.UploadOutcomeRepo,
	evidence repos.PatternEvidenceRepo,
	packs repos.DirectorPackRepo,
	evaluators []coaching.Evaluator,
	cfg coaching.Config,
) CoachingService {
	s := &coachingService{
		db:            db,
		log:           baseLog.With("service", "CoachingService"),
		sessions:      sessions,
		interventions: interventions,
		outcomes:      outcomes,
		uploads:       uploads,
		evidence:      evidence,
		packs:         packs,
	}
	s.hub = coaching.NewHub(baseLog, s, evaluators, cfg)
	return s
}

func (s *coachingService) Hub() *coaching.Hub { return s.hub }

func (s *coachingService) StartSession(dbc dbctx.Context, in StartSessionInput) (*types.CoachingSession, *coaching.Controller, error) {
	if in.SessionID == "" || in.PatternID == "" {
		return nil, nil, fmt.Errorf("missing session_id or pattern_id")
	}
	if existing, err := s.sessions.GetBySessionID(dbc, in.SessionID); err != nil {
		return nil, nil, err
	} else if existing != nil {
		if existing.Status != types.SessionActive {
			return existing, nil, &apperr.ConflictError{Resource: "coaching_session", Detail: "already " + existing.Status}
		}
		if ctrl, ok := s.hub.Get(in.SessionID); ok {
			return existing, ctrl, nil
		}
	}

	pack, err := s.packs.GetLatestByPattern(dbc, in.PatternID)
	if err != nil {
		return nil, nil, err
	}
	if pack == nil {
		return nil, nil, fmt.Errorf("pattern %s has no director pack", in.PatternID)
	}
	rules, checkpoints, err := coaching.ParsePack(pack)
	if err != nil {
		return nil, nil, err
	}

	assignment, holdout := coaching.Assign(in.SessionID)
	mode := in.Mode
	if mode == "" {
		mode = "homage"
	}
	session, err := s.sessions.Create(dbc, &types.CoachingSession{
		SessionID:    in.SessionID,
		UserIDHash:   in.UserIDHash,
		Mode:         mode,
		PatternID:    in.PatternID,
		PackID:       pack.PackID,
		PackHash:     pack.PackHash,
		Assignment:   assignment,
		HoldoutGroup: holdout,
		Status:       types.SessionActive,
		StartedAt:    time.Now().UTC(),
	})
	if err != nil {
		return nil, nil, err
	}

	ctrl := s.hub.Start(coaching.SessionState{
		SessionID:   in.SessionID,
		Assignment:  assignment,
		Holdout:     holdout,
		Rules:       rules,
		Checkpoints: checkpoints,
	})
	return session, ctrl, nil
}

// EndSession stops the loop, closes the row, and aggregates compliance into
// PatternEvidence. A rule with complied >= violated counts as a success
// observation; unknown outcomes are dropped.
func (s *coachingService) EndSession(dbc dbctx.Context, sessionID string, cancelled bool) (map[string]RuleStat, error) {
	session, err := s.sessions.GetBySessionID(dbc, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}

	s.hub.Stop(sessionID)

	status := types.SessionEnded
	if cancelled {
		status = types.SessionCancelled
	}
	if err := s.sessions.Close(dbc, session.ID, status, time.Now().UTC()); err != nil {
		return nil, err
	}

	stats, err := s.aggregate(dbc, session)
	if err != nil {
		return nil, err
	}
	if session.HoldoutGroup || session.Assignment != types.AssignmentCoached || cancelled {
		return stats, nil
	}

	var rows []*types.PatternEvidence
	for ruleID, stat := range stats {
		if stat.SampleCount == 0 {
			continue
		}
		outcome := types.OutcomeFailure
		if stat.SuccessRate >= 0.5 {
			outcome = types.OutcomeSuccess
		}
		rows = append(rows, &types.PatternEvidence{
			PatternID:       session.PatternID,
			MutationType:    "coaching_rule",
			MutationPattern: ruleID,
			Outcome:         outcome,
			ProofStrength:   5 + 5*stat.SuccessRate,
			Source:          "coaching_session",
		})
	}
	if len(rows) > 0 {
		if _, err := s.evidence.Create(dbc, rows); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

// aggregate computes per-rule compliance for the session.
func (s *coachingService) aggregate(dbc dbctx.Context, session *types.CoachingSession) (map[string]RuleStat, error) {
	interventions, err := s.interventions.ListBySession(dbc, session.ID)
	if err != nil {
		return nil, err
	}
	if len(interventions) == 0 {
		return map[string]RuleStat{}, nil
	}
	ids := make([]uuid.UUID, 0, len(interventions))
	ruleByIntervention := make(map[uuid.UUID]string, len(interventions))
	for _, iv := range interventions {
		ids = append(ids, iv.ID)
		ruleByIntervention[iv.ID] = iv.RuleID
	}
	outcomes, err := s.outcomes.ListByInterventions(dbc, ids)
	if err != nil {
		return nil, err
	}

	complied := map[string]int{}
	total := map[string]int{}
	for _, oc := range outcomes {
		ruleID := ruleByIntervention[oc.InterventionID]
		switch oc.Compliance {
		case types.ComplianceComplied:
			complied[ruleID]++
			total[ruleID]++
		case types.ComplianceViolated:
			total[ruleID]++
		}
	}
	stats := make(map[string]RuleStat, len(total))
	for ruleID, n := range total {
		stats[ruleID] = RuleStat{
			SuccessRate: float64(complied[ruleID]) / float64(n),
			SampleCount: n,
		}
	}
	return stats, nil
}

func (s *coachingService) RecordUpload(dbc dbctx.Context, sessionID string, videoURL string, viewCount int64, engagementRate float64) error {
	session, err := s.sessions.GetBySessionID(dbc, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("session %s not found", sessionID)
	}
	return s.uploads.Enrich(dbc, session.ID, videoURL, viewCount, engagementRate)
}

// The hub sink. These run on controller goroutines and use background
// contexts; the session loop must not inherit a request context that dies
// with the websocket.

func (s *coachingService) OnIntervention(sessionID string, v coaching.Violation, checkpointID string, delivered bool) (string, error) {
	dbc := dbctx.Context{Ctx: context.Background()}
	session, err := s.sessions.GetBySessionID(dbc, sessionID)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", fmt.Errorf("session %s not found", sessionID)
	}
	measured := v.Measured
	row, err := s.interventions.Create(dbc, &types.CoachingIntervention{
		SessionID:     session.ID,
		RuleID:        v.Rule.RuleID,
		CheckpointID:  checkpointID,
		CoachLine:     v.CoachLine,
		Confidence:    v.Conf,
		MeasuredValue: &measured,
		FrameTSMillis: v.FrameTS,
		Delivered:     delivered,
	})
	if err != nil {
		return "", err
	}
	return row.ID.String(), nil
}

func (s *coachingService) OnOutcome(interventionID string, compliance string, latencySec float64, reason string) error {
	id, err := uuid.Parse(interventionID)
	if err != nil {
		return fmt.Errorf("bad intervention id %q: %w", interventionID, err)
	}
	_, err = s.outcomes.Create(dbctx.Context{Ctx: context.Background()}, &types.CoachingOutcome{
		InterventionID: id,
		Compliance:     compliance,
		LatencySec:     latencySec,
		Reason:         reason,
	})
	return err
}

func (s *coachingService) OnSessionEnd(sessionID string, cancelled bool) error {
	// A cancelled session never produces an upload, so no stub is written.
	if cancelled {
		return nil
	}
	dbc := dbctx.Context{Ctx: context.Background()}
	session, err := s.sessions.GetBySessionID(dbc, sessionID)
	if err != nil || session == nil {
		return err
	}
	return s.uploads.UpsertStub(dbc, session.ID)
}
