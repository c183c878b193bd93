package coaching

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

type OutcomeRepo interface {
	Create(dbc dbctx.Context, outcome *types.CoachingOutcome) (*types.CoachingOutcome, error)
	ListByInterventions(dbc dbctx.Context, interventionIDs []uuid.UUID) ([]*types.CoachingOutcome, error)
}

type outcomeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOutcomeRepo(db *gorm.DB, baseLog *logger.Logger) OutcomeRepo {
	return &outcomeRepo{
		db:  db,
		log: baseLog.With("repo", "OutcomeRepo"),
	}
}

func (r *outcomeRepo) Create(dbc dbctx.Context, outcome *types.CoachingOutcome) (*types.CoachingOutcome, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if outcome == nil {
		return nil, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(outcome).Error; err != nil {
		return nil, err
	}
	return outcome, nil
}

func (r *outcomeRepo) ListByInterventions(dbc dbctx.Context, interventionIDs []uuid.UUID) ([]*types.CoachingOutcome, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(interventionIDs) == 0 {
		return []*types.CoachingOutcome{}, nil
	}
	var out []*types.CoachingOutcome
	if err := transaction.WithContext(dbc.Ctx).
		Where("intervention_id IN ?", interventionIDs).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type UploadOutcomeRepo interface {
	UpsertStub(dbc dbctx.Context, sessionID uuid.UUID) error
	Enrich(dbc dbctx.Context, sessionID uuid.UUID, videoURL string, viewCount int64, engagementRate float64) error
	GetBySession(dbc dbctx.Context, sessionID uuid.UUID) (*types.CoachingUploadOutcome, error)
}

type uploadOutcomeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUploadOutcomeRepo(db *gorm.DB, baseLog *logger.Logger) UploadOutcomeRepo {
	return &uploadOutcomeRepo{
		db:  db,
		log: baseLog.With("repo", "UploadOutcomeRepo"),
	}
}

// UpsertStub writes the empty row at session close. A repeat close keeps the
// existing row untouched.
func (r *uploadOutcomeRepo) UpsertStub(dbc dbctx.Context, sessionID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if sessionID == uuid.Nil {
		return nil
	}
	stub := &types.CoachingUploadOutcome{SessionID: sessionID}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoNothing: true,
		}).
		Create(stub).Error
}

func (r *uploadOutcomeRepo) Enrich(dbc dbctx.Context, sessionID uuid.UUID, videoURL string, viewCount int64, engagementRate float64) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if sessionID == uuid.Nil {
		return nil
	}
	now := time.Now()
	return transaction.WithContext(dbc.Ctx).
		Model(&types.CoachingUploadOutcome{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"uploaded":        true,
			"video_url":       videoURL,
			"view_count":      viewCount,
			"engagement_rate": engagementRate,
			"recorded_at":     now,
			"updated_at":      now,
		}).Error
}

func (r *uploadOutcomeRepo) GetBySession(dbc dbctx.Context, sessionID uuid.UUID) (*types.CoachingUploadOutcome, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if sessionID == uuid.Nil {
		return nil, nil
	}
	var outcome types.CoachingUploadOutcome
	err := transaction.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Limit(1).
		Find(&outcome).Error
	if err != nil {
		return nil, err
	}
	if outcome.ID == uuid.Nil {
		return nil, nil
	}
	return &outcome, nil
}
