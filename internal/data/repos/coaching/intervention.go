package coaching

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

type InterventionRepo interface {
	Create(dbc dbctx.Context, intervention *types.CoachingIntervention) (*types.CoachingIntervention, error)
	ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.CoachingIntervention, error)
	CountBySessionRule(dbc dbctx.Context, sessionID uuid.UUID) (map[string]int64, error)
}

type interventionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInterventionRepo(db *gorm.DB, baseLog *logger.Logger) InterventionRepo {
	return &interventionRepo{
		db:  db,
		log: baseLog.With("repo", "InterventionRepo"),
	}
}

func (r *interventionRepo) Create(dbc dbctx.Context, intervention *types.CoachingIntervention) (*types.CoachingIntervention, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if intervention == nil {
		return nil, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(intervention).Error; err != nil {
		return nil, err
	}
	return intervention, nil
}

func (r *interventionRepo) ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.CoachingIntervention, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if sessionID == uuid.Nil {
		return nil, nil
	}
	var out []*types.CoachingIntervention
	if err := transaction.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *interventionRepo) CountBySessionRule(dbc dbctx.Context, sessionID uuid.UUID) (map[string]int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if sessionID == uuid.Nil {
		return nil, nil
	}
	type row struct {
		RuleID string
		N      int64
	}
	var rows []row
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.CoachingIntervention{}).
		Select("rule_id, count(*) as n").
		Where("session_id = ?", sessionID).
		Group("rule_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, rr := range rows {
		out[rr.RuleID] = rr.N
	}
	return out, nil
}
