package evidence

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

type DecisionRepo interface {
	Create(dbc dbctx.Context, decision *types.DecisionObject) (*types.DecisionObject, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.DecisionObject, error)
	GetByEvent(dbc dbctx.Context, eventID uuid.UUID) (*types.DecisionObject, error)
	ListByType(dbc dbctx.Context, decisionType string, limit int) ([]*types.DecisionObject, error)
}

type decisionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDecisionRepo(db *gorm.DB, baseLog *logger.Logger) DecisionRepo {
	return &decisionRepo{
		db:  db,
		log: baseLog.With("repo", "DecisionRepo"),
	}
}

func (r *decisionRepo) Create(dbc dbctx.Context, decision *types.DecisionObject) (*types.DecisionObject, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if decision == nil {
		return nil, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(decision).Error; err != nil {
		return nil, err
	}
	return decision, nil
}

func (r *decisionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.DecisionObject, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var decision types.DecisionObject
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&decision).Error
	if err != nil {
		return nil, err
	}
	if decision.ID == uuid.Nil {
		return nil, nil
	}
	return &decision, nil
}

func (r *decisionRepo) GetByEvent(dbc dbctx.Context, eventID uuid.UUID) (*types.DecisionObject, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if eventID == uuid.Nil {
		return nil, nil
	}
	var decision types.DecisionObject
	err := transaction.WithContext(dbc.Ctx).
		Where("event_id = ?", eventID).
		Limit(1).
		Find(&decision).Error
	if err != nil {
		return nil, err
	}
	if decision.ID == uuid.Nil {
		return nil, nil
	}
	return &decision, nil
}

func (r *decisionRepo) ListByType(dbc dbctx.Context, decisionType string, limit int) ([]*types.DecisionObject, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	q := transaction.WithContext(dbc.Ctx).Model(&types.DecisionObject{})
	if decisionType != "" {
		q = q.Where("decision_type = ?", decisionType)
	}
	var out []*types.DecisionObject
	if err := q.Order("decided_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
