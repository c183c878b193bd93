package evidence

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

type PriorRepo interface {
	Get(dbc dbctx.Context, patternID string) (*types.PatternPrior, error)
	Upsert(dbc dbctx.Context, patternID string, pSuccess float64, sampleCount int) error
	ListAll(dbc dbctx.Context, limit int) ([]*types.PatternPrior, error)
}

type priorRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPriorRepo(db *gorm.DB, baseLog *logger.Logger) PriorRepo {
	return &priorRepo{
		db:  db,
		log: baseLog.With("repo", "PriorRepo"),
	}
}

func (r *priorRepo) Get(dbc dbctx.Context, patternID string) (*types.PatternPrior, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if patternID == "" {
		return nil, nil
	}
	var prior types.PatternPrior
	err := transaction.WithContext(dbc.Ctx).
		Where("pattern_id = ?", patternID).
		Limit(1).
		Find(&prior).Error
	if err != nil {
		return nil, err
	}
	if prior.ID == uuid.Nil {
		return nil, nil
	}
	return &prior, nil
}

func (r *priorRepo) Upsert(dbc dbctx.Context, patternID string, pSuccess float64, sampleCount int) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if patternID == "" {
		return nil
	}
	prior := &types.PatternPrior{
		PatternID:   patternID,
		PSuccess:    pSuccess,
		SampleCount: sampleCount,
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "pattern_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"p_success":    pSuccess,
				"sample_count": sampleCount,
				"updated_at":   time.Now(),
			}),
		}).
		Create(prior).Error
}

func (r *priorRepo) ListAll(dbc dbctx.Context, limit int) ([]*types.PatternPrior, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 1000
	}
	var out []*types.PatternPrior
	if err := transaction.WithContext(dbc.Ctx).
		Order("pattern_id ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
