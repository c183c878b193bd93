package evidence

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

type PatternEvidenceRepo interface {
	Create(dbc dbctx.Context, rows []*types.PatternEvidence) ([]*types.PatternEvidence, error)
	ListUnapplied(dbc dbctx.Context, patternID string, limit int) ([]*types.PatternEvidence, error)
	MarkApplied(dbc dbctx.Context, ids []uuid.UUID) error
	ListForParentSince(dbc dbctx.Context, parentNodeID string, since time.Time) ([]*types.PatternEvidence, error)
	ListByPattern(dbc dbctx.Context, patternID string, limit int) ([]*types.PatternEvidence, error)
	ListMeasuredSince(dbc dbctx.Context, since time.Time, limit int) ([]*types.PatternEvidence, error)
}

type patternEvidenceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPatternEvidenceRepo(db *gorm.DB, baseLog *logger.Logger) PatternEvidenceRepo {
	return &patternEvidenceRepo{
		db:  db,
		log: baseLog.With("repo", "PatternEvidenceRepo"),
	}
}

func (r *patternEvidenceRepo) Create(dbc dbctx.Context, rows []*types.PatternEvidence) ([]*types.PatternEvidence, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.PatternEvidence{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListUnapplied returns evidence the Bayesian updater has not folded in yet,
// oldest first so updates replay in arrival order.
func (r *patternEvidenceRepo) ListUnapplied(dbc dbctx.Context, patternID string, limit int) ([]*types.PatternEvidence, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 200
	}
	q := transaction.WithContext(dbc.Ctx).Where("applied = false")
	if patternID != "" {
		q = q.Where("pattern_id = ?", patternID)
	}
	var out []*types.PatternEvidence
	if err := q.Order("created_at ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *patternEvidenceRepo) MarkApplied(dbc dbctx.Context, ids []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.PatternEvidence{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"applied":    true,
			"updated_at": time.Now(),
		}).Error
}

func (r *patternEvidenceRepo) ListForParentSince(dbc dbctx.Context, parentNodeID string, since time.Time) ([]*types.PatternEvidence, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if parentNodeID == "" {
		return nil, nil
	}
	var out []*types.PatternEvidence
	if err := transaction.WithContext(dbc.Ctx).
		Where("parent_node_id = ? AND created_at >= ?", parentNodeID, since).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *patternEvidenceRepo) ListByPattern(dbc dbctx.Context, patternID string, limit int) ([]*types.PatternEvidence, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 500
	}
	var out []*types.PatternEvidence
	if err := transaction.WithContext(dbc.Ctx).
		Where("pattern_id = ?", patternID).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *patternEvidenceRepo) ListMeasuredSince(dbc dbctx.Context, since time.Time, limit int) ([]*types.PatternEvidence, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 1000
	}
	var out []*types.PatternEvidence
	if err := transaction.WithContext(dbc.Ctx).
		Where("created_at >= ? AND outcome IN ?", since,
			[]string{types.OutcomeSuccess, types.OutcomeFailure}).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
