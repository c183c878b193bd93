package evidence

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

type BanditArmRepo interface {
	RecordOutcome(dbc dbctx.Context, patternID, mutationType, mutationPattern string, success bool) error
	ListByPattern(dbc dbctx.Context, patternID string) ([]*types.BanditArm, error)
	TouchSelected(dbc dbctx.Context, patternID, mutationType, mutationPattern string) error
}

type banditArmRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBanditArmRepo(db *gorm.DB, baseLog *logger.Logger) BanditArmRepo {
	return &banditArmRepo{
		db:  db,
		log: baseLog.With("repo", "BanditArmRepo"),
	}
}

// RecordOutcome upserts the arm and bumps the matching counter.
func (r *banditArmRepo) RecordOutcome(dbc dbctx.Context, patternID, mutationType, mutationPattern string, success bool) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if patternID == "" || mutationType == "" {
		return nil
	}
	arm := &types.BanditArm{
		PatternID:       patternID,
		MutationType:    mutationType,
		MutationPattern: mutationPattern,
	}
	counter := "failures"
	if success {
		arm.Successes = 1
		counter = "successes"
	} else {
		arm.Failures = 1
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "pattern_id"}, {Name: "mutation_type"}, {Name: "mutation_pattern"},
			},
			DoUpdates: clause.Assignments(map[string]interface{}{
				counter:      gorm.Expr(counter + " + 1"),
				"updated_at": time.Now(),
			}),
		}).
		Create(arm).Error
}

func (r *banditArmRepo) ListByPattern(dbc dbctx.Context, patternID string) ([]*types.BanditArm, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if patternID == "" {
		return nil, nil
	}
	var out []*types.BanditArm
	if err := transaction.WithContext(dbc.Ctx).
		Where("pattern_id = ?", patternID).
		Order("mutation_type ASC, mutation_pattern ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *banditArmRepo) TouchSelected(dbc dbctx.Context, patternID, mutationType, mutationPattern string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	return transaction.WithContext(dbc.Ctx).
		Model(&types.BanditArm{}).
		Where("pattern_id = ? AND mutation_type = ? AND mutation_pattern = ?",
			patternID, mutationType, mutationPattern).
		Updates(map[string]interface{}{
			"last_selected_at": now,
			"updated_at":       now,
		}).Error
}
