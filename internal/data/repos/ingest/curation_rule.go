package ingest

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

type CurationRuleRepo interface {
	UpsertByRuleID(dbc dbctx.Context, rules []*types.CurationRule) error
	GetByRuleID(dbc dbctx.Context, ruleID string) (*types.CurationRule, error)
	ListEnabled(dbc dbctx.Context) ([]*types.CurationRule, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type curationRuleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCurationRuleRepo(db *gorm.DB, baseLog *logger.Logger) CurationRuleRepo {
	return &curationRuleRepo{
		db:  db,
		log: baseLog.With("repo", "CurationRuleRepo"),
	}
}

// UpsertByRuleID lets the YAML loader re-seed rules idempotently: existing
// rule_ids get their definition refreshed, new ones insert.
func (r *curationRuleRepo) UpsertByRuleID(dbc dbctx.Context, rules []*types.CurationRule) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rules) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "rule_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"conditions", "action", "priority", "enabled", "notes", "updated_at"}),
		}).
		Create(&rules).Error
}

func (r *curationRuleRepo) GetByRuleID(dbc dbctx.Context, ruleID string) (*types.CurationRule, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if ruleID == "" {
		return nil, nil
	}
	var rule types.CurationRule
	err := transaction.WithContext(dbc.Ctx).
		Where("rule_id = ?", ruleID).
		Limit(1).
		Find(&rule).Error
	if err != nil {
		return nil, err
	}
	if rule.ID == uuid.Nil {
		return nil, nil
	}
	return &rule, nil
}

func (r *curationRuleRepo) ListEnabled(dbc dbctx.Context) ([]*types.CurationRule, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.CurationRule
	if err := transaction.WithContext(dbc.Ctx).
		Where("enabled = ?", true).
		Order("priority ASC, rule_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *curationRuleRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.CurationRule{}).
		Where("id = ?", id).
		Updates(updates).Error
}
