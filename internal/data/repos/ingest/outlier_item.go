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

type OutlierItemRepo interface {
	InsertIgnoreDupes(dbc dbctx.Context, items []*types.OutlierItem) (int64, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.OutlierItem, error)
	GetByPlatformExternalID(dbc dbctx.Context, platform, externalID string) (*types.OutlierItem, error)
	ExistsByCanonicalURL(dbc dbctx.Context, canonicalURL string) (bool, error)
	ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.OutlierItem, error)
	ListForAnalysis(dbc dbctx.Context, limit int) ([]*types.OutlierItem, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	MarkPromoted(dbc dbctx.Context, id uuid.UUID, nodeID string) error
	ListPromotedWithoutNode(dbc dbctx.Context, limit int) ([]*types.OutlierItem, error)
	ListPromoted(dbc dbctx.Context, limit int) ([]*types.OutlierItem, error)
	CountBySourcePrefix(dbc dbctx.Context, prefix string) (int64, error)
}

type outlierItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOutlierItemRepo(db *gorm.DB, baseLog *logger.Logger) OutlierItemRepo {
	return &outlierItemRepo{
		db:  db,
		log: baseLog.With("repo", "OutlierItemRepo"),
	}
}

// InsertIgnoreDupes inserts pre-canonicalized items, silently skipping rows
// that collide on (platform, external_id) or canonical_url. The returned
// count is how many rows were actually new, which is what makes crawler
// replays observable no-ops.
func (r *outlierItemRepo) InsertIgnoreDupes(dbc dbctx.Context, items []*types.OutlierItem) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(items) == 0 {
		return 0, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&items)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *outlierItemRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.OutlierItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var item types.OutlierItem
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == uuid.Nil {
		return nil, nil
	}
	return &item, nil
}

func (r *outlierItemRepo) GetByPlatformExternalID(dbc dbctx.Context, platform, externalID string) (*types.OutlierItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if platform == "" || externalID == "" {
		return nil, nil
	}
	var item types.OutlierItem
	err := transaction.WithContext(dbc.Ctx).
		Where("platform = ? AND external_id = ?", platform, externalID).
		Limit(1).
		Find(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == uuid.Nil {
		return nil, nil
	}
	return &item, nil
}

func (r *outlierItemRepo) ExistsByCanonicalURL(dbc dbctx.Context, canonicalURL string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if canonicalURL == "" {
		return false, nil
	}
	var count int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.OutlierItem{}).
		Where("canonical_url = ?", canonicalURL).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *outlierItemRepo) ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.OutlierItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var out []*types.OutlierItem
	if err := transaction.WithContext(dbc.Ctx).
		Where("status = ?", status).
		Order("outlier_score DESC, created_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListForAnalysis returns promoted items whose analysis is approved to start.
func (r *outlierItemRepo) ListForAnalysis(dbc dbctx.Context, limit int) ([]*types.OutlierItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 20
	}
	var out []*types.OutlierItem
	if err := transaction.WithContext(dbc.Ctx).
		Where("status = ? AND analysis_status = ?", types.OutlierStatusPromoted, types.AnalysisApproved).
		Order("outlier_score DESC, created_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *outlierItemRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.OutlierItem{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// MarkPromoted flips status and records the node in one write; analysis may
// only leave pending once this lands.
func (r *outlierItemRepo) MarkPromoted(dbc dbctx.Context, id uuid.UUID, nodeID string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || nodeID == "" {
		return nil
	}
	now := time.Now()
	return transaction.WithContext(dbc.Ctx).
		Model(&types.OutlierItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":              types.OutlierStatusPromoted,
			"promoted_to_node_id": nodeID,
			"analysis_status":     types.AnalysisApproved,
			"updated_at":          now,
		}).Error
}

// ListPromotedWithoutNode surfaces invariant violations for the state audit.
func (r *outlierItemRepo) ListPromotedWithoutNode(dbc dbctx.Context, limit int) ([]*types.OutlierItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var out []*types.OutlierItem
	if err := transaction.WithContext(dbc.Ctx).
		Where("status = ? AND (promoted_to_node_id IS NULL OR promoted_to_node_id = '')", types.OutlierStatusPromoted).
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListPromoted returns promoted items carrying their node link and source
// label, for cross-checks against the node and cluster tables.
func (r *outlierItemRepo) ListPromoted(dbc dbctx.Context, limit int) ([]*types.OutlierItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 500
	}
	var out []*types.OutlierItem
	if err := transaction.WithContext(dbc.Ctx).
		Where("status = ?", types.OutlierStatusPromoted).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *outlierItemRepo) CountBySourcePrefix(dbc dbctx.Context, prefix string) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.OutlierItem{}).
		Where("source_name LIKE ?", prefix+"%").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
