package pattern

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

type ClusterRepo interface {
	Create(dbc dbctx.Context, cluster *types.PatternCluster) (*types.PatternCluster, error)
	GetByClusterID(dbc dbctx.Context, clusterID string) (*types.PatternCluster, error)
	ListCandidates(dbc dbctx.Context, patternType, platform string, limit int) ([]*types.PatternCluster, error)
	ListAll(dbc dbctx.Context, limit int) ([]*types.PatternCluster, error)
	AddMember(dbc dbctx.Context, clusterID string, outlierScore float64) error
	RecordRecurrence(dbc dbctx.Context, clusterID string, score float64, at time.Time) error
	UpdateFieldsByClusterID(dbc dbctx.Context, clusterID string, updates map[string]interface{}) error
	CountAll(dbc dbctx.Context) (int64, error)
}

type clusterRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewClusterRepo(db *gorm.DB, baseLog *logger.Logger) ClusterRepo {
	return &clusterRepo{
		db:  db,
		log: baseLog.With("repo", "ClusterRepo"),
	}
}

func (r *clusterRepo) Create(dbc dbctx.Context, cluster *types.PatternCluster) (*types.PatternCluster, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if cluster == nil {
		return nil, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(cluster).Error; err != nil {
		return nil, err
	}
	return cluster, nil
}

func (r *clusterRepo) GetByClusterID(dbc dbctx.Context, clusterID string) (*types.PatternCluster, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if clusterID == "" {
		return nil, nil
	}
	var cluster types.PatternCluster
	err := transaction.WithContext(dbc.Ctx).
		Where("cluster_id = ?", clusterID).
		Limit(1).
		Find(&cluster).Error
	if err != nil {
		return nil, err
	}
	if cluster.ID == uuid.Nil {
		return nil, nil
	}
	return &cluster, nil
}

// ListCandidates returns the cheap prefilter set for assignment: clusters of
// the same pattern type, restricted to a platform when one is known. Ordered
// oldest-first so deterministic inputs walk candidates in a stable order.
func (r *clusterRepo) ListCandidates(dbc dbctx.Context, patternType, platform string, limit int) ([]*types.PatternCluster, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 500
	}
	q := transaction.WithContext(dbc.Ctx).
		Model(&types.PatternCluster{}).
		Where("pattern_type = ?", patternType)
	if platform != "" {
		q = q.Where("platform = ? OR platform = ''", platform)
	}
	var out []*types.PatternCluster
	if err := q.Order("created_at ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *clusterRepo) ListAll(dbc dbctx.Context, limit int) ([]*types.PatternCluster, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 500
	}
	var out []*types.PatternCluster
	if err := transaction.WithContext(dbc.Ctx).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// AddMember bumps member_count and folds the new member's outlier score into
// the running average in a single UPDATE, so concurrent assigners never lose
// increments.
func (r *clusterRepo) AddMember(dbc dbctx.Context, clusterID string, outlierScore float64) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if clusterID == "" {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.PatternCluster{}).
		Where("cluster_id = ?", clusterID).
		Updates(map[string]interface{}{
			"avg_outlier_score": gorm.Expr(
				"(avg_outlier_score * member_count + ?) / (member_count + 1)", outlierScore),
			"member_count": gorm.Expr("member_count + 1"),
			"updated_at":   time.Now(),
		}).Error
}

func (r *clusterRepo) RecordRecurrence(dbc dbctx.Context, clusterID string, score float64, at time.Time) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if clusterID == "" {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.PatternCluster{}).
		Where("cluster_id = ?", clusterID).
		Updates(map[string]interface{}{
			"recurrence_score":   score,
			"recurrence_count":   gorm.Expr("recurrence_count + 1"),
			"last_recurrence_at": at,
			"updated_at":         at,
		}).Error
}

func (r *clusterRepo) UpdateFieldsByClusterID(dbc dbctx.Context, clusterID string, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if clusterID == "" {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.PatternCluster{}).
		Where("cluster_id = ?", clusterID).
		Updates(updates).Error
}

func (r *clusterRepo) CountAll(dbc dbctx.Context) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.PatternCluster{}).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
