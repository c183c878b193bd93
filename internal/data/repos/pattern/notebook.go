package pattern

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

type NotebookRepo interface {
	UpsertByNodeID(dbc dbctx.Context, entry *types.NotebookEntry) error
	GetByNodeID(dbc dbctx.Context, nodeID string) (*types.NotebookEntry, error)
	ListByCluster(dbc dbctx.Context, clusterID string, limit int) ([]*types.NotebookEntry, error)
	CountByCluster(dbc dbctx.Context, clusterID string) (int64, error)
}

type notebookRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNotebookRepo(db *gorm.DB, baseLog *logger.Logger) NotebookRepo {
	return &notebookRepo{
		db:  db,
		log: baseLog.With("repo", "NotebookRepo"),
	}
}

// UpsertByNodeID writes the library entry for a node, replacing the cluster
// reference and DNA if the node was re-clustered.
func (r *notebookRepo) UpsertByNodeID(dbc dbctx.Context, entry *types.NotebookEntry) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if entry == nil || entry.NodeID == "" {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "node_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"cluster_id":    entry.ClusterID,
				"dna":           entry.DNA,
				"outlier_score": entry.OutlierScore,
				"proof_ready":   entry.ProofReady,
				"updated_at":    time.Now(),
			}),
		}).
		Create(entry).Error
}

func (r *notebookRepo) GetByNodeID(dbc dbctx.Context, nodeID string) (*types.NotebookEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if nodeID == "" {
		return nil, nil
	}
	var entry types.NotebookEntry
	err := transaction.WithContext(dbc.Ctx).
		Where("node_id = ?", nodeID).
		Limit(1).
		Find(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.ID == uuid.Nil {
		return nil, nil
	}
	return &entry, nil
}

func (r *notebookRepo) ListByCluster(dbc dbctx.Context, clusterID string, limit int) ([]*types.NotebookEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var out []*types.NotebookEntry
	if err := transaction.WithContext(dbc.Ctx).
		Where("cluster_id = ?", clusterID).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *notebookRepo) CountByCluster(dbc dbctx.Context, clusterID string) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.NotebookEntry{}).
		Where("cluster_id = ?", clusterID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
