package pattern

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

// DepthStat aggregates child performance per genealogy depth. Backs the
// track_depth_experiment tool.
type DepthStat struct {
	GenealogyDepth int     `json:"genealogy_depth"`
	NodeCount      int64   `json:"node_count"`
	AvgViewCount   float64 `json:"avg_view_count"`
	PublishedCount int64   `json:"published_count"`
}

type NodeRepo interface {
	Create(dbc dbctx.Context, nodes []*types.PatternNode) ([]*types.PatternNode, error)
	GetByNodeID(dbc dbctx.Context, nodeID string) (*types.PatternNode, error)
	ListChildren(dbc dbctx.Context, parentNodeID string) ([]*types.PatternNode, error)
	ListByCluster(dbc dbctx.Context, clusterID string, limit int) ([]*types.PatternNode, error)
	ListUnclustered(dbc dbctx.Context, limit int) ([]*types.PatternNode, error)
	ListMasters(dbc dbctx.Context, limit int) ([]*types.PatternNode, error)
	UpdateFieldsByNodeID(dbc dbctx.Context, nodeID string, updates map[string]interface{}) error
	IncrementForkCount(dbc dbctx.Context, parentNodeID string) error
	DepthStatsForParent(dbc dbctx.Context, parentNodeID string, since time.Time) ([]DepthStat, error)
	ListParentsWithChildren(dbc dbctx.Context, limit int) ([]string, error)
	ListOrphanChildren(dbc dbctx.Context, limit int) ([]*types.PatternNode, error)
}

type nodeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNodeRepo(db *gorm.DB, baseLog *logger.Logger) NodeRepo {
	return &nodeRepo{
		db:  db,
		log: baseLog.With("repo", "NodeRepo"),
	}
}

func (r *nodeRepo) Create(dbc dbctx.Context, nodes []*types.PatternNode) ([]*types.PatternNode, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(nodes) == 0 {
		return []*types.PatternNode{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&nodes).Error; err != nil {
		return nil, err
	}
	return nodes, nil
}

func (r *nodeRepo) GetByNodeID(dbc dbctx.Context, nodeID string) (*types.PatternNode, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if nodeID == "" {
		return nil, nil
	}
	var node types.PatternNode
	err := transaction.WithContext(dbc.Ctx).
		Where("node_id = ?", nodeID).
		Limit(1).
		Find(&node).Error
	if err != nil {
		return nil, err
	}
	if node.ID == uuid.Nil {
		return nil, nil
	}
	return &node, nil
}

func (r *nodeRepo) ListChildren(dbc dbctx.Context, parentNodeID string) ([]*types.PatternNode, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.PatternNode
	if parentNodeID == "" {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("parent_node_id = ?", parentNodeID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *nodeRepo) ListByCluster(dbc dbctx.Context, clusterID string, limit int) ([]*types.PatternNode, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var out []*types.PatternNode
	if clusterID == "" {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("cluster_id = ?", clusterID).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListUnclustered returns analyzed nodes awaiting assignment, oldest first so
// batch clustering is deterministic given insertion order.
func (r *nodeRepo) ListUnclustered(dbc dbctx.Context, limit int) ([]*types.PatternNode, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*types.PatternNode
	if err := transaction.WithContext(dbc.Ctx).
		Where("cluster_id = '' AND gemini_analysis IS NOT NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *nodeRepo) ListMasters(dbc dbctx.Context, limit int) ([]*types.PatternNode, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var out []*types.PatternNode
	if err := transaction.WithContext(dbc.Ctx).
		Where("layer = ?", types.LayerMaster).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *nodeRepo) UpdateFieldsByNodeID(dbc dbctx.Context, nodeID string, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if nodeID == "" {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.PatternNode{}).
		Where("node_id = ?", nodeID).
		Updates(updates).Error
}

func (r *nodeRepo) IncrementForkCount(dbc dbctx.Context, parentNodeID string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if parentNodeID == "" {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.PatternNode{}).
		Where("node_id = ?", parentNodeID).
		Updates(map[string]interface{}{
			"total_fork_count": gorm.Expr("total_fork_count + 1"),
			"updated_at":       time.Now(),
		}).Error
}

func (r *nodeRepo) DepthStatsForParent(dbc dbctx.Context, parentNodeID string, since time.Time) ([]DepthStat, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []DepthStat
	if parentNodeID == "" {
		return out, nil
	}
	// One level of indirection covers FORK_OF_FORK: children whose parent is
	// itself a child of the root.
	err := transaction.WithContext(dbc.Ctx).Raw(`
		WITH RECURSIVE lineage AS (
			SELECT node_id, genealogy_depth, view_count, is_published, created_at
			FROM pattern_node
			WHERE parent_node_id = ? AND deleted_at IS NULL
			UNION ALL
			SELECT c.node_id, c.genealogy_depth, c.view_count, c.is_published, c.created_at
			FROM pattern_node c
			JOIN lineage l ON c.parent_node_id = l.node_id
			WHERE c.deleted_at IS NULL
		)
		SELECT genealogy_depth,
		       count(*) AS node_count,
		       avg(view_count) AS avg_view_count,
		       count(*) FILTER (WHERE is_published) AS published_count
		FROM lineage
		WHERE created_at >= ?
		GROUP BY genealogy_depth
		ORDER BY genealogy_depth ASC
	`, parentNodeID, since).Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *nodeRepo) ListParentsWithChildren(dbc dbctx.Context, limit int) ([]string, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var out []string
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.PatternNode{}).
		Distinct("parent_node_id").
		Where("parent_node_id <> ''").
		Limit(limit).
		Pluck("parent_node_id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListOrphanChildren finds children whose parent_node_id resolves to nothing;
// the state audit reports them.
func (r *nodeRepo) ListOrphanChildren(dbc dbctx.Context, limit int) ([]*types.PatternNode, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var out []*types.PatternNode
	if err := transaction.WithContext(dbc.Ctx).
		Raw(`
			SELECT c.* FROM pattern_node c
			LEFT JOIN pattern_node p ON p.node_id = c.parent_node_id AND p.deleted_at IS NULL
			WHERE c.parent_node_id <> '' AND c.deleted_at IS NULL AND p.id IS NULL
			LIMIT ?
		`, limit).
		Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
