package pipeline

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

type ArtifactRepo interface {
	Create(dbc dbctx.Context, artifacts []*types.Artifact) ([]*types.Artifact, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Artifact, error)
	ListByRun(dbc dbctx.Context, runID uuid.UUID) ([]*types.Artifact, error)
	ListByType(dbc dbctx.Context, artifactType string, limit int) ([]*types.Artifact, error)
	MarkOrphanedByRun(dbc dbctx.Context, runID uuid.UUID) (int64, error)
}

type artifactRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewArtifactRepo(db *gorm.DB, baseLog *logger.Logger) ArtifactRepo {
	return &artifactRepo{
		db:  db,
		log: baseLog.With("repo", "ArtifactRepo"),
	}
}

func (r *artifactRepo) Create(dbc dbctx.Context, artifacts []*types.Artifact) ([]*types.Artifact, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(artifacts) == 0 {
		return []*types.Artifact{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&artifacts).Error; err != nil {
		return nil, err
	}
	return artifacts, nil
}

func (r *artifactRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Artifact, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var artifact types.Artifact
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&artifact).Error
	if err != nil {
		return nil, err
	}
	if artifact.ID == uuid.Nil {
		return nil, nil
	}
	return &artifact, nil
}

func (r *artifactRepo) ListByRun(dbc dbctx.Context, runID uuid.UUID) ([]*types.Artifact, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Artifact
	if runID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("run_id = ?", runID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *artifactRepo) ListByType(dbc dbctx.Context, artifactType string, limit int) ([]*types.Artifact, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*types.Artifact
	if err := transaction.WithContext(dbc.Ctx).
		Where("artifact_type = ?", artifactType).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// MarkOrphanedByRun flags a cancelled run's artifacts; they stay readable for
// diagnostics but consumers skip them.
func (r *artifactRepo) MarkOrphanedByRun(dbc dbctx.Context, runID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if runID == uuid.Nil {
		return 0, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Artifact{}).
		Where("run_id = ?", runID).
		Updates(map[string]interface{}{
			"orphaned":   true,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
