package evidence

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

type SnapshotRepo interface {
	Create(dbc dbctx.Context, snapshot *types.EvidenceSnapshot) (*types.EvidenceSnapshot, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.EvidenceSnapshot, error)
	GetByEvent(dbc dbctx.Context, eventID uuid.UUID) (*types.EvidenceSnapshot, error)
	GetLatestForParent(dbc dbctx.Context, parentNodeID string) (*types.EvidenceSnapshot, error)
}

type snapshotRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSnapshotRepo(db *gorm.DB, baseLog *logger.Logger) SnapshotRepo {
	return &snapshotRepo{
		db:  db,
		log: baseLog.With("repo", "EvidenceSnapshotRepo"),
	}
}

func (r *snapshotRepo) Create(dbc dbctx.Context, snapshot *types.EvidenceSnapshot) (*types.EvidenceSnapshot, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if snapshot == nil {
		return nil, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(snapshot).Error; err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (r *snapshotRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.EvidenceSnapshot, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var snapshot types.EvidenceSnapshot
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&snapshot).Error
	if err != nil {
		return nil, err
	}
	if snapshot.ID == uuid.Nil {
		return nil, nil
	}
	return &snapshot, nil
}

func (r *snapshotRepo) GetByEvent(dbc dbctx.Context, eventID uuid.UUID) (*types.EvidenceSnapshot, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if eventID == uuid.Nil {
		return nil, nil
	}
	var snapshot types.EvidenceSnapshot
	err := transaction.WithContext(dbc.Ctx).
		Where("event_id = ?", eventID).
		Limit(1).
		Find(&snapshot).Error
	if err != nil {
		return nil, err
	}
	if snapshot.ID == uuid.Nil {
		return nil, nil
	}
	return &snapshot, nil
}

func (r *snapshotRepo) GetLatestForParent(dbc dbctx.Context, parentNodeID string) (*types.EvidenceSnapshot, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if parentNodeID == "" {
		return nil, nil
	}
	var snapshot types.EvidenceSnapshot
	err := transaction.WithContext(dbc.Ctx).
		Where("parent_node_id = ?", parentNodeID).
		Order("created_at DESC").
		Limit(1).
		Find(&snapshot).Error
	if err != nil {
		return nil, err
	}
	if snapshot.ID == uuid.Nil {
		return nil, nil
	}
	return &snapshot, nil
}
