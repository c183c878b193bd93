package evidence

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

type EventRepo interface {
	Create(dbc dbctx.Context, event *types.EvidenceEvent) (*types.EvidenceEvent, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.EvidenceEvent, error)
	GetByEventID(dbc dbctx.Context, eventID string) (*types.EvidenceEvent, error)
	TransitionCAS(dbc dbctx.Context, id uuid.UUID, fromStatus string, updates map[string]interface{}) (bool, error)
	ListPending(dbc dbctx.Context, parentNodeID string, limit int) ([]*types.EvidenceEvent, error)
	ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.EvidenceEvent, error)
	GetLatestForParent(dbc dbctx.Context, parentNodeID string) (*types.EvidenceEvent, error)
	GetActiveForParent(dbc dbctx.Context, parentNodeID string) (*types.EvidenceEvent, error)
}

type eventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEventRepo(db *gorm.DB, baseLog *logger.Logger) EventRepo {
	return &eventRepo{
		db:  db,
		log: baseLog.With("repo", "EvidenceEventRepo"),
	}
}

func (r *eventRepo) Create(dbc dbctx.Context, event *types.EvidenceEvent) (*types.EvidenceEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if event == nil {
		return nil, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

func (r *eventRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.EvidenceEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var event types.EvidenceEvent
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&event).Error
	if err != nil {
		return nil, err
	}
	if event.ID == uuid.Nil {
		return nil, nil
	}
	return &event, nil
}

func (r *eventRepo) GetByEventID(dbc dbctx.Context, eventID string) (*types.EvidenceEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if eventID == "" {
		return nil, nil
	}
	var event types.EvidenceEvent
	err := transaction.WithContext(dbc.Ctx).
		Where("event_id = ?", eventID).
		Limit(1).
		Find(&event).Error
	if err != nil {
		return nil, err
	}
	if event.ID == uuid.Nil {
		return nil, nil
	}
	return &event, nil
}

// TransitionCAS is the only write path for event lifecycle fields: the update
// lands iff the row still holds fromStatus. RowsAffected == 0 means another
// writer got there first or the requested edge is stale; the service layer
// re-reads and classifies.
func (r *eventRepo) TransitionCAS(dbc dbctx.Context, id uuid.UUID, fromStatus string, updates map[string]interface{}) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || fromStatus == "" {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.EvidenceEvent{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListPending returns events that still need work, oldest first. Pending here
// means any non-terminal status.
func (r *eventRepo) ListPending(dbc dbctx.Context, parentNodeID string, limit int) ([]*types.EvidenceEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("status NOT IN ?", []string{types.EvidenceMeasured, types.EvidenceFailed})
	if parentNodeID != "" {
		q = q.Where("parent_node_id = ?", parentNodeID)
	}
	var out []*types.EvidenceEvent
	if err := q.Order("created_at ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *eventRepo) ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.EvidenceEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var out []*types.EvidenceEvent
	if err := transaction.WithContext(dbc.Ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *eventRepo) GetLatestForParent(dbc dbctx.Context, parentNodeID string) (*types.EvidenceEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if parentNodeID == "" {
		return nil, nil
	}
	var event types.EvidenceEvent
	err := transaction.WithContext(dbc.Ctx).
		Where("parent_node_id = ?", parentNodeID).
		Order("created_at DESC").
		Limit(1).
		Find(&event).Error
	if err != nil {
		return nil, err
	}
	if event.ID == uuid.Nil {
		return nil, nil
	}
	return &event, nil
}

// GetActiveForParent returns the newest non-terminal event for a parent, if
// one exists. Used to avoid stacking concurrent cycles on one parent.
func (r *eventRepo) GetActiveForParent(dbc dbctx.Context, parentNodeID string) (*types.EvidenceEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if parentNodeID == "" {
		return nil, nil
	}
	var event types.EvidenceEvent
	err := transaction.WithContext(dbc.Ctx).
		Where("parent_node_id = ? AND status NOT IN ?",
			parentNodeID, []string{types.EvidenceMeasured, types.EvidenceFailed}).
		Order("created_at DESC").
		Limit(1).
		Find(&event).Error
	if err != nil {
		return nil, err
	}
	if event.ID == uuid.Nil {
		return nil, nil
	}
	return &event, nil
}
