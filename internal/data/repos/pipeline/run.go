package pipeline

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

type RunRepo interface {
	Create(dbc dbctx.Context, run *types.Run) (*types.Run, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Run, error)
	GetByRunID(dbc dbctx.Context, runID string) (*types.Run, error)
	GetCompletedByKey(dbc dbctx.Context, runType, idempotencyKey string) (*types.Run, error)
	GetActiveByKey(dbc dbctx.Context, runType, idempotencyKey string) (*types.Run, error)
	ClaimNextQueued(dbc dbctx.Context) (*types.Run, error)
	SoftDelete(dbc dbctx.Context, id uuid.UUID) error
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	UpdateFieldsWhereStatus(dbc dbctx.Context, id uuid.UUID, expectStatus string, updates map[string]interface{}) (bool, error)
	Heartbeat(dbc dbctx.Context, id uuid.UUID) error
	FailOverdue(dbc dbctx.Context, now time.Time) (int64, error)
	ListRecent(dbc dbctx.Context, runType string, limit int) ([]*types.Run, error)
	ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.Run, error)
	CountByStatus(dbc dbctx.Context) (map[string]int64, error)
}

type runRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRunRepo(db *gorm.DB, baseLog *logger.Logger) RunRepo {
	return &runRepo{
		db:  db,
		log: baseLog.With("repo", "RunRepo"),
	}
}

func (r *runRepo) Create(dbc dbctx.Context, run *types.Run) (*types.Run, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if run == nil {
		return nil, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *runRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Run, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var run types.Run
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&run).Error
	if err != nil {
		return nil, err
	}
	if run.ID == uuid.Nil {
		return nil, nil
	}
	return &run, nil
}

func (r *runRepo) GetByRunID(dbc dbctx.Context, runID string) (*types.Run, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if runID == "" {
		return nil, nil
	}
	var run types.Run
	err := transaction.WithContext(dbc.Ctx).
		Where("run_id = ?", runID).
		Limit(1).
		Find(&run).Error
	if err != nil {
		return nil, err
	}
	if run.ID == uuid.Nil {
		return nil, nil
	}
	return &run, nil
}

func (r *runRepo) GetCompletedByKey(dbc dbctx.Context, runType, idempotencyKey string) (*types.Run, error) {
	return r.getByKeyAndStatuses(dbc, runType, idempotencyKey, []string{types.RunStatusCompleted})
}

// GetActiveByKey returns a QUEUED or RUNNING run for the key, if any. Used to
// report Conflict to callers instead of double-starting.
func (r *runRepo) GetActiveByKey(dbc dbctx.Context, runType, idempotencyKey string) (*types.Run, error) {
	return r.getByKeyAndStatuses(dbc, runType, idempotencyKey, []string{types.RunStatusQueued, types.RunStatusRunning})
}

func (r *runRepo) getByKeyAndStatuses(dbc dbctx.Context, runType, idempotencyKey string, statuses []string) (*types.Run, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if runType == "" || idempotencyKey == "" {
		return nil, nil
	}
	var run types.Run
	err := transaction.WithContext(dbc.Ctx).
		Where("run_type = ? AND idempotency_key = ? AND status IN ?", runType, idempotencyKey, statuses).
		Order("created_at DESC").
		Limit(1).
		Find(&run).Error
	if err != nil {
		return nil, err
	}
	if run.ID == uuid.Nil {
		return nil, nil
	}
	return &run, nil
}

// ClaimNextQueued takes the oldest QUEUED run, marks it RUNNING, and returns
// it. SKIP LOCKED keeps concurrent workers from fighting over the same row.
func (r *runRepo) ClaimNextQueued(dbc dbctx.Context) (*types.Run, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	var claimed *types.Run
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var run types.Run
		q := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ?", types.RunStatusQueued).
			Order("created_at ASC")
		qErr := q.First(&run).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := txx.Model(&types.Run{}).
			Where("id = ?", run.ID).
			Updates(map[string]interface{}{
				"status":       types.RunStatusRunning,
				"attempts":     gorm.Expr("attempts + 1"),
				"started_at":   now,
				"heartbeat_at": now,
				"updated_at":   now,
			}).Error
		if uErr != nil {
			return uErr
		}
		run.Status = types.RunStatusRunning
		run.StartedAt = &now
		run.Attempts++
		claimed = &run
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// SoftDelete removes a run from the live set. The partial unique indexes
// exclude deleted rows, which is what lets a superseded COMPLETED run make
// room for a rerun under the same key.
func (r *runRepo) SoftDelete(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Delete(&types.Run{}, "id = ?", id).Error
}

func (r *runRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.Run{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// UpdateFieldsWhereStatus is the optimistic CAS used for lifecycle writes:
// the update lands only if the row is still in expectStatus.
func (r *runRepo) UpdateFieldsWhereStatus(dbc dbctx.Context, id uuid.UUID, expectStatus string, updates map[string]interface{}) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Run{}).
		Where("id = ? AND status = ?", id, expectStatus).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *runRepo) Heartbeat(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	now := time.Now()
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Run{}).
		Where("id = ? AND status = ?", id, types.RunStatusRunning).
		Updates(map[string]interface{}{
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
}

// FailOverdue fails every RUNNING run whose declared timeout has elapsed.
func (r *runRepo) FailOverdue(dbc dbctx.Context, now time.Time) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Run{}).
		Where("status = ? AND started_at IS NOT NULL AND started_at + make_interval(secs => timeout_seconds) < ?",
			types.RunStatusRunning, now).
		Updates(map[string]interface{}{
			"status":        types.RunStatusFailed,
			"error_message": "run timeout exceeded",
			"ended_at":      now,
			"updated_at":    now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *runRepo) ListRecent(dbc dbctx.Context, runType string, limit int) ([]*types.Run, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	q := transaction.WithContext(dbc.Ctx).Model(&types.Run{})
	if runType != "" {
		q = q.Where("run_type = ?", runType)
	}
	var out []*types.Run
	if err := q.Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *runRepo) ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.Run, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var out []*types.Run
	if err := transaction.WithContext(dbc.Ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *runRepo) CountByStatus(dbc dbctx.Context) (map[string]int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Run{}).
		Select("status, count(*) as n").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, rr := range rows {
		out[rr.Status] = rr.N
	}
	return out, nil
}
