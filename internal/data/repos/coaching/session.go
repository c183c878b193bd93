package coaching

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

type SessionRepo interface {
	Create(dbc dbctx.Context, session *types.CoachingSession) (*types.CoachingSession, error)
	GetBySessionID(dbc dbctx.Context, sessionID string) (*types.CoachingSession, error)
	Close(dbc dbctx.Context, id uuid.UUID, status string, endedAt time.Time) error
	ListRecent(dbc dbctx.Context, limit int) ([]*types.CoachingSession, error)
	CountByAssignment(dbc dbctx.Context) (map[string]int64, error)
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return &sessionRepo{
		db:  db,
		log: baseLog.With("repo", "CoachingSessionRepo"),
	}
}

func (r *sessionRepo) Create(dbc dbctx.Context, session *types.CoachingSession) (*types.CoachingSession, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if session == nil {
		return nil, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (r *sessionRepo) GetBySessionID(dbc dbctx.Context, sessionID string) (*types.CoachingSession, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if sessionID == "" {
		return nil, nil
	}
	var session types.CoachingSession
	err := transaction.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Limit(1).
		Find(&session).Error
	if err != nil {
		return nil, err
	}
	if session.ID == uuid.Nil {
		return nil, nil
	}
	return &session, nil
}

// Close marks a session terminal; the CAS on status=active makes a double
// close (client cancel racing loop shutdown) a harmless no-op.
func (r *sessionRepo) Close(dbc dbctx.Context, id uuid.UUID, status string, endedAt time.Time) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.CoachingSession{}).
		Where("id = ? AND status = ?", id, types.SessionActive).
		Updates(map[string]interface{}{
			"status":     status,
			"ended_at":   endedAt,
			"updated_at": endedAt,
		}).Error
}

func (r *sessionRepo) ListRecent(dbc dbctx.Context, limit int) ([]*types.CoachingSession, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*types.CoachingSession
	if err := transaction.WithContext(dbc.Ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sessionRepo) CountByAssignment(dbc dbctx.Context) (map[string]int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	type row struct {
		Assignment string
		Holdout    bool
		N          int64
	}
	var rows []row
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.CoachingSession{}).
		Select("assignment, holdout_group as holdout, count(*) as n").
		Group("assignment, holdout_group").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := map[string]int64{}
	for _, rr := range rows {
		key := rr.Assignment
		if rr.Holdout {
			key = "holdout"
		}
		out[key] += rr.N
	}
	return out, nil
}
