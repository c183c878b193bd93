package pattern

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

type DirectorPackRepo interface {
	AppendRevision(dbc dbctx.Context, pack *types.DirectorPack) (*types.DirectorPack, error)
	GetByPackID(dbc dbctx.Context, packID string) (*types.DirectorPack, error)
	GetLatestByPattern(dbc dbctx.Context, patternID string) (*types.DirectorPack, error)
	ListByPattern(dbc dbctx.Context, patternID string) ([]*types.DirectorPack, error)
}

type directorPackRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDirectorPackRepo(db *gorm.DB, baseLog *logger.Logger) DirectorPackRepo {
	return &directorPackRepo{
		db:  db,
		log: baseLog.With("repo", "DirectorPackRepo"),
	}
}

// AppendRevision inserts the next pack revision for a pattern. Packs are
// immutable; this never updates an existing row.
func (r *directorPackRepo) AppendRevision(dbc dbctx.Context, pack *types.DirectorPack) (*types.DirectorPack, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if pack == nil || pack.PatternID == "" {
		return nil, nil
	}
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var head types.DirectorPack
		if err := txx.
			Where("pattern_id = ?", pack.PatternID).
			Order("revision DESC").
			Limit(1).
			Find(&head).Error; err != nil {
			return err
		}
		if head.ID != uuid.Nil {
			pack.Revision = head.Revision + 1
		} else {
			pack.Revision = 1
		}
		return txx.Create(pack).Error
	})
	if err != nil {
		return nil, err
	}
	return pack, nil
}

func (r *directorPackRepo) GetByPackID(dbc dbctx.Context, packID string) (*types.DirectorPack, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if packID == "" {
		return nil, nil
	}
	var pack types.DirectorPack
	err := transaction.WithContext(dbc.Ctx).
		Where("pack_id = ?", packID).
		Limit(1).
		Find(&pack).Error
	if err != nil {
		return nil, err
	}
	if pack.ID == uuid.Nil {
		return nil, nil
	}
	return &pack, nil
}

func (r *directorPackRepo) GetLatestByPattern(dbc dbctx.Context, patternID string) (*types.DirectorPack, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if patternID == "" {
		return nil, nil
	}
	var pack types.DirectorPack
	err := transaction.WithContext(dbc.Ctx).
		Where("pattern_id = ?", patternID).
		Order("revision DESC").
		Limit(1).
		Find(&pack).Error
	if err != nil {
		return nil, err
	}
	if pack.ID == uuid.Nil {
		return nil, nil
	}
	return &pack, nil
}

func (r *directorPackRepo) ListByPattern(dbc dbctx.Context, patternID string) ([]*types.DirectorPack, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if patternID == "" {
		return nil, nil
	}
	var out []*types.DirectorPack
	if err := transaction.WithContext(dbc.Ctx).
		Where("pattern_id = ?", patternID).
		Order("revision ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
