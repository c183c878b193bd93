package pattern

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

type LibraryRepo interface {
	AppendRevision(dbc dbctx.Context, entry *types.PatternLibraryEntry) (*types.PatternLibraryEntry, error)
	GetLatest(dbc dbctx.Context, patternID string) (*types.PatternLibraryEntry, error)
	GetRevision(dbc dbctx.Context, patternID string, revision int) (*types.PatternLibraryEntry, error)
	ListLatest(dbc dbctx.Context, limit int) ([]*types.PatternLibraryEntry, error)
	ListRevisions(dbc dbctx.Context, patternID string) ([]*types.PatternLibraryEntry, error)
}

type libraryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLibraryRepo(db *gorm.DB, baseLog *logger.Logger) LibraryRepo {
	return &libraryRepo{
		db:  db,
		log: baseLog.With("repo", "LibraryRepo"),
	}
}

// AppendRevision writes the next revision of a pattern. The revision number
// and previous_revision_id are derived from the current head inside the
// insert transaction, so the chain never forks: a concurrent append loses on
// the (pattern_id, revision) unique index and can retry.
func (r *libraryRepo) AppendRevision(dbc dbctx.Context, entry *types.PatternLibraryEntry) (*types.PatternLibraryEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if entry == nil || entry.PatternID == "" {
		return nil, nil
	}
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var head types.PatternLibraryEntry
		if err := txx.
			Where("pattern_id = ?", entry.PatternID).
			Order("revision DESC").
			Limit(1).
			Find(&head).Error; err != nil {
			return err
		}
		if head.ID != uuid.Nil {
			entry.Revision = head.Revision + 1
			prev := head.ID
			entry.PreviousRevisionID = &prev
		} else {
			entry.Revision = 1
			entry.PreviousRevisionID = nil
		}
		return txx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *libraryRepo) GetLatest(dbc dbctx.Context, patternID string) (*types.PatternLibraryEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if patternID == "" {
		return nil, nil
	}
	var entry types.PatternLibraryEntry
	err := transaction.WithContext(dbc.Ctx).
		Where("pattern_id = ?", patternID).
		Order("revision DESC").
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

func (r *libraryRepo) GetRevision(dbc dbctx.Context, patternID string, revision int) (*types.PatternLibraryEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if patternID == "" || revision < 1 {
		return nil, nil
	}
	var entry types.PatternLibraryEntry
	err := transaction.WithContext(dbc.Ctx).
		Where("pattern_id = ? AND revision = ?", patternID, revision).
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

// ListLatest returns the head revision of every pattern, newest first.
func (r *libraryRepo) ListLatest(dbc dbctx.Context, limit int) ([]*types.PatternLibraryEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var out []*types.PatternLibraryEntry
	err := transaction.WithContext(dbc.Ctx).
		Where(`(pattern_id, revision) IN (
			SELECT pattern_id, MAX(revision) FROM pattern_library
			WHERE deleted_at IS NULL GROUP BY pattern_id)`).
		Order("updated_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *libraryRepo) ListRevisions(dbc dbctx.Context, patternID string) ([]*types.PatternLibraryEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if patternID == "" {
		return nil, nil
	}
	var out []*types.PatternLibraryEntry
	if err := transaction.WithContext(dbc.Ctx).
		Where("pattern_id = ?", patternID).
		Order("revision ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
