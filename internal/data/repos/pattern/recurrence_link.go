package pattern

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

type RecurrenceLinkRepo interface {
	GetByPair(dbc dbctx.Context, current, ancestor string) (*types.PatternRecurrenceLink, error)
	RecordObservation(dbc dbctx.Context, link *types.PatternRecurrenceLink) (*types.PatternRecurrenceLink, error)
	SetStatus(dbc dbctx.Context, current, ancestor, status string) error
	ListForCluster(dbc dbctx.Context, clusterID string, limit int) ([]*types.PatternRecurrenceLink, error)
	ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.PatternRecurrenceLink, error)
}

// confirmAtEvidence is the sighting count at which a candidate link flips to
// confirmed without curator action.
const confirmAtEvidence = 3

type recurrenceLinkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecurrenceLinkRepo(db *gorm.DB, baseLog *logger.Logger) RecurrenceLinkRepo {
	return &recurrenceLinkRepo{
		db:  db,
		log: baseLog.With("repo", "RecurrenceLinkRepo"),
	}
}

func (r *recurrenceLinkRepo) GetByPair(dbc dbctx.Context, current, ancestor string) (*types.PatternRecurrenceLink, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if current == "" || ancestor == "" {
		return nil, nil
	}
	var link types.PatternRecurrenceLink
	err := transaction.WithContext(dbc.Ctx).
		Where("cluster_id_current = ? AND cluster_id_ancestor = ?", current, ancestor).
		Limit(1).
		Find(&link).Error
	if err != nil {
		return nil, err
	}
	if link.ID == uuid.Nil {
		return nil, nil
	}
	return &link, nil
}

// RecordObservation creates the link on first sighting and otherwise bumps
// evidence_count, refreshes the sub-similarity breakdown and last_seen_at,
// and promotes candidate -> confirmed at the third sighting. Links a curator
// rejected stay rejected; we still count the sighting for the audit trail.
func (r *recurrenceLinkRepo) RecordObservation(dbc dbctx.Context, link *types.PatternRecurrenceLink) (*types.PatternRecurrenceLink, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if link == nil || link.ClusterIDCurrent == "" || link.ClusterIDAncestor == "" {
		return nil, nil
	}
	existing, err := r.GetByPair(dbc, link.ClusterIDCurrent, link.ClusterIDAncestor)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if existing == nil {
		link.Status = types.RecurrenceCandidate
		link.EvidenceCount = 1
		link.FirstSeenAt = now
		link.LastSeenAt = now
		if err := transaction.WithContext(dbc.Ctx).Create(link).Error; err != nil {
			return nil, err
		}
		return link, nil
	}

	updates := map[string]interface{}{
		"microbeat_sim":         link.MicrobeatSim,
		"hook_genome_sim":       link.HookGenomeSim,
		"focus_window_sim":      link.FocusWindowSim,
		"audio_format_sim":      link.AudioFormatSim,
		"comment_signature_sim": link.CommentSignatureSim,
		"product_slot_sim":      link.ProductSlotSim,
		"recurrence_score":      link.RecurrenceScore,
		"evidence_count":        gorm.Expr("evidence_count + 1"),
		"last_seen_at":          now,
		"updated_at":            now,
	}
	if existing.Status == types.RecurrenceCandidate && existing.EvidenceCount+1 >= confirmAtEvidence {
		updates["status"] = types.RecurrenceConfirmed
	}
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.PatternRecurrenceLink{}).
		Where("id = ?", existing.ID).
		Updates(updates).Error; err != nil {
		return nil, err
	}
	return r.GetByPair(dbc, link.ClusterIDCurrent, link.ClusterIDAncestor)
}

func (r *recurrenceLinkRepo) SetStatus(dbc dbctx.Context, current, ancestor, status string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if current == "" || ancestor == "" {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.PatternRecurrenceLink{}).
		Where("cluster_id_current = ? AND cluster_id_ancestor = ?", current, ancestor).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
}

func (r *recurrenceLinkRepo) ListForCluster(dbc dbctx.Context, clusterID string, limit int) ([]*types.PatternRecurrenceLink, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var out []*types.PatternRecurrenceLink
	if err := transaction.WithContext(dbc.Ctx).
		Where("cluster_id_current = ? OR cluster_id_ancestor = ?", clusterID, clusterID).
		Order("last_seen_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *recurrenceLinkRepo) ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.PatternRecurrenceLink, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var out []*types.PatternRecurrenceLink
	if err := transaction.WithContext(dbc.Ctx).
		Where("status = ?", status).
		Order("last_seen_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
