package db

import (
	"fmt"

	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// =========================
		// Pipeline engine
		// =========================
		&types.Run{},
		&types.Artifact{},

		// =========================
		// Ingest + curation
		// =========================
		&types.OutlierItem{},
		&types.CurationRule{},

		// =========================
		// Pattern tree + clustering
		// =========================
		&types.PatternNode{},
		&types.PatternCluster{},
		&types.PatternRecurrenceLink{},
		&types.NotebookEntry{},
		&types.PatternLibraryEntry{},
		&types.DirectorPack{},

		// =========================
		// Evidence loop
		// =========================
		&types.EvidenceEvent{},
		&types.EvidenceSnapshot{},
		&types.DecisionObject{},
		&types.PatternPrior{},
		&types.PatternEvidence{},
		&types.BanditArm{},

		// =========================
		// Coaching
		// =========================
		&types.CoachingSession{},
		&types.CoachingIntervention{},
		&types.CoachingOutcome{},
		&types.CoachingUploadOutcome{},
	)
}

// EnsurePipelineIndexes adds the constraints AutoMigrate cannot express.
// The two partial unique indexes carry the idempotency invariant: at most one
// RUNNING and at most one COMPLETED row per (run_type, idempotency_key).
func EnsurePipelineIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_run_key_running
		ON pipeline_run (run_type, idempotency_key)
		WHERE status = 'RUNNING' AND deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_run_key_running: %w", err)
	}

	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_run_key_completed
		ON pipeline_run (run_type, idempotency_key)
		WHERE status = 'COMPLETED' AND deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_run_key_completed: %w", err)
	}

	// FIFO claim scans QUEUED rows in insertion order.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_run_queued_fifo
		ON pipeline_run (created_at)
		WHERE status = 'QUEUED' AND deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_run_queued_fifo: %w", err)
	}

	if err := db.Exec(`
		ALTER TABLE pipeline_artifact
		DROP CONSTRAINT IF EXISTS fk_artifact_run_id;
	`).Error; err != nil {
		return fmt.Errorf("drop fk_artifact_run_id: %w", err)
	}
	if err := db.Exec(`
		ALTER TABLE pipeline_artifact
		ADD CONSTRAINT fk_artifact_run_id
		FOREIGN KEY (run_id)
		REFERENCES pipeline_run(id);
	`).Error; err != nil {
		return fmt.Errorf("add fk_artifact_run_id: %w", err)
	}

	return nil
}

// EnsureEvidenceIndexes backs the per-parent reducer and pending-event scans.
func EnsureEvidenceIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_evidence_event_parent_status
		ON evidence_event (parent_node_id, status, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_evidence_event_parent_status: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_pattern_evidence_unapplied
		ON pattern_evidence (pattern_id, created_at)
		WHERE applied = false AND deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_pattern_evidence_unapplied: %w", err)
	}

	return nil
}

// EnsureCoachingIndexes backs per-session intervention reads and the
// outcome-window re-check.
func EnsureCoachingIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_intervention_session_rule
		ON coaching_intervention (session_id, rule_id, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_intervention_session_rule: %w", err)
	}

	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsurePipelineIndexes(s.db); err != nil {
		s.log.Error("Pipeline index migration failed", "error", err)
		return err
	}
	if err := EnsureEvidenceIndexes(s.db); err != nil {
		s.log.Error("Evidence index migration failed", "error", err)
		return err
	}
	if err := EnsureCoachingIndexes(s.db); err != nil {
		s.log.Error("Coaching index migration failed", "error", err)
		return err
	}

	return nil
}
