package pipeline

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RunTypeCrawler          = "CRAWLER"
	RunTypeAnalysis         = "ANALYSIS"
	RunTypeClustering       = "CLUSTERING"
	RunTypeEvidence         = "EVIDENCE"
	RunTypeSourcePack       = "SOURCE_PACK"
	RunTypePatternSynthesis = "PATTERN_SYNTHESIS"
	RunTypeDecision         = "DECISION"
	RunTypeBandit           = "BANDIT"
	RunTypeCardRender       = "CARD_RENDER"
)

const (
	RunStatusQueued    = "QUEUED"
	RunStatusRunning   = "RUNNING"
	RunStatusCompleted = "COMPLETED"
	RunStatusFailed    = "FAILED"
	RunStatusCancelled = "CANCELLED"
)

// Run is one idempotent execution of a pipeline. The idempotency key is the
// SHA-256 of the canonical-JSON inputs; partial unique indexes on
// (run_type, idempotency_key) keep at most one RUNNING and one COMPLETED row
// per key (see db.AutoMigrateAll).
type Run struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RunID          string         `gorm:"column:run_id;not null;uniqueIndex" json:"run_id"`
	RunType        string         `gorm:"column:run_type;not null;index:idx_run_type_key,priority:1" json:"run_type"`
	Status         string         `gorm:"column:status;not null;index" json:"status"`
	IdempotencyKey string         `gorm:"column:idempotency_key;not null;index:idx_run_type_key,priority:2" json:"idempotency_key"`
	InputsJSON     datatypes.JSON `gorm:"column:inputs_json;type:jsonb" json:"inputs_json"`
	ResultSummary  datatypes.JSON `gorm:"column:result_summary;type:jsonb" json:"result_summary,omitempty"`
	ErrorMessage   string         `gorm:"column:error_message" json:"error_message,omitempty"`
	ErrorTraceback string         `gorm:"column:error_traceback" json:"error_traceback,omitempty"`
	TriggeredBy    string         `gorm:"column:triggered_by" json:"triggered_by,omitempty"`
	ParentRunID    *uuid.UUID     `gorm:"type:uuid;column:parent_run_id;index" json:"parent_run_id,omitempty"`
	TimeoutSeconds int            `gorm:"column:timeout_seconds;not null;default:600" json:"timeout_seconds"`
	Attempts       int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	HeartbeatAt    *time.Time     `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`
	StartedAt      *time.Time     `gorm:"column:started_at" json:"started_at,omitempty"`
	EndedAt        *time.Time     `gorm:"column:ended_at" json:"ended_at,omitempty"`
	DurationMS     *int64         `gorm:"column:duration_ms" json:"duration_ms,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Run) TableName() string { return "pipeline_run" }

// IsTerminalRunStatus reports whether no further transition is legal.
func IsTerminalRunStatus(s string) bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// ValidRunType reports whether t is one of the known pipeline run types.
func ValidRunType(t string) bool {
	switch t {
	case RunTypeCrawler, RunTypeAnalysis, RunTypeClustering, RunTypeEvidence,
		RunTypeSourcePack, RunTypePatternSynthesis, RunTypeDecision, RunTypeBandit,
		RunTypeCardRender:
		return true
	default:
		return false
	}
}
