package evidence

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DecisionGo    = "GO"
	DecisionStop  = "STOP"
	DecisionPivot = "PIVOT"
)

const (
	DecisionMethodAuto   = "auto"
	DecisionMethodManual = "manual"
	DecisionMethodHybrid = "hybrid"
)

// Decision is the outcome object of one evidence cycle. Produced exactly once
// per event during EVIDENCE_READY -> DECIDED; the event reference and this
// row's FK are written in the same transaction.
type Decision struct {
	ID                   uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	DecisionID           string         `gorm:"column:decision_id;not null;uniqueIndex" json:"decision_id"`
	EventID              uuid.UUID      `gorm:"type:uuid;column:event_id;not null;index" json:"event_id"`
	DecisionType         string         `gorm:"column:decision_type;not null;index" json:"decision_type"`
	DecisionJSON         datatypes.JSON `gorm:"column:decision_json;type:jsonb" json:"decision_json"`
	EvidenceSummary      string         `gorm:"column:evidence_summary" json:"evidence_summary,omitempty"`
	DecisionMethod       string         `gorm:"column:decision_method;not null;default:auto" json:"decision_method"`
	DecidedBy            string         `gorm:"column:decided_by" json:"decided_by,omitempty"`
	DecidedAt            time.Time      `gorm:"column:decided_at;not null;default:now()" json:"decided_at"`
	TranscriptArtifactID *uuid.UUID     `gorm:"type:uuid;column:transcript_artifact_id" json:"transcript_artifact_id,omitempty"`
	StpfResult           datatypes.JSON `gorm:"column:stpf_result;type:jsonb" json:"stpf_result,omitempty"`
	CreatedAt            time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Decision) TableName() string { return "decision_object" }
