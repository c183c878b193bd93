package evidence

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusQueued        = "QUEUED"
	StatusRunning       = "RUNNING"
	StatusEvidenceReady = "EVIDENCE_READY"
	StatusDecided       = "DECIDED"
	StatusExecuted      = "EXECUTED"
	StatusMeasured      = "MEASURED"
	StatusFailed        = "FAILED"
)

// Event carries one pass of the evidence loop for a parent node. A row is
// only ever advanced by a compare-and-swap on (id, status); MEASURED and
// FAILED are final.
type Event struct {
	ID                 uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	EventID            string         `gorm:"column:event_id;not null;uniqueIndex" json:"event_id"`
	ParentNodeID       string         `gorm:"column:parent_node_id;not null;index" json:"parent_node_id"`
	RunID              *uuid.UUID     `gorm:"type:uuid;column:run_id;index" json:"run_id,omitempty"`
	Status             string         `gorm:"column:status;not null;default:QUEUED;index" json:"status"`
	EvidenceSnapshotID *uuid.UUID     `gorm:"type:uuid;column:evidence_snapshot_id" json:"evidence_snapshot_id,omitempty"`
	DecisionObjectID   *uuid.UUID     `gorm:"type:uuid;column:decision_object_id" json:"decision_object_id,omitempty"`
	QueuedAt           time.Time      `gorm:"column:queued_at;not null;default:now()" json:"queued_at"`
	RunningAt          *time.Time     `gorm:"column:running_at" json:"running_at,omitempty"`
	EvidenceReadyAt    *time.Time     `gorm:"column:evidence_ready_at" json:"evidence_ready_at,omitempty"`
	DecidedAt          *time.Time     `gorm:"column:decided_at" json:"decided_at,omitempty"`
	ExecutedAt         *time.Time     `gorm:"column:executed_at" json:"executed_at,omitempty"`
	MeasuredAt         *time.Time     `gorm:"column:measured_at" json:"measured_at,omitempty"`
	FailedAt           *time.Time     `gorm:"column:failed_at" json:"failed_at,omitempty"`
	ErrorMessage       string         `gorm:"column:error_message" json:"error_message,omitempty"`
	CreatedAt          time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Event) TableName() string { return "evidence_event" }

// legalNext is the full transition table. FAILED is reachable from every
// non-terminal state.
var legalNext = map[string][]string{
	StatusQueued:        {StatusRunning, StatusFailed},
	StatusRunning:       {StatusEvidenceReady, StatusFailed},
	StatusEvidenceReady: {StatusDecided, StatusFailed},
	StatusDecided:       {StatusExecuted, StatusFailed},
	StatusExecuted:      {StatusMeasured, StatusFailed},
	StatusMeasured:      nil,
	StatusFailed:        nil,
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to string) bool {
	for _, next := range legalNext[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether the status admits no further transitions.
func IsTerminalStatus(s string) bool {
	return s == StatusMeasured || s == StatusFailed
}
