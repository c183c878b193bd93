package coaching

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ModeHomage   = "homage"
	ModeMutation = "mutation"
	ModeCampaign = "campaign"
)

const (
	AssignmentCoached = "coached"
	AssignmentControl = "control"
)

const (
	SessionActive    = "active"
	SessionEnded     = "ended"
	SessionCancelled = "cancelled"
)

// Session is one live coaching session against a pinned DirectorPack
// revision. Assignment is decided deterministically from the session id hash
// at start: first 10% control, next 5% coached-but-holdout, rest coached.
type Session struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID    string         `gorm:"column:session_id;not null;uniqueIndex" json:"session_id"`
	UserIDHash   string         `gorm:"column:user_id_hash;index" json:"user_id_hash,omitempty"`
	Mode         string         `gorm:"column:mode;not null;default:homage" json:"mode"`
	PatternID    string         `gorm:"column:pattern_id;not null;index" json:"pattern_id"`
	PackID       string         `gorm:"column:pack_id;not null;index" json:"pack_id"`
	PackHash     string         `gorm:"column:pack_hash;not null" json:"pack_hash"`
	Assignment   string         `gorm:"column:assignment;not null;index" json:"assignment"`
	HoldoutGroup bool           `gorm:"column:holdout_group;not null;default:false" json:"holdout_group"`
	Status       string         `gorm:"column:status;not null;default:active;index" json:"status"`
	StartedAt    time.Time      `gorm:"column:started_at;not null;default:now()" json:"started_at"`
	EndedAt      *time.Time     `gorm:"column:ended_at" json:"ended_at,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Session) TableName() string { return "coaching_session" }

// Intervention is one rule failure the coach acted on (or would have, for
// control sessions: Delivered stays false there but the row is still logged).
type Intervention struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID     uuid.UUID      `gorm:"type:uuid;column:session_id;not null;index" json:"session_id"`
	RuleID        string         `gorm:"column:rule_id;not null;index" json:"rule_id"`
	CheckpointID  string         `gorm:"column:checkpoint_id" json:"checkpoint_id,omitempty"`
	CoachLine     string         `gorm:"column:coach_line" json:"coach_line,omitempty"`
	Confidence    float64        `gorm:"column:confidence;not null;default:0" json:"confidence"`
	MeasuredValue *float64       `gorm:"column:measured_value" json:"measured_value,omitempty"`
	FrameTSMillis int64          `gorm:"column:frame_ts_ms;not null;default:0" json:"frame_ts_ms"`
	Delivered     bool           `gorm:"column:delivered;not null;default:false" json:"delivered"`
	CreatedAt     time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Intervention) TableName() string { return "coaching_intervention" }

const (
	ComplianceComplied = "complied"
	ComplianceViolated = "violated"
	ComplianceUnknown  = "unknown"
)

// Outcome closes an intervention's 10 s observation window.
type Outcome struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	InterventionID uuid.UUID      `gorm:"type:uuid;column:intervention_id;not null;uniqueIndex" json:"intervention_id"`
	Compliance     string         `gorm:"column:compliance;not null;default:unknown" json:"compliance"`
	LatencySec     float64        `gorm:"column:latency_sec;not null;default:0" json:"latency_sec"`
	Reason         string         `gorm:"column:reason" json:"reason,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Outcome) TableName() string { return "coaching_outcome" }

// UploadOutcome is written as a stub when the session closes and enriched
// once the produced video's performance is ingested.
type UploadOutcome struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID      uuid.UUID      `gorm:"type:uuid;column:session_id;not null;uniqueIndex" json:"session_id"`
	Uploaded       bool           `gorm:"column:uploaded;not null;default:false" json:"uploaded"`
	VideoURL       string         `gorm:"column:video_url" json:"video_url,omitempty"`
	ViewCount      int64          `gorm:"column:view_count;not null;default:0" json:"view_count"`
	EngagementRate float64        `gorm:"column:engagement_rate;not null;default:0" json:"engagement_rate"`
	RecordedAt     *time.Time     `gorm:"column:recorded_at" json:"recorded_at,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (UploadOutcome) TableName() string { return "coaching_upload_outcome" }
