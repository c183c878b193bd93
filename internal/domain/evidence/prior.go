package evidence

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Prior is the persisted Bayesian state for one pattern. The in-memory store
// in internal/bayes is the write path; this row is its durable snapshot.
type Prior struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PatternID   string         `gorm:"column:pattern_id;not null;uniqueIndex" json:"pattern_id"`
	PSuccess    float64        `gorm:"column:p_success;not null;default:0.5" json:"p_success"`
	SampleCount int            `gorm:"column:sample_count;not null;default:0" json:"sample_count"`
	CreatedAt   time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Prior) TableName() string { return "pattern_prior" }

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeUnknown = "unknown"
)

// PatternEvidence is one observed outcome attributed to a pattern. The
// mutation columns say which variation axis the child tried, so the snapshot
// builder can group per (mutation_type, mutation_pattern). Applied flips to
// true once the Bayesian updater has folded the row into the prior, so
// replays never double-count.
type PatternEvidence struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PatternID       string         `gorm:"column:pattern_id;not null;index" json:"pattern_id"`
	ParentNodeID    string         `gorm:"column:parent_node_id;index" json:"parent_node_id,omitempty"`
	ChildNodeID     string         `gorm:"column:child_node_id;index" json:"child_node_id,omitempty"`
	MutationType    string         `gorm:"column:mutation_type;index" json:"mutation_type,omitempty"`
	MutationPattern string         `gorm:"column:mutation_pattern" json:"mutation_pattern,omitempty"`
	Outcome         string         `gorm:"column:outcome;not null;index" json:"outcome"`
	ProofStrength   float64        `gorm:"column:proof_strength;not null;default:5" json:"proof_strength"`
	CostPaid        float64        `gorm:"column:cost_paid;not null;default:0" json:"cost_paid"`
	EngagementRate  float64        `gorm:"column:engagement_rate;not null;default:0" json:"engagement_rate"`
	Source          string         `gorm:"column:source;not null;default:measurement" json:"source"`
	Applied         bool           `gorm:"column:applied;not null;default:false;index" json:"applied"`
	CreatedAt       time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (PatternEvidence) TableName() string { return "pattern_evidence" }

// BanditArm is the Thompson-sampling state for one mutation slot of a
// pattern. The BANDIT run type refreshes these from measured outcomes.
type BanditArm struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PatternID       string         `gorm:"column:pattern_id;not null;index:idx_bandit_arm,unique,priority:1" json:"pattern_id"`
	MutationType    string         `gorm:"column:mutation_type;not null;index:idx_bandit_arm,unique,priority:2" json:"mutation_type"`
	MutationPattern string         `gorm:"column:mutation_pattern;not null;index:idx_bandit_arm,unique,priority:3" json:"mutation_pattern"`
	Successes       int            `gorm:"column:successes;not null;default:0" json:"successes"`
	Failures        int            `gorm:"column:failures;not null;default:0" json:"failures"`
	LastSelectedAt  *time.Time     `gorm:"column:last_selected_at" json:"last_selected_at,omitempty"`
	CreatedAt       time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (BanditArm) TableName() string { return "bandit_arm" }
