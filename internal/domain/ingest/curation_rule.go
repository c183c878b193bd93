package ingest

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActionPromote  = "promote"
	ActionReject   = "reject"
	ActionCampaign = "campaign"
)

// CurationRule decides what happens to a crawled candidate. Conditions is a
// map of feature_key -> operator clause evaluated by internal/curation;
// every key must exist in the extractor's declared keyspace (enforced by
// audit_pipeline_contracts). Lower Priority evaluates first.
type CurationRule struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RuleID     string         `gorm:"column:rule_id;not null;uniqueIndex" json:"rule_id"`
	Conditions datatypes.JSON `gorm:"column:conditions;type:jsonb;not null" json:"conditions"`
	Action     string         `gorm:"column:action;not null" json:"action"`
	Priority   int            `gorm:"column:priority;not null;default:100;index" json:"priority"`
	Enabled    bool           `gorm:"column:enabled;not null;default:true;index" json:"enabled"`
	Notes      string         `gorm:"column:notes" json:"notes,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CurationRule) TableName() string { return "curation_rule" }
