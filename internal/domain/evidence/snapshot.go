package evidence

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Snapshot aggregates child outcomes for one parent over a trailing period.
// Depth1Summary maps mutation_type -> pattern -> {success_rate, sample_count};
// the top_* columns denormalize the argmax for quick reads. Exactly one
// snapshot is produced per event, during RUNNING -> EVIDENCE_READY.
type Snapshot struct {
	ID                 uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SnapshotID         string         `gorm:"column:snapshot_id;not null;uniqueIndex" json:"snapshot_id"`
	EventID            uuid.UUID      `gorm:"type:uuid;column:event_id;not null;index" json:"event_id"`
	ParentNodeID       string         `gorm:"column:parent_node_id;not null;index" json:"parent_node_id"`
	Period             string         `gorm:"column:period;not null;default:4w" json:"period"`
	Depth1Summary      datatypes.JSON `gorm:"column:depth1_summary;type:jsonb" json:"depth1_summary"`
	TopMutationType    string         `gorm:"column:top_mutation_type" json:"top_mutation_type,omitempty"`
	TopMutationPattern string         `gorm:"column:top_mutation_pattern" json:"top_mutation_pattern,omitempty"`
	TopMutationRate    float64        `gorm:"column:top_mutation_rate;not null;default:0" json:"top_mutation_rate"`
	SampleCount        int            `gorm:"column:sample_count;not null;default:0" json:"sample_count"`
	Confidence         float64        `gorm:"column:confidence;not null;default:0" json:"confidence"`
	CreatedAt          time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Snapshot) TableName() string { return "evidence_snapshot" }

// MutationStat is one cell of Depth1Summary once decoded.
type MutationStat struct {
	SuccessRate float64 `json:"success_rate"`
	SampleCount int     `json:"sample_count"`
}
