package pattern

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Cluster groups nodes whose normalized DNA scores >= the assignment
// threshold against the founding member. OriginClusterID is reflexive for a
// root and equals the ancestor's origin for descendants, so the whole lineage
// shares one origin.
type Cluster struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ClusterID         string         `gorm:"column:cluster_id;not null;uniqueIndex" json:"cluster_id"`
	ClusterName       string         `gorm:"column:cluster_name;not null" json:"cluster_name"`
	PatternType       string         `gorm:"column:pattern_type;not null;index" json:"pattern_type"`
	Platform          string         `gorm:"column:platform;index" json:"platform,omitempty"`
	MemberCount       int            `gorm:"column:member_count;not null;default:0" json:"member_count"`
	AvgOutlierScore   float64        `gorm:"column:avg_outlier_score;not null;default:0" json:"avg_outlier_score"`
	AncestorClusterID string         `gorm:"column:ancestor_cluster_id;index" json:"ancestor_cluster_id,omitempty"`
	OriginClusterID   string         `gorm:"column:origin_cluster_id;not null;index" json:"origin_cluster_id"`
	RecurrenceScore   float64        `gorm:"column:recurrence_score;not null;default:0" json:"recurrence_score"`
	RecurrenceCount   int            `gorm:"column:recurrence_count;not null;default:0" json:"recurrence_count"`
	LastRecurrenceAt  *time.Time     `gorm:"column:last_recurrence_at" json:"last_recurrence_at,omitempty"`
	CentroidDNA       datatypes.JSON `gorm:"column:centroid_dna;type:jsonb" json:"centroid_dna,omitempty"`
	CardAssetPath     string         `gorm:"column:card_asset_path" json:"card_asset_path,omitempty"`
	CreatedAt         time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Cluster) TableName() string { return "pattern_cluster" }

const (
	RecurrenceCandidate = "candidate"
	RecurrenceConfirmed = "confirmed"
	RecurrenceRejected  = "rejected"
)

// RecurrenceLink is a directional edge from the current cluster back to an
// ancestor it appears to re-run. Unique on the ordered pair; evidence_count
// grows as new members re-confirm the resemblance and the link flips from
// candidate to confirmed at three sightings.
type RecurrenceLink struct {
	ID                  uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ClusterIDCurrent    string         `gorm:"column:cluster_id_current;not null;index:idx_recurrence_pair,unique,priority:1" json:"cluster_id_current"`
	ClusterIDAncestor   string         `gorm:"column:cluster_id_ancestor;not null;index:idx_recurrence_pair,unique,priority:2" json:"cluster_id_ancestor"`
	Status              string         `gorm:"column:status;not null;default:candidate;index" json:"status"`
	MicrobeatSim        float64        `gorm:"column:microbeat_sim;not null;default:0" json:"microbeat_sim"`
	HookGenomeSim       float64        `gorm:"column:hook_genome_sim;not null;default:0" json:"hook_genome_sim"`
	FocusWindowSim      float64        `gorm:"column:focus_window_sim;not null;default:0" json:"focus_window_sim"`
	AudioFormatSim      float64        `gorm:"column:audio_format_sim;not null;default:0" json:"audio_format_sim"`
	CommentSignatureSim float64        `gorm:"column:comment_signature_sim;not null;default:0" json:"comment_signature_sim"`
	ProductSlotSim      float64        `gorm:"column:product_slot_sim;not null;default:0" json:"product_slot_sim"`
	RecurrenceScore     float64        `gorm:"column:recurrence_score;not null;default:0" json:"recurrence_score"`
	EvidenceCount       int            `gorm:"column:evidence_count;not null;default:0" json:"evidence_count"`
	FirstSeenAt         time.Time      `gorm:"column:first_seen_at;not null;default:now()" json:"first_seen_at"`
	LastSeenAt          time.Time      `gorm:"column:last_seen_at;not null;default:now()" json:"last_seen_at"`
	CreatedAt           time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (RecurrenceLink) TableName() string { return "pattern_recurrence_link" }
