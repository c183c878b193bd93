package pattern

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Temporal phases of a crystallized pattern, T0 (emerging) through T4
// (exhausted).
const (
	PhaseT0 = "T0"
	PhaseT1 = "T1"
	PhaseT2 = "T2"
	PhaseT3 = "T3"
	PhaseT4 = "T4"
)

// LibraryEntry is one revision of a crystallized pattern: invariant rules plus
// a mutation strategy. Revisions are append-only; PreviousRevisionID chains
// them and nothing ever rewrites an old row.
type LibraryEntry struct {
	ID                 uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PatternID          string         `gorm:"column:pattern_id;not null;index:idx_library_pattern_rev,unique,priority:1" json:"pattern_id"`
	Revision           int            `gorm:"column:revision;not null;default:1;index:idx_library_pattern_rev,unique,priority:2" json:"revision"`
	ClusterID          string         `gorm:"column:cluster_id;not null;index" json:"cluster_id"`
	TemporalPhase      string         `gorm:"column:temporal_phase;not null;default:T0" json:"temporal_phase"`
	InvariantRules     datatypes.JSON `gorm:"column:invariant_rules;type:jsonb" json:"invariant_rules"`
	MutationStrategy   datatypes.JSON `gorm:"column:mutation_strategy;type:jsonb" json:"mutation_strategy"`
	PreviousRevisionID *uuid.UUID     `gorm:"type:uuid;column:previous_revision_id" json:"previous_revision_id,omitempty"`
	ConfidenceScore    float64        `gorm:"column:confidence_score;not null;default:0" json:"confidence_score"`
	SampleCount        int            `gorm:"column:sample_count;not null;default:0" json:"sample_count"`
	CreatedAt          time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (LibraryEntry) TableName() string { return "pattern_library" }

// NotebookEntry records one clustered node in the notebook library: which
// cluster it landed in and the DNA snapshot that put it there.
type NotebookEntry struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ClusterID    string         `gorm:"column:cluster_id;not null;index" json:"cluster_id"`
	NodeID       string         `gorm:"column:node_id;not null;uniqueIndex" json:"node_id"`
	Platform     string         `gorm:"column:platform;index" json:"platform,omitempty"`
	Title        string         `gorm:"column:title" json:"title,omitempty"`
	DNA          datatypes.JSON `gorm:"column:dna;type:jsonb" json:"dna"`
	OutlierScore float64        `gorm:"column:outlier_score;not null;default:0" json:"outlier_score"`
	ProofReady   bool           `gorm:"column:proof_ready;not null;default:false" json:"proof_ready"`
	CreatedAt    time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (NotebookEntry) TableName() string { return "notebook_library_entry" }
