package pattern

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	LayerMaster     = "MASTER"
	LayerFork       = "FORK"
	LayerForkOfFork = "FORK_OF_FORK"
)

// Node is a promoted content anchor (MASTER) or a variant under it. The
// parent link forms a tree: ParentNodeID is empty iff the node is a MASTER,
// and GenealogyDepth is always parent depth + 1. ClusterID is a weak string
// reference so nodes survive cluster merges.
type Node struct {
	ID                 uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	NodeID             string         `gorm:"column:node_id;not null;uniqueIndex" json:"node_id"`
	Layer              string         `gorm:"column:layer;not null;index" json:"layer"`
	ParentNodeID       string         `gorm:"column:parent_node_id;index" json:"parent_node_id,omitempty"`
	GenealogyDepth     int            `gorm:"column:genealogy_depth;not null;default:0" json:"genealogy_depth"`
	ClusterID          string         `gorm:"column:cluster_id;index" json:"cluster_id,omitempty"`
	Platform           string         `gorm:"column:platform;index" json:"platform,omitempty"`
	Title              string         `gorm:"column:title" json:"title,omitempty"`
	GeminiAnalysis     datatypes.JSON `gorm:"column:gemini_analysis;type:jsonb" json:"gemini_analysis,omitempty"`
	SchemaVersion      string         `gorm:"column:schema_version;index" json:"schema_version,omitempty"`
	MutationType       string         `gorm:"column:mutation_type;index" json:"mutation_type,omitempty"`
	MutationPattern    string         `gorm:"column:mutation_pattern" json:"mutation_pattern,omitempty"`
	ProofReady         bool           `gorm:"column:proof_ready;not null;default:false;index" json:"proof_ready"`
	ProofIssues        datatypes.JSON `gorm:"column:proof_issues;type:jsonb" json:"proof_issues,omitempty"`
	ViewCount          int64          `gorm:"column:view_count;not null;default:0" json:"view_count"`
	TotalForkCount     int            `gorm:"column:total_fork_count;not null;default:0" json:"total_fork_count"`
	TotalRoyaltyEarned float64        `gorm:"column:total_royalty_earned;not null;default:0" json:"total_royalty_earned"`
	IsPublished        bool           `gorm:"column:is_published;not null;default:false;index" json:"is_published"`
	SourceOutlierID    *uuid.UUID     `gorm:"type:uuid;column:source_outlier_id;index" json:"source_outlier_id,omitempty"`
	CreatedAt          time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Node) TableName() string { return "pattern_node" }

// LayerForDepth maps genealogy depth to the layer label.
func LayerForDepth(depth int) string {
	switch depth {
	case 0:
		return LayerMaster
	case 1:
		return LayerFork
	default:
		return LayerForkOfFork
	}
}
