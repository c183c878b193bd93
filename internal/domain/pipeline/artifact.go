package pipeline

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ArtifactStorageDB          = "db"
	ArtifactStorageObjectStore = "object_store"
	ArtifactStorageExternalURL = "external_url"
)

// Artifact is a content-addressed output of a Run. Rows may only be added
// while the owning Run is RUNNING and are immutable once it completes.
// ContentHash is the SHA-256 of the canonical payload, so equality of hashes
// means equality of content regardless of key order at write time.
type Artifact struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RunID         uuid.UUID      `gorm:"type:uuid;column:run_id;not null;index" json:"run_id"`
	ArtifactType  string         `gorm:"column:artifact_type;not null;index" json:"artifact_type"`
	Name          string         `gorm:"column:name;not null" json:"name"`
	StorageType   string         `gorm:"column:storage_type;not null;default:db" json:"storage_type"`
	StoragePath   string         `gorm:"column:storage_path" json:"storage_path,omitempty"`
	SchemaVersion string         `gorm:"column:schema_version" json:"schema_version,omitempty"`
	ContentHash   string         `gorm:"column:content_hash;not null;index" json:"content_hash"`
	DataJSON      datatypes.JSON `gorm:"column:data_json;type:jsonb" json:"data_json,omitempty"`
	SizeBytes     int64          `gorm:"column:size_bytes;not null;default:0" json:"size_bytes"`
	MimeType      string         `gorm:"column:mime_type" json:"mime_type,omitempty"`
	Orphaned      bool           `gorm:"column:orphaned;not null;default:false;index" json:"orphaned"`
	CreatedAt     time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Artifact) TableName() string { return "pipeline_artifact" }
