package ingest

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TierS = "S"
	TierA = "A"
	TierB = "B"
	TierC = "C"
)

// Curation status. promoted rows must carry promoted_to_node_id.
const (
	StatusPending  = "pending"
	StatusSelected = "selected"
	StatusRejected = "rejected"
	StatusPromoted = "promoted"
)

// Analysis lifecycle. The comments_* states are written by the external
// comment-review subsystem; this service only reads them.
const (
	AnalysisPending               = "pending"
	AnalysisApproved              = "approved"
	AnalysisAnalyzing             = "analyzing"
	AnalysisCompleted             = "completed"
	AnalysisCommentsPendingReview = "comments_pending_review"
	AnalysisCommentsFailed        = "comments_failed"
	AnalysisCommentsReady         = "comments_ready"
	AnalysisSkipped               = "skipped"
)

// OutlierItem is one crawled candidate video. Uniqueness is enforced both on
// (platform, external_id) and on the canonical video URL, so the same upload
// surfacing through two sources still lands once.
type OutlierItem struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Platform         string         `gorm:"column:platform;not null;index:idx_outlier_platform_ext,unique,priority:1" json:"platform"`
	ExternalID       string         `gorm:"column:external_id;not null;index:idx_outlier_platform_ext,unique,priority:2" json:"external_id"`
	VideoURL         string         `gorm:"column:video_url;not null" json:"video_url"`
	CanonicalURL     string         `gorm:"column:canonical_url;not null;uniqueIndex" json:"canonical_url"`
	SourceName       string         `gorm:"column:source_name;index" json:"source_name,omitempty"`
	Category         string         `gorm:"column:category;index" json:"category,omitempty"`
	Title            string         `gorm:"column:title" json:"title,omitempty"`
	ThumbnailURL     string         `gorm:"column:thumbnail_url" json:"thumbnail_url,omitempty"`
	ViewCount        int64          `gorm:"column:view_count;not null;default:0" json:"view_count"`
	LikeCount        int64          `gorm:"column:like_count;not null;default:0" json:"like_count"`
	ShareCount       int64          `gorm:"column:share_count;not null;default:0" json:"share_count"`
	CommentCount     int64          `gorm:"column:comment_count;not null;default:0" json:"comment_count"`
	GrowthRate       float64        `gorm:"column:growth_rate;not null;default:0" json:"growth_rate"`
	EngagementRate   float64        `gorm:"column:engagement_rate;not null;default:0" json:"engagement_rate"`
	CreatorAvgViews  int64          `gorm:"column:creator_avg_views;not null;default:0" json:"creator_avg_views"`
	CommentsTop      datatypes.JSON `gorm:"column:comments_top;type:jsonb" json:"comments_top,omitempty"`
	OutlierScore     float64        `gorm:"column:outlier_score;not null;default:0;index" json:"outlier_score"`
	OutlierTier      string         `gorm:"column:outlier_tier;not null;default:C;index" json:"outlier_tier"`
	AnalysisStatus   string         `gorm:"column:analysis_status;not null;default:pending;index" json:"analysis_status"`
	Status           string         `gorm:"column:status;not null;default:pending;index" json:"status"`
	PromotedToNodeID string         `gorm:"column:promoted_to_node_id;index" json:"promoted_to_node_id,omitempty"`
	CreatedAt        time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (OutlierItem) TableName() string { return "outlier_item" }

// TierForScore maps an outlier score to its tier band.
func TierForScore(score float64) string {
	switch {
	case score >= 500:
		return TierS
	case score >= 200:
		return TierA
	case score >= 80:
		return TierB
	default:
		return TierC
	}
}
