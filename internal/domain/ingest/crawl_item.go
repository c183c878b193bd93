package ingest

// CrawlItem is the ingest contract produced by external crawler collaborators.
// It is a transfer shape, not a table; canonicalization and deduplication
// happen before anything is persisted.
type CrawlItem struct {
	SourceName      string         `json:"source_name"`
	ExternalID      string         `json:"external_id"`
	Platform        string         `json:"platform"`
	Category        string         `json:"category,omitempty"`
	VideoURL        string         `json:"video_url"`
	Title           string         `json:"title,omitempty"`
	ThumbnailURL    string         `json:"thumbnail_url,omitempty"`
	ViewCount       int64          `json:"view_count"`
	LikeCount       int64          `json:"like_count"`
	ShareCount      int64          `json:"share_count"`
	CommentCount    int64          `json:"comment_count,omitempty"`
	GrowthRate      float64        `json:"growth_rate"`
	OutlierScore    float64        `json:"outlier_score,omitempty"`
	OutlierTier     string         `json:"outlier_tier,omitempty"`
	CreatorAvgViews int64          `json:"creator_avg_views,omitempty"`
	EngagementRate  float64        `json:"engagement_rate,omitempty"`
	CommentsTop     []CrawlComment `json:"comments_top,omitempty"`
}

// CrawlComment is a top-N comment snapshot carried with a CrawlItem.
type CrawlComment struct {
	Text      string `json:"text"`
	LikeCount int64  `json:"like_count"`
}
