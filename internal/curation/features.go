// Package curation evaluates operator rules against crawled candidates.
// The operator set and the feature keyspace are both closed: a rule that
// names an operator or key outside them is a config error, caught at load
// time rather than silently never matching.
package curation

import (
	"sort"

	"github.com/hooklab-media/hooklab-backend/internal/domain"
)

// Features is one candidate flattened into the declared keyspace.
type Features map[string]any

// Feature keys the extractor produces. Rules may reference these and nothing
// else.
var declaredKeys = map[string]struct{}{
	"platform":          {},
	"category":          {},
	"source_name":       {},
	"view_count":        {},
	"like_count":        {},
	"share_count":       {},
	"comment_count":     {},
	"growth_rate":       {},
	"engagement_rate":   {},
	"creator_avg_views": {},
	"view_multiple":     {},
	"outlier_score":     {},
	"outlier_tier":      {},
}

// Keyspace returns the declared feature keys in sorted order.
func Keyspace() []string {
	keys := make([]string, 0, len(declaredKeys))
	for k := range declaredKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// KeyDeclared reports whether a rule may reference the key.
func KeyDeclared(key string) bool {
	_, ok := declaredKeys[key]
	return ok
}

// Extract flattens an outlier item into the keyspace. view_multiple is the
// candidate's views over the creator's average, the core outlier signal.
func Extract(item *domain.OutlierItem) Features {
	viewMultiple := 0.0
	if item.CreatorAvgViews > 0 {
		viewMultiple = float64(item.ViewCount) / float64(item.CreatorAvgViews)
	}
	return Features{
		"platform":          item.Platform,
		"category":          item.Category,
		"source_name":       item.SourceName,
		"view_count":        float64(item.ViewCount),
		"like_count":        float64(item.LikeCount),
		"share_count":       float64(item.ShareCount),
		"comment_count":     float64(item.CommentCount),
		"growth_rate":       item.GrowthRate,
		"engagement_rate":   item.EngagementRate,
		"creator_avg_views": float64(item.CreatorAvgViews),
		"view_multiple":     viewMultiple,
		"outlier_score":     item.OutlierScore,
		"outlier_tier":      item.OutlierTier,
	}
}
