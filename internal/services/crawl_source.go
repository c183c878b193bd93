package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"gorm.io/datatypes"

	types "github.com/hooklab-media/hooklab-backend/internal/domain"
)

// CrawlSource fetches trending candidates from one platform surface.
type CrawlSource interface {
	Name() string
	Platform() string
	Fetch(ctx context.Context, category string, limit int) ([]types.CrawlItem, error)
}

// SourceRegistry is the process-wide table of crawl sources.
type SourceRegistry struct {
	mu      sync.RWMutex
	sources map[string]CrawlSource
}

func NewSourceRegistry() *SourceRegistry {
	return &SourceRegistry{sources: make(map[string]CrawlSource)}
}

func (r *SourceRegistry) Register(src CrawlSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[src.Name()] = src
}

func (r *SourceRegistry) Get(name string) (CrawlSource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.sources[name]
	return src, ok
}

func (r *SourceRegistry) All() []CrawlSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]CrawlSource, 0, len(r.sources))
	for _, src := range r.sources {
		out = append(out, src)
	}
	return out
}

// canonicalQueryKeys are the query params that identify the video itself;
// everything else (utm_*, fbclid, ref, share junk) is tracking and dropped.
var canonicalQueryKeys = map[string]bool{"v": true, "id": true, "list": true}

// CanonicalVideoURL normalizes a video URL for dedupe: scheme and host
// lowercased, fragment dropped, trailing slash removed, and the query
// reduced to the identifying params. Two share links to the same upload
// collapse to one canonical form; two different videos never do.
func CanonicalVideoURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse video url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("video url %q has no host", raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	u.Host = strings.ToLower(u.Host)

	kept := url.Values{}
	for key, vals := range u.Query() {
		if canonicalQueryKeys[key] && len(vals) > 0 {
			kept.Set(key, vals[0])
		}
	}
	u.RawQuery = kept.Encode() // Encode sorts keys, so the form is stable
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String(), nil
}

// OutlierScore is the crawler-scale score: how many multiples of the
// creator's baseline the video reached, swung by engagement. 500 is the
// S-tier floor.
func OutlierScore(item types.CrawlItem) float64 {
	if item.CreatorAvgViews <= 0 {
		return 0
	}
	viewMultiple := float64(item.ViewCount) / float64(item.CreatorAvgViews)
	engagementModifier := 1 + item.EngagementRate*5
	return viewMultiple * engagementModifier
}

// ToOutlierItem scores and shapes a crawl item into its persisted form.
func ToOutlierItem(item types.CrawlItem) (*types.OutlierItem, error) {
	canonical, err := CanonicalVideoURL(item.VideoURL)
	if err != nil {
		return nil, err
	}
	score := item.OutlierScore
	if score <= 0 {
		score = OutlierScore(item)
	}
	out := &types.OutlierItem{
		Platform:        item.Platform,
		ExternalID:      item.ExternalID,
		VideoURL:        item.VideoURL,
		CanonicalURL:    canonical,
		SourceName:      item.SourceName,
		Category:        item.Category,
		Title:           item.Title,
		ThumbnailURL:    item.ThumbnailURL,
		ViewCount:       item.ViewCount,
		LikeCount:       item.LikeCount,
		ShareCount:      item.ShareCount,
		CommentCount:    item.CommentCount,
		GrowthRate:      item.GrowthRate,
		EngagementRate:  item.EngagementRate,
		CreatorAvgViews: item.CreatorAvgViews,
		OutlierScore:    score,
		OutlierTier:     types.TierForScore(score),
	}
	if len(item.CommentsTop) > 0 {
		raw, merr := json.Marshal(item.CommentsTop)
		if merr != nil {
			return nil, fmt.Errorf("marshal comments_top: %w", merr)
		}
		out.CommentsTop = datatypes.JSON(raw)
	}
	return out, nil
}

// MockSource emits a deterministic batch for local development and tests;
// the same day yields the same items, so idempotent re-crawls dedupe away.
type MockSource struct {
	SourceName     string
	PlatformName   string
	ItemsPerFetch  int
	BaseViewCount  int64
	CreatorAverage int64
}

func NewMockSource(platform string) *MockSource {
	return &MockSource{
		SourceName:     "mock:" + platform,
		PlatformName:   platform,
		ItemsPerFetch:  10,
		BaseViewCount:  1_000_000,
		CreatorAverage: 20_000,
	}
}

func (m *MockSource) Name() string     { return m.SourceName }
func (m *MockSource) Platform() string { return m.PlatformName }

func (m *MockSource) Fetch(ctx context.Context, category string, limit int) ([]types.CrawlItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := m.ItemsPerFetch
	if limit > 0 && limit < n {
		n = limit
	}
	day := time.Now().UTC().Format("20060102")
	items := make([]types.CrawlItem, 0, n)
	for i := 0; i < n; i++ {
		externalID := fmt.Sprintf("%s-%s-%s-%02d", m.PlatformName, category, day, i)
		items = append(items, types.CrawlItem{
			Platform:        m.PlatformName,
			ExternalID:      externalID,
			VideoURL:        fmt.Sprintf("https://%s.example.com/v/%s", m.PlatformName, externalID),
			SourceName:      m.SourceName,
			Category:        category,
			Title:           fmt.Sprintf("mock %s clip %d", category, i),
			ViewCount:       m.BaseViewCount * int64(i+1),
			LikeCount:       m.BaseViewCount * int64(i+1) / 20,
			CommentCount:    int64(500 * (i + 1)),
			CreatorAvgViews: m.CreatorAverage,
			GrowthRate:      0.5 + float64(i)*0.1,
			EngagementRate:  0.05 + float64(i%5)*0.01,
		})
	}
	return items, nil
}
