package services

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"image/color"
	"os"
	"strings"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/hooklab-media/hooklab-backend/internal/data/repos"
	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/platform/gcp"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

const (
	cardWidth  = 1200
	cardHeight = 675
)

// CardRenderService draws the PNG summary card for a pattern cluster and
// publishes it through the bucket service. The object key is versioned so a
// CDN never serves a stale card after a re-render.
type CardRenderService interface {
	RenderClusterCard(dbc dbctx.Context, clusterID string) (string, error)
	RenderCard(cluster *types.PatternCluster) (bytes.Buffer, error)
}

type cardRenderService struct {
	log       *logger.Logger
	clusters  repos.ClusterRepo
	bucket    gcp.BucketService
	titleFace font.Face
	bodyFace  font.Face
}

func NewCardRenderService(baseLog *logger.Logger, clusters repos.ClusterRepo, bucket gcp.BucketService) (CardRenderService, error) {
	fontPath := strings.TrimSpace(os.Getenv("CARD_FONT"))
	if fontPath == "" {
		return nil, fmt.Errorf("env var CARD_FONT is empty")
	}
	titleFace, err := loadFontFace(fontPath, 72)
	if err != nil {
		return nil, fmt.Errorf("could not load card font: %w", err)
	}
	bodyFace, err := loadFontFace(fontPath, 34)
	if err != nil {
		return nil, fmt.Errorf("could not load card font: %w", err)
	}
	return &cardRenderService{
		log:       baseLog.With("service", "CardRenderService"),
		clusters:  clusters,
		bucket:    bucket,
		titleFace: titleFace,
		bodyFace:  bodyFace,
	}, nil
}

func (s *cardRenderService) RenderClusterCard(dbc dbctx.Context, clusterID string) (string, error) {
	cluster, err := s.clusters.GetByClusterID(dbc, clusterID)
	if err != nil {
		return "", err
	}
	if cluster == nil {
		return "", fmt.Errorf("cluster %s not found", clusterID)
	}

	buf, err := s.RenderCard(cluster)
	if err != nil {
		return "", err
	}

	oldKey := strings.TrimSpace(cluster.CardAssetPath)
	newKey := fmt.Sprintf("pattern_card/%s/%d.png", cluster.ClusterID, time.Now().UnixNano())
	if err := s.bucket.UploadFile(dbc, gcp.BucketCategoryCard, newKey, bytes.NewReader(buf.Bytes())); err != nil {
		return "", fmt.Errorf("upload cluster card: %w", err)
	}
	if err := s.clusters.UpdateFieldsByClusterID(dbc, cluster.ClusterID, map[string]interface{}{
		"card_asset_path": newKey,
	}); err != nil {
		return "", err
	}
	if oldKey != "" && oldKey != newKey {
		if err := s.bucket.DeleteFile(dbc, gcp.BucketCategoryCard, oldKey); err != nil {
			s.log.Warn("failed to delete old card (ignored)", "old_key", oldKey, "error", err)
		}
	}
	return s.bucket.GetPublicURL(gcp.BucketCategoryCard, newKey), nil
}

func (s *cardRenderService) RenderCard(cluster *types.PatternCluster) (bytes.Buffer, error) {
	dc := gg.NewContext(cardWidth, cardHeight)

	base := cardBaseColor(cluster.PatternType)
	dc.SetColor(base)
	dc.DrawRectangle(0, 0, cardWidth, cardHeight)
	dc.Fill()

	// Darkened footer band for the stat row.
	dc.SetColor(color.NRGBA{R: 0, G: 0, B: 0, A: 70})
	dc.DrawRectangle(0, cardHeight-140, cardWidth, 140)
	dc.Fill()

	dc.SetColor(color.White)
	dc.SetFontFace(s.titleFace)
	title := cluster.ClusterName
	if title == "" {
		title = cluster.ClusterID
	}
	dc.DrawStringWrapped(title, 60, 80, 0, 0, cardWidth-120, 1.2, gg.AlignLeft)

	dc.SetFontFace(s.bodyFace)
	dc.SetColor(color.NRGBA{R: 255, G: 255, B: 255, A: 220})
	subtitle := cluster.PatternType
	if cluster.Platform != "" {
		subtitle += "  ·  " + cluster.Platform
	}
	dc.DrawString(subtitle, 60, 290)

	if cluster.RecurrenceCount > 0 {
		dc.DrawString(fmt.Sprintf("recurred %dx  (score %.2f)", cluster.RecurrenceCount, cluster.RecurrenceScore), 60, 345)
	}

	stats := fmt.Sprintf("%d members   avg outlier %.0fx", cluster.MemberCount, cluster.AvgOutlierScore)
	dc.SetColor(color.White)
	dc.DrawString(stats, 60, cardHeight-55)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return buf, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf, nil
}

// cardBaseColor picks a stable background per pattern type.
var cardPalette = []color.NRGBA{
	{R: 0x2B, G: 0x5F, B: 0xAD, A: 0xFF},
	{R: 0x8E, G: 0x3B, B: 0x8E, A: 0xFF},
	{R: 0x1F, G: 0x7A, B: 0x5C, A: 0xFF},
	{R: 0xB4, G: 0x54, B: 0x2E, A: 0xFF},
	{R: 0x45, G: 0x4E, B: 0x9E, A: 0xFF},
	{R: 0x99, G: 0x2D, B: 0x4E, A: 0xFF},
}

func cardBaseColor(patternType string) color.NRGBA {
	h := fnv.New32a()
	_, _ = h.Write([]byte(patternType))
	return cardPalette[h.Sum32()%uint32(len(cardPalette))]
}

func loadFontFace(fontPath string, size float64) (font.Face, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	return truetype.NewFace(parsedFont, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	}), nil
}
