package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/ids"
)

func SeedRun(tb testing.TB, ctx context.Context, tx *gorm.DB, runType, status, key string) *types.Run {
	tb.Helper()
	now := time.Now()
	r := &types.Run{
		ID:             uuid.New(),
		RunID:          ids.New("run", now),
		RunType:        runType,
		Status:         status,
		IdempotencyKey: key,
		InputsJSON:     datatypes.JSON([]byte(`{}`)),
		TimeoutSeconds: 600,
	}
	if status == types.RunStatusRunning {
		r.StartedAt = &now
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed run: %v", err)
	}
	return r
}

func SeedOutlier(tb testing.TB, ctx context.Context, tx *gorm.DB, platform, externalID string, score float64) *types.OutlierItem {
	tb.Helper()
	o := &types.OutlierItem{
		ID:           uuid.New(),
		Platform:     platform,
		ExternalID:   externalID,
		VideoURL:     fmt.Sprintf("https://%s.example.com/v/%s", platform, externalID),
		CanonicalURL: fmt.Sprintf("https://%s.example.com/v/%s", platform, externalID),
		SourceName:   "test",
		OutlierScore: score,
		OutlierTier:  "C",
	}
	if err := tx.WithContext(ctx).Create(o).Error; err != nil {
		tb.Fatalf("seed outlier: %v", err)
	}
	return o
}

func SeedNode(tb testing.TB, ctx context.Context, tx *gorm.DB, parentNodeID string) *types.PatternNode {
	tb.Helper()
	depth := 0
	layer := types.LayerMaster
	if parentNodeID != "" {
		depth = 1
		layer = types.LayerFork
	}
	n := &types.PatternNode{
		ID:             uuid.New(),
		NodeID:         ids.New("node", time.Now()),
		Layer:          layer,
		ParentNodeID:   parentNodeID,
		GenealogyDepth: depth,
	}
	if err := tx.WithContext(ctx).Create(n).Error; err != nil {
		tb.Fatalf("seed node: %v", err)
	}
	return n
}

func SeedCluster(tb testing.TB, ctx context.Context, tx *gorm.DB, patternType string) *types.PatternCluster {
	tb.Helper()
	clusterID := ids.New("cl", time.Now())
	c := &types.PatternCluster{
		ID:              uuid.New(),
		ClusterID:       clusterID,
		ClusterName:     "cluster " + clusterID,
		PatternType:     patternType,
		OriginClusterID: clusterID,
		MemberCount:     1,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed cluster: %v", err)
	}
	return c
}

func SeedEvent(tb testing.TB, ctx context.Context, tx *gorm.DB, parentNodeID string) *types.EvidenceEvent {
	tb.Helper()
	e := &types.EvidenceEvent{
		ID:           uuid.New(),
		EventID:      ids.New("ev", time.Now()),
		ParentNodeID: parentNodeID,
		Status:       types.EvidenceQueued,
		QueuedAt:     time.Now(),
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed event: %v", err)
	}
	return e
}

func SeedSession(tb testing.TB, ctx context.Context, tx *gorm.DB, sessionID, assignment string) *types.CoachingSession {
	tb.Helper()
	s := &types.CoachingSession{
		ID:         uuid.New(),
		SessionID:  sessionID,
		Mode:       "homage",
		PatternID:  "pat_test",
		PackID:     "pack_test",
		PackHash:   "deadbeef",
		Assignment: assignment,
		Status:     types.SessionActive,
		StartedAt:  time.Now(),
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed session: %v", err)
	}
	return s
}
