package services

import (
	"context"

	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
	"github.com/hooklab-media/hooklab-backend/internal/platform/neo4jdb"
)

// GraphProjectionService mirrors the pattern genealogy into neo4j for
// exploration queries. The graph is a projection, never the source of truth:
// every write is best-effort and a failure only logs, it must not abort the
// pipeline that produced the relational row.
type GraphProjectionService interface {
	ProjectNodeFork(ctx context.Context, nodeID, parentNodeID string, depth int, layer string)
	ProjectClusterDescent(ctx context.Context, clusterID, ancestorClusterID string, similarity float64)
	ProjectRecurrence(ctx context.Context, ancestorClusterID, currentClusterID string, score float64)
	Enabled() bool
}

type graphProjectionService struct {
	log    *logger.Logger
	client *neo4jdb.Client
}

// NewGraphProjectionService wires the projection when NEO4J_URI is set; a
// nil client yields a disabled no-op service.
func NewGraphProjectionService(baseLog *logger.Logger, client *neo4jdb.Client) GraphProjectionService {
	return &graphProjectionService{
		log:    baseLog.With("service", "GraphProjectionService"),
		client: client,
	}
}

func (s *graphProjectionService) Enabled() bool { return s.client != nil }

func (s *graphProjectionService) ProjectNodeFork(ctx context.Context, nodeID, parentNodeID string, depth int, layer string) {
	if s.client == nil {
		return
	}
	err := s.client.ExecuteWrite(ctx, `
		MERGE (n:PatternNode {node_id: $node_id})
		SET n.depth = $depth, n.layer = $layer
		WITH n
		MATCH (p:PatternNode {node_id: $parent_node_id})
		MERGE (n)-[:FORK_OF]->(p)`,
		map[string]any{
			"node_id":        nodeID,
			"parent_node_id": parentNodeID,
			"depth":          depth,
			"layer":          layer,
		})
	if err != nil {
		s.log.Warn("project node fork", "node_id", nodeID, "error", err)
	}
}

func (s *graphProjectionService) ProjectClusterDescent(ctx context.Context, clusterID, ancestorClusterID string, similarity float64) {
	if s.client == nil {
		return
	}
	err := s.client.ExecuteWrite(ctx, `
		MERGE (c:PatternCluster {cluster_id: $cluster_id})
		MERGE (a:PatternCluster {cluster_id: $ancestor_id})
		MERGE (c)-[d:DESCENDS_FROM]->(a)
		SET d.similarity = $similarity`,
		map[string]any{
			"cluster_id":  clusterID,
			"ancestor_id": ancestorClusterID,
			"similarity":  similarity,
		})
	if err != nil {
		s.log.Warn("project cluster descent", "cluster_id", clusterID, "error", err)
	}
}

func (s *graphProjectionService) ProjectRecurrence(ctx context.Context, ancestorClusterID, currentClusterID string, score float64) {
	if s.client == nil {
		return
	}
	err := s.client.ExecuteWrite(ctx, `
		MERGE (a:PatternCluster {cluster_id: $ancestor_id})
		MERGE (c:PatternCluster {cluster_id: $current_id})
		MERGE (a)-[r:RECURS_IN]->(c)
		SET r.recurrence_score = $score`,
		map[string]any{
			"ancestor_id": ancestorClusterID,
			"current_id":  currentClusterID,
			"score":       score,
		})
	if err != nil {
		s.log.Warn("project recurrence", "ancestor_id", ancestorClusterID, "error", err)
	}
}
