package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/matijazezelj/wayfind/pkg/models"
)

const syncBatchSize = 500

// SyncResult reports what a full resync wrote.
type SyncResult struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
}

// SyncToMemgraph performs a full synchronization from store to Memgraph.
// It clears all Memgraph data and re-inserts the building.
func SyncToMemgraph(ctx context.Context, store Store, driver neo4j.DriverWithContext, logger *slog.Logger) (*SyncResult, error) {
	return syncToMemgraph(ctx, store, newNeo4jSessionFactory(driver), logger)
}

func syncToMemgraph(ctx context.Context, store Store, newSession sessionFactory, logger *slog.Logger) (*SyncResult, error) {
	session := newSession(ctx)
	defer session.Close(ctx) //nolint:errcheck // best-effort cleanup

	logger.Info("clearing memgraph data")
	if _, err := session.Run(ctx, "MATCH (n) DETACH DELETE n", nil); err != nil {
		return nil, fmt.Errorf("clearing memgraph: %w", err)
	}

	for _, cypher := range []string{
		"CREATE INDEX ON :Place(id)",
		"CREATE INDEX ON :Place(type)",
	} {
		if _, err := session.Run(ctx, cypher, nil); err != nil {
			logger.Warn("creating index (may already exist)", "error", err)
		}
	}

	nodes, err := store.ListNodes(ctx, NodeFilter{})
	if err != nil {
		return nil, fmt.Errorf("listing nodes: %w", err)
	}
	logger.Info("syncing nodes to memgraph", "count", len(nodes))

	for i := 0; i < len(nodes); i += syncBatchSize {
		end := min(i+syncBatchSize, len(nodes))
		params := make([]map[string]any, 0, end-i)
		for _, n := range nodes[i:end] {
			params = append(params, nodeToParams(n))
		}

		cypher := `
			UNWIND $nodes AS n
			CREATE (:Place {
				id: n.id, label: n.label, type: n.type,
				x: n.x, y: n.y, accessible: n.accessible
			})
		`
		if _, err := session.Run(ctx, cypher, map[string]any{"nodes": params}); err != nil {
			return nil, fmt.Errorf("syncing node batch %d-%d: %w", i, end, err)
		}
	}

	edges, err := store.ListEdges(ctx, EdgeFilter{})
	if err != nil {
		return nil, fmt.Errorf("listing edges: %w", err)
	}
	logger.Info("syncing edges to memgraph", "count", len(edges))

	for i := 0; i < len(edges); i += syncBatchSize {
		end := min(i+syncBatchSize, len(edges))
		params := make([]map[string]any, 0, end-i)
		for _, e := range edges[i:end] {
			params = append(params, edgeToParams(e))
		}

		cypher := `
			UNWIND $edges AS e
			MATCH (from:Place {id: e.fromID})
			MATCH (to:Place {id: e.toID})
			CREATE (from)-[:CONNECTS {key: e.key, type: e.type, accessible: e.accessible}]->(to)
		`
		if _, err := session.Run(ctx, cypher, map[string]any{"edges": params}); err != nil {
			return nil, fmt.Errorf("syncing edge batch %d-%d: %w", i, end, err)
		}
	}

	logger.Info("memgraph sync complete", "nodes", len(nodes), "edges", len(edges))
	return &SyncResult{Nodes: len(nodes), Edges: len(edges)}, nil
}

func nodeToParams(n models.Node) map[string]any {
	return map[string]any{
		"id":         n.ID,
		"label":      n.Label,
		"type":       string(n.Type),
		"x":          n.X,
		"y":          n.Y,
		"accessible": n.Accessible,
	}
}

func edgeToParams(e models.Edge) map[string]any {
	return map[string]any{
		"key":        e.Key(),
		"fromID":     e.From,
		"toID":       e.To,
		"type":       string(e.Type),
		"accessible": e.Accessible,
	}
}
