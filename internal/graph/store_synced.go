package graph

import (
	"context"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/matijazezelj/wayfind/pkg/models"
)

// SyncedStore wraps a Store and mirrors building writes to Memgraph.
// Memgraph failures are logged but never block the primary write.
type SyncedStore struct {
	Store
	driver     neo4j.DriverWithContext
	newSession sessionFactory
	logger     *slog.Logger
}

// NewSyncedStore creates a SyncedStore. If driver is nil, no syncing occurs.
func NewSyncedStore(store Store, driver neo4j.DriverWithContext, logger *slog.Logger) *SyncedStore {
	s := &SyncedStore{
		Store:  store,
		driver: driver,
		logger: logger,
	}
	if driver != nil {
		s.newSession = newNeo4jSessionFactory(driver)
	}
	return s
}

// UpsertNode writes the node and mirrors it to Memgraph.
func (s *SyncedStore) UpsertNode(ctx context.Context, node models.Node) error {
	if err := s.Store.UpsertNode(ctx, node); err != nil {
		return err
	}
	if s.newSession != nil {
		if err := s.run(ctx, mergePlace, nodeToParams(node)); err != nil {
			s.logger.Warn("failed to sync node to memgraph", "nodeID", node.ID, "error", err)
		}
	}
	return nil
}

// UpsertEdge writes the edge and mirrors it to Memgraph.
func (s *SyncedStore) UpsertEdge(ctx context.Context, edge models.Edge) error {
	if err := s.Store.UpsertEdge(ctx, edge); err != nil {
		return err
	}
	if s.newSession != nil {
		if err := s.run(ctx, mergeConnection, edgeToParams(edge)); err != nil {
			s.logger.Warn("failed to sync edge to memgraph", "edge", edge.Key(), "error", err)
		}
	}
	return nil
}

// ReplaceBuilding swaps the stored model and then rebuilds the mirror.
func (s *SyncedStore) ReplaceBuilding(ctx context.Context, nodes []models.Node, edges []models.Edge) error {
	if err := s.Store.ReplaceBuilding(ctx, nodes, edges); err != nil {
		return err
	}
	if s.newSession != nil {
		if _, err := syncToMemgraph(ctx, s.Store, s.newSession, s.logger); err != nil {
			s.logger.Warn("failed to resync memgraph after import", "error", err)
		}
	}
	return nil
}

// Close closes both the primary store and the Memgraph connection.
func (s *SyncedStore) Close() error {
	storeErr := s.Store.Close()
	if s.driver != nil {
		if mgErr := s.driver.Close(context.Background()); mgErr != nil && storeErr == nil {
			return mgErr
		}
	}
	return storeErr
}

func (s *SyncedStore) run(ctx context.Context, cypher string, params map[string]any) error {
	session := s.newSession(ctx)
	defer session.Close(ctx) //nolint:errcheck // best-effort cleanup

	_, err := session.Run(ctx, cypher, params)
	return err
}

// Underlying returns the wrapped Store.
func (s *SyncedStore) Underlying() Store {
	return s.Store
}

// HasMemgraph returns true if Memgraph syncing is active.
func (s *SyncedStore) HasMemgraph() bool {
	return s.newSession != nil
}

const (
	mergePlace = `
		MERGE (n:Place {id: $id})
		SET n.label = $label,
		    n.type = $type,
		    n.x = $x,
		    n.y = $y,
		    n.accessible = $accessible
	`
	mergeConnection = `
		MATCH (from:Place {id: $fromID})
		MATCH (to:Place {id: $toID})
		MERGE (from)-[r:CONNECTS {key: $key}]->(to)
		SET r.type = $type,
		    r.accessible = $accessible
	`
)
