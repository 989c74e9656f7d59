package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/matijazezelj/wayfind/pkg/models"
)

// MemgraphEngine implements Engine using Memgraph via the Bolt protocol.
type MemgraphEngine struct {
	driver     neo4j.DriverWithContext
	newSession sessionFactory
	fallback   *LocalEngine
	logger     *slog.Logger
}

// NewMemgraphEngine creates an Engine backed by Memgraph.
// Falls back to the provided LocalEngine on query failures.
func NewMemgraphEngine(uri, username, password string, fallback *LocalEngine, logger *slog.Logger) (*MemgraphEngine, error) {
	auth := neo4j.NoAuth()
	if username != "" {
		auth = neo4j.BasicAuth(username, password, "")
	}

	driver, err := neo4j.NewDriverWithContext(uri, auth)
	if err != nil {
		return nil, fmt.Errorf("creating memgraph driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(context.Background())
		return nil, fmt.Errorf("memgraph connectivity check failed: %w", err)
	}

	logger.Info("memgraph engine initialized", "uri", uri)
	return &MemgraphEngine{
		driver:     driver,
		newSession: newNeo4jSessionFactory(driver),
		fallback:   fallback,
		logger:     logger,
	}, nil
}

// Driver returns the underlying neo4j driver for use by SyncedStore.
func (e *MemgraphEngine) Driver() neo4j.DriverWithContext {
	return e.driver
}

// Close closes the Memgraph driver connection. SyncedStore shares the
// driver and closes it, so callers close only one of the two.
func (e *MemgraphEngine) Close() error {
	return e.driver.Close(context.Background())
}

const placeReturn = `
	RETURN p.id AS id, p.label AS label, p.type AS type,
	       p.x AS x, p.y AS y, p.accessible AS accessible
	ORDER BY id
`

// Building loads the mirrored model with two Cypher reads.
func (e *MemgraphEngine) Building(ctx context.Context) ([]models.Node, []models.Edge, error) {
	session := e.newSession(ctx)
	defer session.Close(ctx) //nolint:errcheck // best-effort cleanup

	nodeResult, err := session.Run(ctx, `MATCH (p:Place)`+placeReturn, nil)
	if err != nil {
		e.logger.Warn("memgraph building query failed, falling back", "error", err)
		return e.fallback.Building(ctx)
	}
	var nodes []models.Node
	for nodeResult.Next(ctx) {
		nodes = append(nodes, recordToNode(nodeResult.Record()))
	}
	if err := nodeResult.Err(); err != nil {
		e.logger.Warn("memgraph node result error, falling back", "error", err)
		return e.fallback.Building(ctx)
	}
	if len(nodes) == 0 {
		// An empty mirror most likely has not been synced yet.
		e.logger.Warn("memgraph mirror is empty, falling back")
		return e.fallback.Building(ctx)
	}

	edgeResult, err := session.Run(ctx, `
		MATCH (a:Place)-[r:CONNECTS]->(b:Place)
		RETURN a.id AS from_id, b.id AS to_id, r.type AS type, r.accessible AS accessible
		ORDER BY r.key
	`, nil)
	if err != nil {
		e.logger.Warn("memgraph edge query failed, falling back", "error", err)
		return e.fallback.Building(ctx)
	}
	var edges []models.Edge
	for edgeResult.Next(ctx) {
		rec := edgeResult.Record()
		edges = append(edges, models.Edge{
			From:       getRecordString(rec, "from_id"),
			To:         getRecordString(rec, "to_id"),
			Type:       models.EdgeType(getRecordString(rec, "type")),
			Accessible: getRecordBool(rec, "accessible"),
		})
	}
	if err := edgeResult.Err(); err != nil {
		e.logger.Warn("memgraph edge result error, falling back", "error", err)
		return e.fallback.Building(ctx)
	}

	return nodes, edges, nil
}

// Neighbors returns all nodes connected to nodeID in either direction.
func (e *MemgraphEngine) Neighbors(ctx context.Context, nodeID string) ([]models.Node, error) {
	session := e.newSession(ctx)
	defer session.Close(ctx) //nolint:errcheck // best-effort cleanup

	cypher := `MATCH (:Place {id: $id})-[:CONNECTS]-(p:Place) WITH DISTINCT p` + placeReturn
	result, err := session.Run(ctx, cypher, map[string]any{"id": nodeID})
	if err != nil {
		e.logger.Warn("memgraph neighbors failed, falling back", "error", err)
		return e.fallback.Neighbors(ctx, nodeID)
	}

	var nodes []models.Node
	for result.Next(ctx) {
		nodes = append(nodes, recordToNode(result.Record()))
	}

	if err := result.Err(); err != nil {
		e.logger.Warn("memgraph neighbors result error, falling back", "error", err)
		return e.fallback.Neighbors(ctx, nodeID)
	}

	return nodes, nil
}

// recordToNode converts a neo4j record to a models.Node.
func recordToNode(record *neo4j.Record) models.Node {
	return models.Node{
		ID:         getRecordString(record, "id"),
		Label:      getRecordString(record, "label"),
		Type:       models.NodeType(getRecordString(record, "type")),
		X:          getRecordFloat(record, "x"),
		Y:          getRecordFloat(record, "y"),
		Accessible: getRecordBool(record, "accessible"),
	}
}

func getRecordString(record *neo4j.Record, key string) string {
	v, ok := record.Get(key)
	if !ok || v == nil {
		return ""
	}
	return toString(v)
}

func getRecordFloat(record *neo4j.Record, key string) float64 {
	v, _ := record.Get(key)
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}

func getRecordBool(record *neo4j.Record, key string) bool {
	v, _ := record.Get(key)
	b, _ := v.(bool)
	return b
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
