package graph

import (
	"context"

	"github.com/matijazezelj/wayfind/pkg/models"
)

// Engine reads the building model for routing. Implementations may read
// the primary store (LocalEngine) or the Memgraph mirror (MemgraphEngine).
type Engine interface {
	// Building returns every node and edge of the model.
	Building(ctx context.Context) ([]models.Node, []models.Edge, error)

	// Neighbors returns all nodes directly connected to nodeID.
	Neighbors(ctx context.Context, nodeID string) ([]models.Node, error)

	// Close releases any resources held by the engine.
	Close() error
}
