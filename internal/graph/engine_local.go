package graph

import (
	"context"
	"fmt"

	"github.com/matijazezelj/wayfind/pkg/models"
)

// LocalEngine implements Engine by reading the primary store.
type LocalEngine struct {
	store Store
}

// NewLocalEngine creates an Engine over store.
func NewLocalEngine(store Store) *LocalEngine {
	return &LocalEngine{store: store}
}

// Building loads all nodes and edges from the store.
func (e *LocalEngine) Building(ctx context.Context) ([]models.Node, []models.Edge, error) {
	nodes, err := e.store.ListNodes(ctx, NodeFilter{})
	if err != nil {
		return nil, nil, fmt.Errorf("listing nodes: %w", err)
	}
	edges, err := e.store.ListEdges(ctx, EdgeFilter{})
	if err != nil {
		return nil, nil, fmt.Errorf("listing edges: %w", err)
	}
	return nodes, edges, nil
}

// Neighbors returns all nodes directly connected to nodeID.
func (e *LocalEngine) Neighbors(ctx context.Context, nodeID string) ([]models.Node, error) {
	return e.store.GetNeighbors(ctx, nodeID)
}

// Close is a no-op for the local engine (no external resources).
func (e *LocalEngine) Close() error {
	return nil
}
