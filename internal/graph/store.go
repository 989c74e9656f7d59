package graph

import (
	"context"
	"time"

	"github.com/matijazezelj/wayfind/pkg/models"
)

// Import status values.
const (
	ImportRunning   = "running"
	ImportCompleted = "completed"
	ImportFailed    = "failed"
)

// Store defines the interface for persisting the building model, operator
// hazards and import history.
type Store interface {
	// Init initializes the store (creates tables, indexes, etc.).
	Init(ctx context.Context) error

	// Close closes the store connection.
	Close() error

	// ReplaceBuilding atomically swaps the stored model for nodes and edges.
	// Hazards on connections that no longer exist are dropped.
	ReplaceBuilding(ctx context.Context, nodes []models.Node, edges []models.Edge) error

	// UpsertNode inserts or updates a node.
	UpsertNode(ctx context.Context, node models.Node) error

	// UpsertEdge inserts or updates an edge. Edges are keyed by their
	// endpoints regardless of direction.
	UpsertEdge(ctx context.Context, edge models.Edge) error

	// GetNode retrieves a node by ID, or nil if it does not exist.
	GetNode(ctx context.Context, id string) (*models.Node, error)

	// ListNodes returns nodes matching the given filters, ordered by ID.
	ListNodes(ctx context.Context, filter NodeFilter) ([]models.Node, error)

	// ListEdges returns edges matching the given filters.
	ListEdges(ctx context.Context, filter EdgeFilter) ([]models.Edge, error)

	// GetNeighbors returns nodes directly connected to the given node.
	GetNeighbors(ctx context.Context, nodeID string) ([]models.Node, error)

	// NodeCount returns the total number of nodes.
	NodeCount(ctx context.Context) (int, error)

	// EdgeCount returns the total number of edges.
	EdgeCount(ctx context.Context) (int, error)

	// NodeCountByType returns node counts grouped by type.
	NodeCountByType(ctx context.Context) (map[string]int, error)

	// EdgeCountByType returns edge counts grouped by type.
	EdgeCountByType(ctx context.Context) (map[string]int, error)

	// AddHazard stores a hazard and returns its ID.
	AddHazard(ctx context.Context, h models.Hazard) (int64, error)

	// ListHazards returns hazards still in force at activeAt. A zero
	// activeAt returns every stored hazard.
	ListHazards(ctx context.Context, activeAt time.Time) ([]models.Hazard, error)

	// DeleteHazard removes one hazard and reports whether it existed.
	DeleteHazard(ctx context.Context, id int64) (bool, error)

	// ClearHazards removes every hazard and returns how many were removed.
	ClearHazards(ctx context.Context) (int, error)

	// DeleteExpiredHazards removes hazards whose expiry is at or before now
	// and returns them.
	DeleteExpiredHazards(ctx context.Context, now time.Time) ([]models.Hazard, error)

	// RecordImport records an import operation.
	RecordImport(ctx context.Context, imp models.Import) (int64, error)

	// UpdateImport updates an import record.
	UpdateImport(ctx context.Context, id int64, status string, nodesFound, edgesFound int) error

	// ListImports returns recent import records.
	ListImports(ctx context.Context, limit int) ([]models.Import, error)
}

// NodeFilter specifies criteria for listing nodes.
type NodeFilter struct {
	Type       string
	Accessible *bool
}

// EdgeFilter specifies criteria for listing edges.
type EdgeFilter struct {
	Type string
	// NodeID matches edges with the node at either end.
	NodeID     string
	Accessible *bool
}
