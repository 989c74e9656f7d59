package wayfinder

import (
	"context"
	"fmt"
	"time"

	"github.com/matijazezelj/wayfind/internal/building"
	"github.com/matijazezelj/wayfind/internal/graph"
	"github.com/matijazezelj/wayfind/pkg/models"
)

// ImportResult is returned after an import completes.
type ImportResult struct {
	ImportID   int64    `json:"import_id"`
	Name       string   `json:"name"`
	NodesFound int      `json:"nodes_found"`
	EdgesFound int      `json:"edges_found"`
	Warnings   []string `json:"warnings,omitempty"`
}

// Import validates a building model and replaces the stored one with it.
// Every attempt is recorded in the import history.
func (s *Service) Import(ctx context.Context, f *building.File, sourcePath string) (*ImportResult, error) {
	start := s.now()
	importID, err := s.store.RecordImport(ctx, models.Import{
		Source:     f.Name,
		SourcePath: sourcePath,
		StartedAt:  start,
		Status:     graph.ImportRunning,
	})
	if err != nil {
		return nil, fmt.Errorf("recording import: %w", err)
	}

	fail := func(err error) (*ImportResult, error) {
		_ = s.store.UpdateImport(ctx, importID, graph.ImportFailed, len(f.Nodes), len(f.Edges))
		return nil, err
	}

	b, err := f.Build()
	if err != nil {
		return fail(err)
	}
	// NewBuilding normalizes stairs, so store what it kept.
	if err := s.store.ReplaceBuilding(ctx, b.Nodes(), b.Edges()); err != nil {
		return fail(fmt.Errorf("storing building: %w", err))
	}
	if err := s.store.UpdateImport(ctx, importID, graph.ImportCompleted, len(f.Nodes), len(f.Edges)); err != nil {
		s.logger.Warn("failed to update import record", "importID", importID, "error", err)
	}

	s.Invalidate()
	for _, w := range f.Warnings {
		s.logger.Warn("building model", "warning", w)
	}
	s.logger.Info("building imported", "name", f.Name, "nodes", len(f.Nodes), "edges", len(f.Edges), "took", s.now().Sub(start).Round(time.Millisecond))

	return &ImportResult{
		ImportID:   importID,
		Name:       f.Name,
		NodesFound: len(f.Nodes),
		EdgesFound: len(f.Edges),
		Warnings:   f.Warnings,
	}, nil
}
