// Package wayfinder serves route, evacuation and hazard requests over the
// stored building model.
package wayfinder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/matijazezelj/wayfind/internal/alert"
	"github.com/matijazezelj/wayfind/internal/graph"
	"github.com/matijazezelj/wayfind/internal/metrics"
	"github.com/matijazezelj/wayfind/internal/navigation"
	"github.com/matijazezelj/wayfind/pkg/models"
)

var (
	// ErrNoBuilding is returned when nothing has been imported yet.
	ErrNoBuilding = errors.New("no building loaded, run `wayfind building import` first")

	// ErrEdgeNotFound is returned when a hazard names a connection the building lacks.
	ErrEdgeNotFound = errors.New("connection not found")

	// ErrHazardNotFound is returned when clearing an unknown hazard.
	ErrHazardNotFound = errors.New("hazard not found")
)

// Config holds service settings.
type Config struct {
	// DefaultTTL applies to hazards declared without an expiry. Zero means
	// they stay until cleared.
	DefaultTTL time.Duration
}

// Service is safe for concurrent use. It keeps no per-user state; the
// loaded Building is cached until the next import.
type Service struct {
	store   graph.Store
	engine  graph.Engine
	alerter alert.Alerter
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.RWMutex
	building *navigation.Building
}

// New creates a Service. alerter may be nil.
func New(store graph.Store, engine graph.Engine, alerter alert.Alerter, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		engine:  engine,
		alerter: alerter,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Building returns the cached building, loading it on first use.
func (s *Service) Building(ctx context.Context) (*navigation.Building, error) {
	s.mu.RLock()
	b := s.building
	s.mu.RUnlock()
	if b != nil {
		return b, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.building != nil {
		return s.building, nil
	}

	nodes, edges, err := s.engine.Building(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading building: %w", err)
	}
	if len(nodes) == 0 {
		return nil, ErrNoBuilding
	}
	b, err = navigation.NewBuilding(nodes, edges)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("building loaded", "nodes", len(nodes), "edges", len(edges))
	s.building = b
	return b, nil
}

// Neighbors returns the places directly connected to id, read through the
// graph engine so a Memgraph mirror serves it when configured.
func (s *Service) Neighbors(ctx context.Context, id string) ([]models.Node, error) {
	nodes, err := s.engine.Neighbors(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing neighbors of %s: %w", id, err)
	}
	return nodes, nil
}

// Invalidate drops the cached building so the next request reloads it.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.building = nil
	s.mu.Unlock()
}

// options merges active hazards with the request's own blocked edges.
func (s *Service) options(ctx context.Context, accessible bool, blocked []models.BlockedEdge) (navigation.Options, error) {
	hazards, err := s.store.ListHazards(ctx, s.now())
	if err != nil {
		return navigation.Options{}, fmt.Errorf("listing hazards: %w", err)
	}
	all := make([]models.BlockedEdge, 0, len(hazards)+len(blocked))
	for _, h := range hazards {
		all = append(all, h.Blocked())
	}
	all = append(all, blocked...)
	return navigation.Options{Accessible: accessible, Blocked: all}, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeFound
	case navigation.IsNotFound(err):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}

func (s *Service) send(ctx context.Context, event alert.Event) {
	if s.alerter == nil {
		return
	}
	event.Source = "wayfind"
	event.Timestamp = s.now()
	if err := s.alerter.Send(ctx, event); err != nil {
		s.logger.Warn("failed to send alert", "event", event.EventType, "error", err)
	}
}
