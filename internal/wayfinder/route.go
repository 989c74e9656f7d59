package wayfinder

import (
	"context"

	"github.com/matijazezelj/wayfind/internal/alert"
	"github.com/matijazezelj/wayfind/internal/metrics"
	"github.com/matijazezelj/wayfind/internal/navigation"
	"github.com/matijazezelj/wayfind/pkg/models"
)

// RouteRequest asks for a route between two places.
type RouteRequest struct {
	From       string
	To         string
	Accessible bool
	Blocked    []models.BlockedEdge
}

// RouteResult is a computed route with both instruction variants.
type RouteResult struct {
	Path       []string          `json:"path"`
	Distance   float64           `json:"distance"`
	Heading    string            `json:"heading,omitempty"`
	Directions []navigation.Step `json:"directions"`
	Guidance   []navigation.Step `json:"guidance"`
}

// Route finds the shortest route between two places, avoiding active
// hazards and any extra blocked connections in the request.
func (s *Service) Route(ctx context.Context, req RouteRequest) (res *RouteResult, err error) {
	done := metrics.TimeQuery("route")
	defer func() { done(outcome(err)) }()

	b, err := s.Building(ctx)
	if err != nil {
		return nil, err
	}
	opts, err := s.options(ctx, req.Accessible, req.Blocked)
	if err != nil {
		return nil, err
	}

	r, err := navigation.FindRoute(b, req.From, req.To, opts)
	if err != nil {
		if navigation.IsNotFound(err) {
			s.logger.Info("no route", "from", req.From, "to", req.To, "accessible", req.Accessible, "reason", err)
		}
		return nil, err
	}
	return describe(b, *r), nil
}

// EvacuateRequest asks for the nearest safe place.
type EvacuateRequest struct {
	From       string
	Accessible bool
	Blocked    []models.BlockedEdge
}

// EvacuationResult is a route to the nearest exit or refuge.
type EvacuationResult struct {
	RouteResult
	TargetID string `json:"target_id"`
	IsRefuge bool   `json:"is_refuge"`
}

// Evacuate routes to the nearest reachable exit, falling back to a refuge
// in accessibility mode. Finding neither raises a critical alert.
func (s *Service) Evacuate(ctx context.Context, req EvacuateRequest) (res *EvacuationResult, err error) {
	done := metrics.TimeQuery("evacuate")
	defer func() { done(outcome(err)) }()

	b, err := s.Building(ctx)
	if err != nil {
		return nil, err
	}
	opts, err := s.options(ctx, req.Accessible, req.Blocked)
	if err != nil {
		return nil, err
	}

	er, err := navigation.NearestSafeTarget(b, req.From, opts)
	if err != nil {
		if navigation.IsNotFound(err) {
			s.logger.Warn("no safe target", "from", req.From, "accessible", req.Accessible)
			n, _ := b.Node(req.From)
			s.send(ctx, alert.Event{
				EventType: alert.EventNoSafeTarget,
				Severity:  alert.SeverityCritical,
				Place:     alert.Place{ID: n.ID, Label: n.Label, Type: string(n.Type)},
				Message:   "No reachable exit or refuge from " + n.DisplayName(),
			})
		}
		return nil, err
	}

	if er.IsRefuge {
		s.logger.Info("evacuating to refuge", "from", req.From, "refuge", er.TargetID)
	}
	return &EvacuationResult{
		RouteResult: *describe(b, er.Route),
		TargetID:    er.TargetID,
		IsRefuge:    er.IsRefuge,
	}, nil
}

func describe(b *navigation.Building, r navigation.Route) *RouteResult {
	heading, _ := navigation.Heading(b, r.Path)
	return &RouteResult{
		Path:       r.Path,
		Distance:   r.Distance,
		Heading:    heading,
		Directions: navigation.Directions(b, r.Path),
		Guidance:   navigation.Guidance(b, r.Path),
	}
}

// Impact reports which places lose every route to safety under the active
// hazards.
func (s *Service) Impact(ctx context.Context, accessible bool) (*navigation.ImpactResult, error) {
	b, err := s.Building(ctx)
	if err != nil {
		return nil, err
	}
	opts, err := s.options(ctx, accessible, nil)
	if err != nil {
		return nil, err
	}
	res := navigation.Impact(b, opts)
	return &res, nil
}
