package mcp

import (
	"context"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/matijazezelj/wayfind/internal/graph"
	"github.com/matijazezelj/wayfind/internal/metrics"
	"github.com/matijazezelj/wayfind/internal/navigation"
	"github.com/matijazezelj/wayfind/internal/wayfinder"
	"github.com/matijazezelj/wayfind/pkg/models"
)

type FindRouteInput struct {
	From       string   `json:"from" jsonschema:"starting place id"`
	To         string   `json:"to" jsonschema:"destination place id"`
	Accessible bool     `json:"accessible,omitempty" jsonschema:"only use wheelchair accessible connections"`
	Blocked    []string `json:"blocked,omitempty" jsonschema:"extra connections to avoid, each written A~B"`
}

type FindNearestExitInput struct {
	From       string   `json:"from" jsonschema:"starting place id"`
	Accessible bool     `json:"accessible,omitempty" jsonschema:"only use wheelchair accessible connections and allow refuge areas"`
	Blocked    []string `json:"blocked,omitempty" jsonschema:"extra connections to avoid, each written A~B"`
}

type ListPlacesInput struct {
	Type       string `json:"type,omitempty" jsonschema:"place type filter: exit, elevator, stairs, refuge, ramp, intersection or door"`
	Accessible *bool  `json:"accessible,omitempty" jsonschema:"accessibility filter"`
}

type ListHazardsInput struct{}

type RouteOutput struct {
	Found      bool     `json:"found"`
	Reason     string   `json:"reason,omitempty"`
	Path       []string `json:"path,omitempty"`
	Distance   float64  `json:"distance,omitempty"`
	Heading    string   `json:"heading,omitempty"`
	Directions []string `json:"directions,omitempty"`
}

type EvacuationOutput struct {
	Found      bool     `json:"found"`
	Reason     string   `json:"reason,omitempty"`
	TargetID   string   `json:"target_id,omitempty"`
	IsRefuge   bool     `json:"is_refuge,omitempty"`
	Path       []string `json:"path,omitempty"`
	Distance   float64  `json:"distance,omitempty"`
	Heading    string   `json:"heading,omitempty"`
	Directions []string `json:"directions,omitempty"`
}

type PlaceOutput struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	Type       string  `json:"type"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Accessible bool    `json:"accessible"`
}

type ListPlacesOutput struct {
	Places []PlaceOutput `json:"places"`
}

type HazardOutput struct {
	ID        int64  `json:"id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Reason    string `json:"reason,omitempty"`
	CreatedAt string `json:"created_at"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

type ListHazardsOutput struct {
	Hazards []HazardOutput `json:"hazards"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "find_route",
		Description: "Find the shortest walking route between two places, avoiding active hazards",
	}, s.handleFindRoute)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "find_nearest_exit",
		Description: "Find the nearest reachable exit (or refuge area in accessible mode) from a place",
	}, s.handleFindNearestExit)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_places",
		Description: "List the places of the building with optional filters",
	}, s.handleListPlaces)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_hazards",
		Description: "List the currently blocked connections",
	}, s.handleListHazards)
}

func parseBlocked(items []string) ([]models.BlockedEdge, error) {
	blocked := make([]models.BlockedEdge, 0, len(items))
	for _, item := range items {
		b, err := models.ParseBlockedEdge(item)
		if err != nil {
			return nil, err
		}
		blocked = append(blocked, b)
	}
	return blocked, nil
}

func routeOutput(r *wayfinder.RouteResult) RouteOutput {
	out := RouteOutput{
		Found:      true,
		Path:       r.Path,
		Distance:   r.Distance,
		Heading:    r.Heading,
		Directions: make([]string, 0, len(r.Directions)),
	}
	for _, step := range r.Directions {
		out.Directions = append(out.Directions, step.Text)
	}
	return out
}

func (s *Server) handleFindRoute(ctx context.Context, req *sdk.CallToolRequest, input FindRouteInput) (_ *sdk.CallToolResult, _ RouteOutput, err error) {
	done := metrics.TimeTool("find_route")
	defer func() { done(err == nil) }()

	if input.From == "" || input.To == "" {
		return nil, RouteOutput{}, fmt.Errorf("from and to are required")
	}
	blocked, err := parseBlocked(input.Blocked)
	if err != nil {
		return nil, RouteOutput{}, err
	}

	res, err := s.svc.Route(ctx, wayfinder.RouteRequest{
		From:       input.From,
		To:         input.To,
		Accessible: input.Accessible,
		Blocked:    blocked,
	})
	if navigation.IsNotFound(err) {
		return nil, RouteOutput{Reason: err.Error()}, nil
	}
	if err != nil {
		return nil, RouteOutput{}, err
	}
	return nil, routeOutput(res), nil
}

func (s *Server) handleFindNearestExit(ctx context.Context, req *sdk.CallToolRequest, input FindNearestExitInput) (_ *sdk.CallToolResult, _ EvacuationOutput, err error) {
	done := metrics.TimeTool("find_nearest_exit")
	defer func() { done(err == nil) }()

	if input.From == "" {
		return nil, EvacuationOutput{}, fmt.Errorf("from is required")
	}
	blocked, err := parseBlocked(input.Blocked)
	if err != nil {
		return nil, EvacuationOutput{}, err
	}

	res, err := s.svc.Evacuate(ctx, wayfinder.EvacuateRequest{
		From:       input.From,
		Accessible: input.Accessible,
		Blocked:    blocked,
	})
	if navigation.IsNotFound(err) {
		return nil, EvacuationOutput{Reason: err.Error()}, nil
	}
	if err != nil {
		return nil, EvacuationOutput{}, err
	}
	route := routeOutput(&res.RouteResult)
	return nil, EvacuationOutput{
		Found:      true,
		TargetID:   res.TargetID,
		IsRefuge:   res.IsRefuge,
		Path:       route.Path,
		Distance:   route.Distance,
		Heading:    route.Heading,
		Directions: route.Directions,
	}, nil
}

func (s *Server) handleListPlaces(ctx context.Context, req *sdk.CallToolRequest, input ListPlacesInput) (_ *sdk.CallToolResult, _ ListPlacesOutput, err error) {
	done := metrics.TimeTool("list_places")
	defer func() { done(err == nil) }()

	if input.Type != "" && !models.NodeType(input.Type).Valid() {
		return nil, ListPlacesOutput{}, fmt.Errorf("unknown place type %q", input.Type)
	}
	nodes, err := s.store.ListNodes(ctx, graph.NodeFilter{Type: input.Type, Accessible: input.Accessible})
	if err != nil {
		return nil, ListPlacesOutput{}, err
	}

	output := make([]PlaceOutput, 0, len(nodes))
	for _, n := range nodes {
		output = append(output, PlaceOutput{
			ID:         n.ID,
			Label:      n.DisplayName(),
			Type:       string(n.Type),
			X:          n.X,
			Y:          n.Y,
			Accessible: n.Accessible,
		})
	}
	return nil, ListPlacesOutput{Places: output}, nil
}

func (s *Server) handleListHazards(ctx context.Context, req *sdk.CallToolRequest, input ListHazardsInput) (_ *sdk.CallToolResult, _ ListHazardsOutput, err error) {
	done := metrics.TimeTool("list_hazards")
	defer func() { done(err == nil) }()

	hazards, err := s.svc.ActiveHazards(ctx)
	if err != nil {
		return nil, ListHazardsOutput{}, err
	}

	output := make([]HazardOutput, 0, len(hazards))
	for _, h := range hazards {
		o := HazardOutput{
			ID:        h.ID,
			From:      h.From,
			To:        h.To,
			Reason:    h.Reason,
			CreatedAt: h.CreatedAt.UTC().Format(time.RFC3339),
		}
		if h.ExpiresAt != nil {
			o.ExpiresAt = h.ExpiresAt.UTC().Format(time.RFC3339)
		}
		output = append(output, o)
	}
	return nil, ListHazardsOutput{Hazards: output}, nil
}
