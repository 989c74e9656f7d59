package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/matijazezelj/wayfind/pkg/models"
)

// GraphData holds a full building snapshot for export.
type GraphData struct {
	Nodes   []models.Node        `json:"nodes"`
	Edges   []models.Edge        `json:"edges"`
	Blocked []models.BlockedEdge `json:"blocked,omitempty"`
}

func loadGraph(ctx context.Context, store Store) ([]models.Node, []models.Edge, error) {
	nodes, err := store.ListNodes(ctx, NodeFilter{})
	if err != nil {
		return nil, nil, fmt.Errorf("listing nodes: %w", err)
	}
	edges, err := store.ListEdges(ctx, EdgeFilter{})
	if err != nil {
		return nil, nil, fmt.Errorf("listing edges: %w", err)
	}
	return nodes, edges, nil
}

func isBlocked(e models.Edge, blocked []models.BlockedEdge) bool {
	for _, b := range blocked {
		if b.Matches(e) {
			return true
		}
	}
	return false
}

// ExportJSON returns the building as a JSON string.
func ExportJSON(ctx context.Context, store Store, blocked []models.BlockedEdge) (string, error) {
	nodes, edges, err := loadGraph(ctx, store)
	if err != nil {
		return "", err
	}

	data := GraphData{Nodes: nodes, Edges: edges, Blocked: blocked}
	if data.Nodes == nil {
		data.Nodes = []models.Node{}
	}
	if data.Edges == nil {
		data.Edges = []models.Edge{}
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ExportDOT returns the building in Graphviz DOT format. Nodes are pinned
// to their coordinates for neato; blocked edges are red and dashed,
// inaccessible ones dotted.
func ExportDOT(ctx context.Context, store Store, blocked []models.BlockedEdge) (string, error) {
	nodes, edges, err := loadGraph(ctx, store)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("graph wayfind {\n")
	b.WriteString("  node [shape=box, style=filled];\n\n")

	for _, n := range nodes {
		label := fmt.Sprintf("%s\\n(%s)", n.DisplayName(), n.Type)
		b.WriteString(fmt.Sprintf("  %q [label=%q, fillcolor=%q, pos=\"%g,%g!\"];\n", n.ID, label, nodeColor(n.Type), n.X, n.Y))
	}

	b.WriteString("\n")

	for _, e := range edges {
		attrs := fmt.Sprintf("label=%q", e.Type)
		switch {
		case isBlocked(e, blocked):
			attrs += `, color="#E74C3C", style=dashed, penwidth=2`
		case !e.Accessible:
			attrs += ", style=dotted"
		}
		b.WriteString(fmt.Sprintf("  %q -- %q [%s];\n", e.From, e.To, attrs))
	}

	b.WriteString("}\n")
	return b.String(), nil
}

// ExportMermaid returns the building in Mermaid format.
func ExportMermaid(ctx context.Context, store Store, blocked []models.BlockedEdge) (string, error) {
	nodes, edges, err := loadGraph(ctx, store)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("graph LR\n")

	for _, n := range nodes {
		b.WriteString(fmt.Sprintf("  %s[\"%s (%s)\"]\n", mermaidSafeID(n.ID), n.DisplayName(), n.Type))
	}

	var blockedLinks []int
	for i, e := range edges {
		fromID := mermaidSafeID(e.From)
		toID := mermaidSafeID(e.To)
		if isBlocked(e, blocked) {
			blockedLinks = append(blockedLinks, i)
			b.WriteString(fmt.Sprintf("  %s -. blocked .- %s\n", fromID, toID))
			continue
		}
		b.WriteString(fmt.Sprintf("  %s ---|%s| %s\n", fromID, e.Type, toID))
	}
	for _, i := range blockedLinks {
		b.WriteString(fmt.Sprintf("  linkStyle %d stroke:#E74C3C,stroke-width:2px\n", i))
	}

	return b.String(), nil
}

func nodeColor(t models.NodeType) string {
	switch t {
	case models.NodeExit:
		return "#82E0AA"
	case models.NodeRefuge:
		return "#F9E79F"
	case models.NodeStairs:
		return "#F5CBA7"
	case models.NodeElevator, models.NodeRamp:
		return "#AED6F1"
	case models.NodeDoor:
		return "#D7BDE2"
	default:
		return "#D5D8DC"
	}
}

func mermaidSafeID(id string) string {
	r := strings.NewReplacer(":", "_", ".", "_", "-", "_", "/", "_", " ", "_")
	return r.Replace(id)
}
