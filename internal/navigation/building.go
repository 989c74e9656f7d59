package navigation

import (
	"fmt"
	"sort"

	"github.com/matijazezelj/wayfind/pkg/models"
)

// Building is the immutable static graph of one floor. It is built once and
// shared read-only by every query; nothing in this package mutates it.
type Building struct {
	nodes  map[string]models.Node
	ids    []string
	edges  []models.Edge
	byType map[models.NodeType][]string
}

// NewBuilding validates the node and edge sets and returns a Building.
// Stairs edges are always stored as non-accessible. Any duplicate id,
// unknown type, or edge referencing a missing node yields an *IntegrityError.
func NewBuilding(nodes []models.Node, edges []models.Edge) (*Building, error) {
	b := &Building{
		nodes:  make(map[string]models.Node, len(nodes)),
		byType: make(map[models.NodeType][]string),
	}

	var problems []string
	for _, n := range nodes {
		if n.ID == "" {
			problems = append(problems, "node with empty id")
			continue
		}
		if _, dup := b.nodes[n.ID]; dup {
			problems = append(problems, fmt.Sprintf("duplicate node id %q", n.ID))
			continue
		}
		if !n.Type.Valid() {
			problems = append(problems, fmt.Sprintf("node %q has unknown type %q", n.ID, n.Type))
		}
		b.nodes[n.ID] = n
		b.ids = append(b.ids, n.ID)
		b.byType[n.Type] = append(b.byType[n.Type], n.ID)
	}

	seen := make(map[string]bool, len(edges))
	for _, e := range edges {
		if _, ok := b.nodes[e.From]; !ok {
			problems = append(problems, fmt.Sprintf("edge %s references unknown node %q", e.Key(), e.From))
			continue
		}
		if _, ok := b.nodes[e.To]; !ok {
			problems = append(problems, fmt.Sprintf("edge %s references unknown node %q", e.Key(), e.To))
			continue
		}
		if e.From == e.To {
			problems = append(problems, fmt.Sprintf("edge %s is a self-loop", e.Key()))
			continue
		}
		if seen[e.Key()] {
			problems = append(problems, fmt.Sprintf("duplicate edge %s", e.Key()))
			continue
		}
		seen[e.Key()] = true
		if e.Type == models.EdgeStairs {
			e.Accessible = false
		}
		b.edges = append(b.edges, e)
	}

	if len(problems) > 0 {
		return nil, &IntegrityError{Problems: problems}
	}

	sort.Strings(b.ids)
	for t := range b.byType {
		sort.Strings(b.byType[t])
	}
	return b, nil
}

// Node returns the node with the given id.
func (b *Building) Node(id string) (models.Node, bool) {
	n, ok := b.nodes[id]
	return n, ok
}

// Has reports whether the building contains id.
func (b *Building) Has(id string) bool {
	_, ok := b.nodes[id]
	return ok
}

// NodeIDs returns every node id in lexicographic order.
func (b *Building) NodeIDs() []string {
	return append([]string(nil), b.ids...)
}

// Nodes returns every node ordered by id.
func (b *Building) Nodes() []models.Node {
	out := make([]models.Node, 0, len(b.ids))
	for _, id := range b.ids {
		out = append(out, b.nodes[id])
	}
	return out
}

// Edges returns the edge list as stored, each connection once.
func (b *Building) Edges() []models.Edge {
	return append([]models.Edge(nil), b.edges...)
}

// NodesOfType returns the ids of all nodes of type t, ordered by id.
func (b *Building) NodesOfType(t models.NodeType) []string {
	return append([]string(nil), b.byType[t]...)
}

// Edge returns the stored edge joining from and to, in either direction.
func (b *Building) Edge(from, to string) (models.Edge, bool) {
	for _, e := range b.edges {
		if e.Connects(from, to) {
			return e, true
		}
	}
	return models.Edge{}, false
}
