package navigation

import (
	"sort"

	"github.com/paulmach/orb/planar"

	"github.com/matijazezelj/wayfind/pkg/models"
)

// Options are the per-query parameters. They are owned by the caller and
// passed in on every recomputation.
type Options struct {
	// Accessible restricts routing to edges marked accessible.
	Accessible bool
	// Blocked lists connections to treat as impassable, matched in either direction.
	Blocked []models.BlockedEdge
}

// blocks reports whether e is excluded by the blocked set.
func (o Options) blocks(e models.Edge) bool {
	for _, b := range o.Blocked {
		if b.Matches(e) {
			return true
		}
	}
	return false
}

// Neighbor is one adjacency entry: the node on the other side of an edge and
// the edge's length in meters.
type Neighbor struct {
	ID     string  `json:"id"`
	Weight float64 `json:"weight"`
}

// Adjacency maps a node id to its reachable neighbors.
type Adjacency map[string][]Neighbor

// BuildAdjacency derives the filtered, weighted, undirected adjacency for one
// query. Edges are dropped when the query is in accessibility mode and the
// edge is not accessible, or when the edge is blocked. Every surviving edge
// is inserted in both directions. A node whose edges were all dropped is
// simply absent from the map.
func BuildAdjacency(b *Building, opts Options) Adjacency {
	adj := make(Adjacency)
	for _, e := range b.edges {
		if opts.Accessible && !e.Accessible {
			continue
		}
		if opts.blocks(e) {
			continue
		}
		from, okFrom := b.nodes[e.From]
		to, okTo := b.nodes[e.To]
		if !okFrom || !okTo {
			// unreachable for a Building from NewBuilding
			continue
		}
		w := planar.Distance(from.Point(), to.Point())
		adj[e.From] = append(adj[e.From], Neighbor{ID: e.To, Weight: w})
		adj[e.To] = append(adj[e.To], Neighbor{ID: e.From, Weight: w})
	}
	for id := range adj {
		ns := adj[id]
		sort.Slice(ns, func(i, j int) bool { return ns[i].ID < ns[j].ID })
	}
	return adj
}

// Distance returns the Euclidean distance between two nodes of the building.
func (b *Building) Distance(from, to string) float64 {
	return planar.Distance(b.nodes[from].Point(), b.nodes[to].Point())
}

// PathLength sums the segment lengths along path.
func (b *Building) PathLength(path []string) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += b.Distance(path[i-1], path[i])
	}
	return total
}
