package navigation

import (
	"fmt"
	"math"

	"github.com/matijazezelj/wayfind/pkg/models"
)

// EmergencyRoute is the route to the nearest safe target.
type EmergencyRoute struct {
	Route
	TargetID string `json:"target_id"`
	IsRefuge bool   `json:"is_refuge"`
}

// NearestSafeTarget finds the closest reachable exit from start. Only when
// no exit is reachable and the query is in accessibility mode does it fall
// back to the closest refuge, marking the result IsRefuge. Refuges are
// never offered outside accessibility mode. Equal distances resolve to the
// lowest target id.
func NearestSafeTarget(b *Building, start string, opts Options) (*EmergencyRoute, error) {
	if !b.Has(start) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, start)
	}

	adj := BuildAdjacency(b, opts)
	if best := nearestOf(adj, b.ids, start, b.NodesOfType(models.NodeExit)); best != nil {
		return best, nil
	}
	if opts.Accessible {
		if best := nearestOf(adj, b.ids, start, b.NodesOfType(models.NodeRefuge)); best != nil {
			best.IsRefuge = true
			return best, nil
		}
	}
	return nil, ErrNoSafeTarget
}

func nearestOf(adj Adjacency, nodeIDs []string, start string, targets []string) *EmergencyRoute {
	var best *EmergencyRoute
	for _, t := range targets {
		r, ok := ShortestPath(adj, nodeIDs, start, t)
		if !ok {
			continue
		}
		if best == nil || r.Distance < best.Distance {
			best = &EmergencyRoute{Route: r, TargetID: t}
		}
	}
	return best
}

// Reach is the distance from a node to its nearest safe target.
type Reach struct {
	Distance float64 `json:"distance"`
	TargetID string  `json:"target_id"`
	IsRefuge bool    `json:"is_refuge"`
}

// SafeTargetDistances computes, for every node at once, the distance to the
// nearest safe target by searching outward from all exits simultaneously.
// In accessibility mode nodes that reach no exit are then searched from all
// refuges. Nodes that reach nothing are absent from the result. The choice
// of exit agrees with NearestSafeTarget on distance.
func SafeTargetDistances(b *Building, opts Options) map[string]Reach {
	adj := BuildAdjacency(b, opts)
	out := make(map[string]Reach, len(b.ids))

	exits := newSearch(b.ids)
	if ids := b.NodesOfType(models.NodeExit); len(ids) > 0 {
		exits.run(adj, ids, "")
	}
	for _, id := range b.ids {
		if d := exits.distance(id); !math.IsInf(d, 1) {
			out[id] = Reach{Distance: d, TargetID: exits.origin[id]}
		}
	}

	if !opts.Accessible {
		return out
	}
	refuges := newSearch(b.ids)
	if ids := b.NodesOfType(models.NodeRefuge); len(ids) > 0 {
		refuges.run(adj, ids, "")
	}
	for _, id := range b.ids {
		if _, ok := out[id]; ok {
			continue
		}
		if d := refuges.distance(id); !math.IsInf(d, 1) {
			out[id] = Reach{Distance: d, TargetID: refuges.origin[id], IsRefuge: true}
		}
	}
	return out
}

// ImpactResult describes which places are cut off under a set of hazards.
type ImpactResult struct {
	Accessible     bool           `json:"accessible"`
	Blocked        int            `json:"blocked_edges"`
	CutOff         []string       `json:"cut_off"`
	CutOffByType   map[string]int `json:"cut_off_by_type"`
	RefugeOnly     []string       `json:"refuge_only,omitempty"`
	ReachableNodes int            `json:"reachable_nodes"`
}

// Impact reports every node with no route to any safe target under opts,
// and, in accessibility mode, the nodes whose only safe target is a refuge.
func Impact(b *Building, opts Options) ImpactResult {
	reach := SafeTargetDistances(b, opts)
	res := ImpactResult{
		Accessible:   opts.Accessible,
		Blocked:      len(opts.Blocked),
		CutOff:       []string{},
		CutOffByType: make(map[string]int),
	}
	for _, id := range b.ids {
		r, ok := reach[id]
		if !ok {
			res.CutOff = append(res.CutOff, id)
			res.CutOffByType[string(b.nodes[id].Type)]++
			continue
		}
		res.ReachableNodes++
		if r.IsRefuge {
			res.RefugeOnly = append(res.RefugeOnly, id)
		}
	}
	return res
}
