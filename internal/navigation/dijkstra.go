package navigation

import (
	"container/heap"
	"math"
)

// Route is an ordered sequence of node ids from start to target, both
// inclusive, with its total length in meters.
type Route struct {
	Path     []string `json:"path"`
	Distance float64  `json:"distance"`
}

// ShortestPath runs Dijkstra from start to end over an already filtered
// adjacency. nodeIDs is the full vertex set; start and end must be in it.
// The boolean is false when end is unreachable, which is an expected
// outcome rather than an error. Equal-cost frontiers are expanded in
// lexicographic id order, so results are reproducible.
func ShortestPath(adj Adjacency, nodeIDs []string, start, end string) (Route, bool) {
	known := make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		known[id] = true
	}
	if !known[start] || !known[end] {
		return Route{}, false
	}
	if start == end {
		return Route{Path: []string{start}, Distance: 0}, true
	}

	s := newSearch(nodeIDs)
	s.run(adj, []string{start}, end)

	d := s.distance(end)
	if math.IsInf(d, 1) {
		return Route{}, false
	}
	return Route{Path: s.pathTo(end), Distance: d}, true
}

// search holds the state of one Dijkstra execution. Sources may be several
// nodes at distance zero; origin records which source settled each node.
type search struct {
	dist    map[string]float64
	prev    map[string]string
	origin  map[string]string
	visited map[string]bool
}

func newSearch(nodeIDs []string) *search {
	s := &search{
		dist:    make(map[string]float64, len(nodeIDs)),
		prev:    make(map[string]string, len(nodeIDs)),
		origin:  make(map[string]string, len(nodeIDs)),
		visited: make(map[string]bool, len(nodeIDs)),
	}
	for _, id := range nodeIDs {
		s.dist[id] = math.Inf(1)
	}
	return s
}

func (s *search) distance(id string) float64 {
	d, ok := s.dist[id]
	if !ok {
		return math.Inf(1)
	}
	return d
}

// run expands from sources until target is settled, or until every
// reachable node is settled when target is empty.
func (s *search) run(adj Adjacency, sources []string, target string) {
	pq := make(frontier, 0, len(s.dist))
	heap.Init(&pq)
	for _, src := range sources {
		s.dist[src] = 0
		s.origin[src] = src
		heap.Push(&pq, &frontierItem{id: src, dist: 0})
	}

	for pq.Len() > 0 {
		cur := heap.Pop(&pq).(*frontierItem)
		if s.visited[cur.id] {
			continue
		}
		if cur.dist > s.distance(cur.id) {
			continue
		}
		s.visited[cur.id] = true
		if cur.id == target {
			return
		}

		for _, nb := range adj[cur.id] {
			if s.visited[nb.ID] {
				continue
			}
			alt := cur.dist + nb.Weight
			if alt < s.distance(nb.ID) {
				s.dist[nb.ID] = alt
				s.prev[nb.ID] = cur.id
				s.origin[nb.ID] = s.origin[cur.id]
				heap.Push(&pq, &frontierItem{id: nb.ID, dist: alt})
			}
		}
	}
}

// pathTo walks predecessor links back from id and returns the path in
// source-to-id order.
func (s *search) pathTo(id string) []string {
	var rev []string
	for cur := id; ; {
		rev = append(rev, cur)
		p, ok := s.prev[cur]
		if !ok {
			break
		}
		cur = p
	}
	path := make([]string, len(rev))
	for i := range rev {
		path[i] = rev[len(rev)-1-i]
	}
	return path
}

type frontierItem struct {
	id   string
	dist float64
}

// frontier is a min-heap ordered by distance, then by id.
type frontier []*frontierItem

func (f frontier) Len() int { return len(f) }
func (f frontier) Less(i, j int) bool {
	if f[i].dist != f[j].dist {
		return f[i].dist < f[j].dist
	}
	return f[i].id < f[j].id
}
func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }

func (f *frontier) Push(x any) {
	*f = append(*f, x.(*frontierItem))
}

func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	item := old[n-1]
	*f = old[:n-1]
	return item
}
