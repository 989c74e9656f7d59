package navigation

import "fmt"

// FindRoute computes the shortest route from start to end under opts.
// Unknown ids yield ErrUnknownNode. An unreachable target yields
// ErrNoAccessiblePath in accessibility mode and ErrNoPath otherwise.
func FindRoute(b *Building, start, end string, opts Options) (*Route, error) {
	for _, id := range []string{start, end} {
		if !b.Has(id) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownNode, id)
		}
	}

	adj := BuildAdjacency(b, opts)
	r, ok := ShortestPath(adj, b.ids, start, end)
	if !ok {
		if opts.Accessible {
			return nil, ErrNoAccessiblePath
		}
		return nil, ErrNoPath
	}
	return &r, nil
}
