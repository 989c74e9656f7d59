package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// NodeType represents the kind of place a graph node stands for.
type NodeType string

// Node type constants for building places.
const (
	NodeExit         NodeType = "exit"
	NodeElevator     NodeType = "elevator"
	NodeStairs       NodeType = "stairs"
	NodeRefuge       NodeType = "refuge"
	NodeRamp         NodeType = "ramp"
	NodeIntersection NodeType = "intersection"
	NodeDoor         NodeType = "door"
)

// Valid reports whether t is a known node type.
func (t NodeType) Valid() bool {
	switch t {
	case NodeExit, NodeElevator, NodeStairs, NodeRefuge, NodeRamp, NodeIntersection, NodeDoor:
		return true
	}
	return false
}

// EdgeType represents the kind of connection between two places.
type EdgeType string

// Edge type constants for connections between places.
const (
	EdgeCorridor EdgeType = "corridor"
	EdgeDoor     EdgeType = "door"
	EdgeRoom     EdgeType = "room"
	EdgeStairs   EdgeType = "stairs"
	EdgeElevator EdgeType = "elevator"
	EdgeRamp     EdgeType = "ramp"
)

// Valid reports whether t is a known edge type.
func (t EdgeType) Valid() bool {
	switch t {
	case EdgeCorridor, EdgeDoor, EdgeRoom, EdgeStairs, EdgeElevator, EdgeRamp:
		return true
	}
	return false
}

// Node is a point in building space, in meters.
type Node struct {
	ID         string   `json:"id" yaml:"id"`
	X          float64  `json:"x" yaml:"x"`
	Y          float64  `json:"y" yaml:"y"`
	Type       NodeType `json:"type" yaml:"type"`
	Accessible bool     `json:"accessible" yaml:"accessible"`
	Label      string   `json:"label,omitempty" yaml:"label,omitempty"`
}

// Point returns the node position as a planar point.
func (n Node) Point() orb.Point {
	return orb.Point{n.X, n.Y}
}

// DisplayName returns the label, or the ID for anonymous nodes.
func (n Node) DisplayName() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// Edge is an undirected connection between two nodes. The weight is never
// stored; it is the distance between the endpoints.
type Edge struct {
	From       string   `json:"from" yaml:"from"`
	To         string   `json:"to" yaml:"to"`
	Type       EdgeType `json:"type" yaml:"type"`
	Accessible bool     `json:"accessible" yaml:"accessible"`
}

// Connects reports whether the edge joins a and b, in either direction.
func (e Edge) Connects(a, b string) bool {
	return (e.From == a && e.To == b) || (e.From == b && e.To == a)
}

// Key returns an order-independent identifier for the edge.
func (e Edge) Key() string {
	return EdgeKey(e.From, e.To)
}

// EdgeKey returns the order-independent key of the connection a-b.
func EdgeKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "~" + b
}

// BlockedEdge marks a connection as temporarily impassable.
type BlockedEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Matches reports whether the blocked pair refers to e, in either direction.
func (b BlockedEdge) Matches(e Edge) bool {
	return e.Connects(b.From, b.To)
}

// ParseBlockedEdge parses the "A~B" form used on the command line and in
// query strings.
func ParseBlockedEdge(s string) (BlockedEdge, error) {
	from, to, ok := strings.Cut(strings.TrimSpace(s), "~")
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if !ok || from == "" || to == "" {
		return BlockedEdge{}, fmt.Errorf("invalid blocked edge %q, want FROM~TO", s)
	}
	return BlockedEdge{From: from, To: to}, nil
}

// ParseBlockedList parses a comma-separated list of "A~B" pairs. An empty
// string yields no edges.
func ParseBlockedList(s string) ([]BlockedEdge, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []BlockedEdge
	for _, part := range strings.Split(s, ",") {
		b, err := ParseBlockedEdge(part)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// Hazard is an operator-declared blocked edge.
type Hazard struct {
	ID        int64      `json:"id"`
	From      string     `json:"from"`
	To        string     `json:"to"`
	Reason    string     `json:"reason,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Blocked returns the hazard as a blocked edge.
func (h Hazard) Blocked() BlockedEdge {
	return BlockedEdge{From: h.From, To: h.To}
}

// ActiveAt reports whether the hazard is still in force at t.
func (h Hazard) ActiveAt(t time.Time) bool {
	return h.ExpiresAt == nil || h.ExpiresAt.After(t)
}

// Import records one load of a building model into the store.
type Import struct {
	ID         int64      `json:"id"`
	Source     string     `json:"source"`
	SourcePath string     `json:"source_path"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	NodesFound int        `json:"nodes_found"`
	EdgesFound int        `json:"edges_found"`
	Status     string     `json:"status"`
}
