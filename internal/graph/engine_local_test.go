package graph

import (
	"context"
	"testing"
)

func TestLocalEngine_Building(t *testing.T) {
	store := newTestStore(t)
	nodes, edges := smallFloor()
	buildTestGraph(t, store, nodes, edges)
	engine := NewLocalEngine(store)

	gotNodes, gotEdges, err := engine.Building(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(gotNodes) != 4 {
		t.Errorf("expected 4 nodes, got %d", len(gotNodes))
	}
	if len(gotEdges) != 3 {
		t.Errorf("expected 3 edges, got %d", len(gotEdges))
	}
}

func TestLocalEngine_Building_Empty(t *testing.T) {
	engine := NewLocalEngine(newTestStore(t))

	nodes, edges, err := engine.Building(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 0 || len(edges) != 0 {
		t.Errorf("expected empty building, got %d nodes, %d edges", len(nodes), len(edges))
	}
}

func TestLocalEngine_Neighbors(t *testing.T) {
	store := newTestStore(t)
	nodes, edges := smallFloor()
	buildTestGraph(t, store, nodes, edges)
	engine := NewLocalEngine(store)
	ctx := context.Background()

	got, err := engine.Neighbors(ctx, "stairs")
	if err != nil {
		t.Fatal(err)
	}
	ids := make([]string, 0, len(got))
	for _, n := range got {
		ids = append(ids, n.ID)
	}
	if len(ids) != 3 || ids[0] != "exit" || ids[1] != "hall" || ids[2] != "refuge" {
		t.Errorf("neighbors of stairs = %v", ids)
	}

	// edges are undirected, so the far end sees stairs too
	got, err = engine.Neighbors(ctx, "exit")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "stairs" {
		t.Errorf("neighbors of exit = %+v", got)
	}
}

func TestLocalEngine_Neighbors_Unknown(t *testing.T) {
	engine := NewLocalEngine(newTestStore(t))
	got, err := engine.Neighbors(context.Background(), "nowhere")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected no neighbors, got %d", len(got))
	}
}

func TestLocalEngine_Close(t *testing.T) {
	if err := NewLocalEngine(newTestStore(t)).Close(); err != nil {
		t.Fatal(err)
	}
}
