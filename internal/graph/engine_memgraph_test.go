package graph

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/matijazezelj/wayfind/pkg/models"
)

// nopWriter discards log output in tests.
type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

// --- Pure function tests (no mocking) ---

func TestToString(t *testing.T) {
	tests := []struct {
		input any
		want  string
	}{
		{nil, ""},
		{"hello", "hello"},
		{42, "42"},
		{int64(99), "99"},
		{3.14, "3.14"},
	}
	for _, tt := range tests {
		got := toString(tt.input)
		if got != tt.want {
			t.Errorf("toString(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestGetRecordString(t *testing.T) {
	rec := &neo4j.Record{
		Keys:   []string{"label", "floor", "empty"},
		Values: []any{"Atrium", 3, nil},
	}

	if got := getRecordString(rec, "label"); got != "Atrium" {
		t.Errorf("getRecordString(label) = %q", got)
	}
	if got := getRecordString(rec, "floor"); got != "3" {
		t.Errorf("getRecordString(floor) = %q", got)
	}
	if got := getRecordString(rec, "empty"); got != "" {
		t.Errorf("getRecordString(empty) = %q", got)
	}
	if got := getRecordString(rec, "missing"); got != "" {
		t.Errorf("getRecordString(missing) = %q", got)
	}
}

func TestGetRecordFloat(t *testing.T) {
	rec := &neo4j.Record{
		Keys:   []string{"f", "i64", "i", "s"},
		Values: []any{2.5, int64(7), 4, "x"},
	}

	tests := map[string]float64{"f": 2.5, "i64": 7, "i": 4, "s": 0, "missing": 0}
	for key, want := range tests {
		if got := getRecordFloat(rec, key); got != want {
			t.Errorf("getRecordFloat(%s) = %v, want %v", key, got, want)
		}
	}
}

func TestGetRecordBool(t *testing.T) {
	rec := &neo4j.Record{
		Keys:   []string{"yes", "no", "str"},
		Values: []any{true, false, "true"},
	}
	if !getRecordBool(rec, "yes") {
		t.Error("yes should be true")
	}
	if getRecordBool(rec, "no") || getRecordBool(rec, "str") || getRecordBool(rec, "missing") {
		t.Error("only real booleans should read as true")
	}
}

func TestRecordToNode(t *testing.T) {
	node := recordToNode(makeNodeRecord("NODE_EXIT_C", "exit", 1.5, -12, true))
	want := models.Node{ID: "NODE_EXIT_C", Label: "NODE_EXIT_C", Type: models.NodeExit, X: 1.5, Y: -12, Accessible: true}
	if node != want {
		t.Errorf("recordToNode = %+v, want %+v", node, want)
	}
}

// --- Engine tests with mock sessions ---

func newTestMemgraphEngine(t *testing.T, sf sessionFactory) (*MemgraphEngine, *SQLiteStore) {
	t.Helper()
	store := newTestStore(t)
	return &MemgraphEngine{
		newSession: sf,
		fallback:   NewLocalEngine(store),
		logger:     testLogger(),
	}, store
}

func TestMemgraphEngine_Building(t *testing.T) {
	sess := &mockSession{
		runFunc: func(cypher string, _ map[string]any) (resultIterator, error) {
			if strings.Contains(cypher, "CONNECTS") {
				return &mockResult{records: []*neo4j.Record{
					makeEdgeRecord("hall", "exit", "door", true),
				}}, nil
			}
			return &mockResult{records: []*neo4j.Record{
				makeNodeRecord("exit", "exit", 5, 0, true),
				makeNodeRecord("hall", "intersection", 0, 0, true),
			}}, nil
		},
	}
	engine, _ := newTestMemgraphEngine(t, mockSessionFactory(sess))

	nodes, edges, err := engine.Building(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 2 || len(edges) != 1 {
		t.Fatalf("got %d nodes, %d edges", len(nodes), len(edges))
	}
	if edges[0].From != "hall" || edges[0].Type != models.EdgeDoor || !edges[0].Accessible {
		t.Errorf("edge = %+v", edges[0])
	}
	if len(sess.calls) != 2 {
		t.Errorf("expected 2 Run calls, got %d", len(sess.calls))
	}
}

func TestMemgraphEngine_Building_FallbackOnError(t *testing.T) {
	engine, store := newTestMemgraphEngine(t, failSessionFactory(fmt.Errorf("connection refused")))
	nodes, edges := smallFloor()
	buildTestGraph(t, store, nodes, edges)

	gotNodes, gotEdges, err := engine.Building(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(gotNodes) != 4 || len(gotEdges) != 3 {
		t.Errorf("fallback returned %d nodes, %d edges", len(gotNodes), len(gotEdges))
	}
}

func TestMemgraphEngine_Building_FallbackOnResultError(t *testing.T) {
	sess := &mockSession{
		runFunc: func(_ string, _ map[string]any) (resultIterator, error) {
			return &mockResult{err: fmt.Errorf("stream broken")}, nil
		},
	}
	engine, store := newTestMemgraphEngine(t, mockSessionFactory(sess))
	nodes, edges := smallFloor()
	buildTestGraph(t, store, nodes, edges)

	gotNodes, _, err := engine.Building(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(gotNodes) != 4 {
		t.Errorf("fallback returned %d nodes", len(gotNodes))
	}
}

func TestMemgraphEngine_Building_FallbackOnEmptyMirror(t *testing.T) {
	sess := &mockSession{}
	engine, store := newTestMemgraphEngine(t, mockSessionFactory(sess))
	nodes, edges := smallFloor()
	buildTestGraph(t, store, nodes, edges)

	gotNodes, _, err := engine.Building(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(gotNodes) != 4 {
		t.Errorf("expected store contents, got %d nodes", len(gotNodes))
	}
	if len(sess.calls) != 1 {
		t.Errorf("edge query should be skipped, got %d calls", len(sess.calls))
	}
}

func TestMemgraphEngine_Neighbors(t *testing.T) {
	sess := &mockSession{
		runFunc: func(_ string, params map[string]any) (resultIterator, error) {
			if params["id"] != "stairs" {
				return nil, fmt.Errorf("unexpected id %v", params["id"])
			}
			return &mockResult{records: []*neo4j.Record{
				makeNodeRecord("exit", "exit", 10, -5, true),
				makeNodeRecord("hall", "intersection", 0, 0, true),
			}}, nil
		},
	}
	engine, _ := newTestMemgraphEngine(t, mockSessionFactory(sess))

	got, err := engine.Neighbors(context.Background(), "stairs")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "exit" {
		t.Errorf("neighbors = %+v", got)
	}
	if !sess.closed {
		t.Error("session should be closed")
	}
}

func TestMemgraphEngine_Neighbors_Fallback(t *testing.T) {
	engine, store := newTestMemgraphEngine(t, failSessionFactory(fmt.Errorf("down")))
	nodes, edges := smallFloor()
	buildTestGraph(t, store, nodes, edges)

	got, err := engine.Neighbors(context.Background(), "stairs")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 neighbors from fallback, got %d", len(got))
	}
}

func TestMemgraphEngine_Close(t *testing.T) {
	driver := &mockDriver{}
	engine := &MemgraphEngine{driver: driver, logger: testLogger()}

	if engine.Driver() != driver {
		t.Error("Driver should return the wrapped driver")
	}
	if err := engine.Close(); err != nil {
		t.Fatal(err)
	}
	if !driver.closed {
		t.Error("driver should be closed")
	}
}
