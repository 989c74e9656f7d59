package graph

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/matijazezelj/wayfind/pkg/models"
)

func newTestSyncedStore(t *testing.T, sess *mockSession) (*SyncedStore, *SQLiteStore) {
	t.Helper()
	store := newTestStore(t)
	var sf sessionFactory
	if sess != nil {
		sf = mockSessionFactory(sess)
	}
	ss := &SyncedStore{
		Store:      store,
		newSession: sf,
		logger:     testLogger(),
	}
	return ss, store
}

func TestSyncedStore_UpsertNode_NilSession(t *testing.T) {
	ss, store := newTestSyncedStore(t, nil)
	ctx := context.Background()

	if err := ss.UpsertNode(ctx, makeNode("a", models.NodeExit, 0, 0)); err != nil {
		t.Fatal(err)
	}

	got, _ := store.GetNode(ctx, "a")
	if got == nil {
		t.Fatal("node should exist in SQLite")
	}
}

func TestSyncedStore_UpsertNode_WithMock(t *testing.T) {
	sess := &mockSession{}
	ss, _ := newTestSyncedStore(t, sess)

	if err := ss.UpsertNode(context.Background(), makeNode("a", models.NodeExit, 0, 0)); err != nil {
		t.Fatal(err)
	}

	if len(sess.calls) != 1 {
		t.Fatalf("expected 1 Run call, got %d", len(sess.calls))
	}
	if !strings.Contains(sess.calls[0].cypher, "MERGE (n:Place") {
		t.Errorf("cypher should merge a Place, got: %s", sess.calls[0].cypher)
	}
	if sess.calls[0].params["type"] != "exit" {
		t.Errorf("params = %v", sess.calls[0].params)
	}
}

func TestSyncedStore_UpsertNode_SyncError(t *testing.T) {
	sess := &mockSession{
		runFunc: func(_ string, _ map[string]any) (resultIterator, error) {
			return nil, fmt.Errorf("memgraph error")
		},
	}
	ss, store := newTestSyncedStore(t, sess)
	ctx := context.Background()

	// mirror failures are logged, not returned
	if err := ss.UpsertNode(ctx, makeNode("a", models.NodeExit, 0, 0)); err != nil {
		t.Fatalf("UpsertNode should succeed even if sync fails: %v", err)
	}

	got, _ := store.GetNode(ctx, "a")
	if got == nil {
		t.Fatal("node should exist in SQLite despite sync error")
	}
}

func TestSyncedStore_UpsertNode_StoreError(t *testing.T) {
	sess := &mockSession{}
	ss, store := newTestSyncedStore(t, sess)
	_ = store.Close()

	if err := ss.UpsertNode(context.Background(), makeNode("a", models.NodeExit, 0, 0)); err == nil {
		t.Fatal("expected error from closed store")
	}
	if len(sess.calls) != 0 {
		t.Error("failed writes should not be mirrored")
	}
}

func TestSyncedStore_UpsertEdge_WithMock(t *testing.T) {
	sess := &mockSession{}
	ss, store := newTestSyncedStore(t, sess)
	ctx := context.Background()

	_ = store.UpsertNode(ctx, makeNode("a", models.NodeIntersection, 0, 0))
	_ = store.UpsertNode(ctx, makeNode("b", models.NodeExit, 5, 0))

	if err := ss.UpsertEdge(ctx, makeEdge("b", "a", models.EdgeDoor)); err != nil {
		t.Fatal(err)
	}

	if len(sess.calls) != 1 {
		t.Fatalf("expected 1 Run call, got %d", len(sess.calls))
	}
	if !strings.Contains(sess.calls[0].cypher, "CONNECTS") {
		t.Errorf("cypher should merge a connection, got: %s", sess.calls[0].cypher)
	}
	if sess.calls[0].params["key"] != "a~b" {
		t.Errorf("key = %v", sess.calls[0].params["key"])
	}

	edges, _ := store.ListEdges(ctx, EdgeFilter{})
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(edges))
	}
}

func TestSyncedStore_UpsertEdge_SyncError(t *testing.T) {
	sess := &mockSession{
		runFunc: func(_ string, _ map[string]any) (resultIterator, error) {
			return nil, fmt.Errorf("memgraph error")
		},
	}
	ss, store := newTestSyncedStore(t, sess)
	ctx := context.Background()

	_ = store.UpsertNode(ctx, makeNode("a", models.NodeIntersection, 0, 0))
	_ = store.UpsertNode(ctx, makeNode("b", models.NodeExit, 5, 0))

	if err := ss.UpsertEdge(ctx, makeEdge("a", "b", models.EdgeDoor)); err != nil {
		t.Fatalf("UpsertEdge should succeed even if sync fails: %v", err)
	}
}

func TestSyncedStore_ReplaceBuilding_Resyncs(t *testing.T) {
	sess := &mockSession{}
	ss, store := newTestSyncedStore(t, sess)
	ctx := context.Background()

	nodes, edges := smallFloor()
	if err := ss.ReplaceBuilding(ctx, nodes, edges); err != nil {
		t.Fatal(err)
	}

	// full resync: clear + 2 indexes + node batch + edge batch
	if len(sess.calls) != 5 {
		t.Fatalf("expected 5 Run calls, got %d", len(sess.calls))
	}
	if !strings.Contains(sess.calls[0].cypher, "DETACH DELETE") {
		t.Errorf("first call should clear the mirror, got: %s", sess.calls[0].cypher)
	}

	n, _ := store.NodeCount(ctx)
	if n != 4 {
		t.Errorf("expected 4 stored nodes, got %d", n)
	}
}

func TestSyncedStore_ReplaceBuilding_SyncError(t *testing.T) {
	sess := &mockSession{
		runFunc: func(_ string, _ map[string]any) (resultIterator, error) {
			return nil, fmt.Errorf("memgraph down")
		},
	}
	ss, store := newTestSyncedStore(t, sess)
	ctx := context.Background()

	nodes, edges := smallFloor()
	if err := ss.ReplaceBuilding(ctx, nodes, edges); err != nil {
		t.Fatalf("ReplaceBuilding should succeed even if sync fails: %v", err)
	}
	n, _ := store.NodeCount(ctx)
	if n != 4 {
		t.Errorf("expected 4 stored nodes, got %d", n)
	}
}

func TestSyncedStore_Close_NilDriver(t *testing.T) {
	ss, _ := newTestSyncedStore(t, nil)
	if err := ss.Close(); err != nil {
		t.Fatalf("Close with nil driver: %v", err)
	}
}

func TestSyncedStore_Close_WithDriver(t *testing.T) {
	driver := &mockDriver{}
	ss := NewSyncedStore(newTestStore(t), driver, testLogger())

	_ = ss.Close()
	if !driver.closed {
		t.Error("driver should be closed")
	}
}

func TestSyncedStore_Close_DriverError(t *testing.T) {
	driver := &mockDriver{closeErr: fmt.Errorf("close error")}
	ss := NewSyncedStore(newTestStore(t), driver, testLogger())

	if err := ss.Close(); err == nil {
		t.Fatal("expected error from driver close")
	}
}

func TestSyncedStore_Underlying(t *testing.T) {
	ss, store := newTestSyncedStore(t, nil)
	if ss.Underlying() != Store(store) {
		t.Error("Underlying should return wrapped store")
	}
}

func TestSyncedStore_HasMemgraph(t *testing.T) {
	ss := NewSyncedStore(newTestStore(t), nil, testLogger())
	if ss.HasMemgraph() {
		t.Error("HasMemgraph should be false with nil driver")
	}

	ss2 := NewSyncedStore(newTestStore(t), &mockDriver{}, testLogger())
	if !ss2.HasMemgraph() {
		t.Error("HasMemgraph should be true with non-nil driver")
	}
}
