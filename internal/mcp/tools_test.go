package mcp

import (
	"context"
	"log/slog"
	"os"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matijazezelj/wayfind/internal/building"
	"github.com/matijazezelj/wayfind/internal/graph"
	"github.com/matijazezelj/wayfind/internal/wayfinder"
)

func newTestServer(t *testing.T) (*Server, *wayfinder.Service) {
	t.Helper()
	store, err := graph.NewSQLiteStore(t.TempDir() + "/test.db")
	require.NoError(t, err)
	require.NoError(t, store.Init(context.Background()))
	t.Cleanup(func() { _ = store.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := wayfinder.New(store, graph.NewLocalEngine(store), nil, wayfinder.Config{}, logger)
	_, err = svc.Import(context.Background(), building.Default(), building.DefaultSource)
	require.NoError(t, err)

	return NewServer(svc, store, logger, "test"), svc
}

func TestFindRoute(t *testing.T) {
	server, _ := newTestServer(t)

	_, out, err := server.handleFindRoute(context.Background(), nil, FindRouteInput{From: "NODE_NC_W", To: "NODE_SC_SE"})
	require.NoError(t, err)
	assert.True(t, out.Found)
	assert.Equal(t, 54.0, out.Distance)
	assert.Equal(t, "NODE_NC_W", out.Path[0])
	assert.Equal(t, "NODE_SC_SE", out.Path[len(out.Path)-1])
	assert.NotEmpty(t, out.Directions)
	assert.Len(t, out.Directions, len(out.Path)-1)
}

func TestFindRoute_Blocked(t *testing.T) {
	server, _ := newTestServer(t)

	_, out, err := server.handleFindRoute(context.Background(), nil, FindRouteInput{
		From:    "NODE_NC_W",
		To:      "NODE_SC_SE",
		Blocked: []string{"NODE_EW_MID~NODE_NC_E"},
	})
	require.NoError(t, err)
	assert.True(t, out.Found)
	assert.Greater(t, out.Distance, 54.0)
	assert.NotContains(t, out.Path, "NODE_EW_MID")
}

func TestFindRoute_NotFoundIsAnAnswer(t *testing.T) {
	server, _ := newTestServer(t)

	_, out, err := server.handleFindRoute(context.Background(), nil, FindRouteInput{
		From:       "NODE_NC_W",
		To:         "NODE_EXIT_C",
		Accessible: true,
	})
	require.NoError(t, err)
	assert.False(t, out.Found)
	assert.NotEmpty(t, out.Reason)
	assert.Empty(t, out.Path)
}

func TestFindRoute_Errors(t *testing.T) {
	server, _ := newTestServer(t)
	ctx := context.Background()

	_, _, err := server.handleFindRoute(ctx, nil, FindRouteInput{From: "NODE_NC_W"})
	assert.Error(t, err)

	_, _, err = server.handleFindRoute(ctx, nil, FindRouteInput{From: "NODE_NC_W", To: "NOWHERE"})
	assert.Error(t, err)

	_, _, err = server.handleFindRoute(ctx, nil, FindRouteInput{From: "NODE_NC_W", To: "NODE_NC_E", Blocked: []string{"NODE_NC_1"}})
	assert.Error(t, err)
}

func TestFindNearestExit(t *testing.T) {
	server, _ := newTestServer(t)

	_, out, err := server.handleFindNearestExit(context.Background(), nil, FindNearestExitInput{From: "NODE_NC_W"})
	require.NoError(t, err)
	assert.True(t, out.Found)
	assert.False(t, out.IsRefuge)
	assert.Equal(t, out.TargetID, out.Path[len(out.Path)-1])
}

func TestFindNearestExit_Accessible(t *testing.T) {
	server, _ := newTestServer(t)

	_, out, err := server.handleFindNearestExit(context.Background(), nil, FindNearestExitInput{From: "NODE_NC_W", Accessible: true})
	require.NoError(t, err)
	assert.True(t, out.Found)
	assert.True(t, out.IsRefuge)
}

func TestFindNearestExit_NoSafeTarget(t *testing.T) {
	server, _ := newTestServer(t)

	_, out, err := server.handleFindNearestExit(context.Background(), nil, FindNearestExitInput{
		From:    "DOOR_101",
		Blocked: []string{"NODE_NC_1~DOOR_101"},
	})
	require.NoError(t, err)
	assert.False(t, out.Found)
	assert.NotEmpty(t, out.Reason)

	_, _, err = server.handleFindNearestExit(context.Background(), nil, FindNearestExitInput{})
	assert.Error(t, err)
}

func TestListPlaces(t *testing.T) {
	server, _ := newTestServer(t)
	ctx := context.Background()

	_, out, err := server.handleListPlaces(ctx, nil, ListPlacesInput{})
	require.NoError(t, err)
	assert.Len(t, out.Places, 25)

	_, out, err = server.handleListPlaces(ctx, nil, ListPlacesInput{Type: "exit"})
	require.NoError(t, err)
	require.Len(t, out.Places, 2)
	assert.Equal(t, "exit", out.Places[0].Type)
	assert.NotEmpty(t, out.Places[0].Label)

	accessible := true
	_, out, err = server.handleListPlaces(ctx, nil, ListPlacesInput{Type: "refuge", Accessible: &accessible})
	require.NoError(t, err)
	assert.Len(t, out.Places, 2)

	_, out, err = server.handleListPlaces(ctx, nil, ListPlacesInput{Type: "exit", Accessible: &accessible})
	require.NoError(t, err)
	require.Len(t, out.Places, 2)
	assert.True(t, out.Places[0].Accessible)

	_, _, err = server.handleListPlaces(ctx, nil, ListPlacesInput{Type: "balcony"})
	assert.Error(t, err)
}

func TestListHazards(t *testing.T) {
	server, svc := newTestServer(t)
	ctx := context.Background()

	_, out, err := server.handleListHazards(ctx, nil, ListHazardsInput{})
	require.NoError(t, err)
	assert.Empty(t, out.Hazards)
	assert.NotNil(t, out.Hazards)

	_, err = svc.DeclareHazard(ctx, wayfinder.HazardRequest{From: "NODE_NC_1", To: "NODE_NC_2", Reason: "smoke"})
	require.NoError(t, err)

	_, out, err = server.handleListHazards(ctx, nil, ListHazardsInput{})
	require.NoError(t, err)
	require.Len(t, out.Hazards, 1)
	assert.Equal(t, "smoke", out.Hazards[0].Reason)
	assert.NotEmpty(t, out.Hazards[0].CreatedAt)
	assert.Empty(t, out.Hazards[0].ExpiresAt)

	// hazards apply to the find_route tool
	_, route, err := server.handleFindRoute(ctx, nil, FindRouteInput{From: "NODE_NC_W", To: "NODE_NC_3"})
	require.NoError(t, err)
	assert.NotContains(t, route.Path, "NODE_NC_1")
}

func TestToolsOverSession(t *testing.T) {
	server, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverTransport, clientTransport := sdk.NewInMemoryTransports()
	serverSession, err := server.mcp.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer serverSession.Close() //nolint:errcheck // test cleanup

	client := sdk.NewClient(&sdk.Implementation{Name: "test-client", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer session.Close() //nolint:errcheck // test cleanup

	tools, err := session.ListTools(ctx, &sdk.ListToolsParams{})
	require.NoError(t, err)

	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"find_route", "find_nearest_exit", "list_places", "list_hazards"}, names)

	res, err := session.CallTool(ctx, &sdk.CallToolParams{
		Name:      "find_route",
		Arguments: map[string]any{"from": "NODE_NC_W", "to": "NODE_SC_SE"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
}
