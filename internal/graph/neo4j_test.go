package graph_test

import (
	"context"
	"os"
	"testing"
	"time"

	"social-system/config"
	"social-system/internal/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 需要运行中的 Neo4j，设置 NEO4J_URI / NEO4J_USERNAME / NEO4J_PASSWORD
func newNeo4jGraph(t *testing.T) *graph.Neo4jGraph {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	uri := os.Getenv("NEO4J_URI")
	if uri == "" {
		t.Skip("NEO4J_URI not set")
	}

	ctx := context.Background()
	g, err := graph.NewNeo4jGraph(ctx, config.GraphConfig{
		URI:          uri,
		Username:     os.Getenv("NEO4J_USERNAME"),
		Password:     os.Getenv("NEO4J_PASSWORD"),
		QueryTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close(ctx) })
	return g
}

func TestNeo4jSuggestFriends(t *testing.T) {
	g := newNeo4jGraph(t)
	ctx := context.Background()

	// Rebuild 会清空测试库中的全部用户节点
	a, b, c, d := uint(1), uint(2), uint(3), uint(4)
	require.NoError(t, g.Rebuild(ctx, &graph.Snapshot{
		Users:       []graph.UserNode{{ID: a, Username: "A"}, {ID: b, Username: "B"}, {ID: c, Username: "C"}, {ID: d, Username: "D"}},
		Friendships: []graph.Edge{{From: a, To: b}, {From: b, To: c}, {From: c, To: d}},
	}))

	got, err := g.SuggestFriends(ctx, a, 10)
	require.NoError(t, err)
	assert.Equal(t, []graph.Suggestion{{UserID: c, MutualFriends: 1}}, got)

	// 待处理请求与拉黑排除推荐
	require.NoError(t, g.AddRequestEdge(ctx, c, a))
	got, err = g.SuggestFriends(ctx, a, 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, g.RemoveRequestEdge(ctx, c, a))
	require.NoError(t, g.AddBlockEdge(ctx, a, c))
	got, err = g.SuggestFriends(ctx, a, 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, g.RemoveBlockEdge(ctx, a, c))
	require.NoError(t, g.AddFriendEdge(ctx, a, c))
	friends, err := g.FriendIDs(ctx, c)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{a, b, d}, friends)

	require.NoError(t, g.RemoveFriendEdge(ctx, c, a))
	friends, err = g.FriendIDs(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []uint{b}, friends)
}
