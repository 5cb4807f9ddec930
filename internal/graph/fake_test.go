package graph_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"social-system/internal/graph"
)

// recordingGraph 记录调用的内存图，failures 次数内返回错误
type recordingGraph struct {
	mu       sync.Mutex
	calls    []string
	failures int
	snapshot *graph.Snapshot
}

func (g *recordingGraph) record(call string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failures > 0 {
		g.failures--
		return errors.New("graph down")
	}
	g.calls = append(g.calls, call)
	return nil
}

func (g *recordingGraph) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

func (g *recordingGraph) Name() string                 { return "recording" }
func (g *recordingGraph) Close(context.Context) error { return nil }

func (g *recordingGraph) UpsertUser(_ context.Context, id uint, username string) error {
	return g.record(fmt.Sprintf("upsert %d %s", id, username))
}

func (g *recordingGraph) AddFriendEdge(_ context.Context, a, b uint) error {
	return g.record(fmt.Sprintf("friend+ %d %d", a, b))
}

func (g *recordingGraph) RemoveFriendEdge(_ context.Context, a, b uint) error {
	return g.record(fmt.Sprintf("friend- %d %d", a, b))
}

func (g *recordingGraph) AddRequestEdge(_ context.Context, a, b uint) error {
	return g.record(fmt.Sprintf("request+ %d %d", a, b))
}

func (g *recordingGraph) RemoveRequestEdge(_ context.Context, a, b uint) error {
	return g.record(fmt.Sprintf("request- %d %d", a, b))
}

func (g *recordingGraph) AddBlockEdge(_ context.Context, a, b uint) error {
	return g.record(fmt.Sprintf("block+ %d %d", a, b))
}

func (g *recordingGraph) RemoveBlockEdge(_ context.Context, a, b uint) error {
	return g.record(fmt.Sprintf("block- %d %d", a, b))
}

func (g *recordingGraph) SuggestFriends(context.Context, uint, int) ([]graph.Suggestion, error) {
	return nil, nil
}

func (g *recordingGraph) FriendIDs(context.Context, uint) ([]uint, error) {
	return nil, nil
}

func (g *recordingGraph) Rebuild(_ context.Context, snap *graph.Snapshot) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.snapshot = snap
	return nil
}
