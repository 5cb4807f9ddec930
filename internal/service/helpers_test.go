package service_test

import (
	"context"
	"sync"
	"testing"

	"social-system/config"
	"social-system/internal/graph"
	"social-system/internal/model"
	"social-system/internal/notify"
	"social-system/internal/repository"
	"social-system/internal/service"
	"social-system/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// recordingSink 记录发出的通知事件
type recordingSink struct {
	mu     sync.Mutex
	events []notify.Event
}

func (s *recordingSink) Emit(_ context.Context, e notify.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) ofType(typ string) []notify.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []notify.Event
	for _, e := range s.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

type env struct {
	orm   *gorm.DB
	store *repository.Store
	sink  *recordingSink
	deps  service.Deps
	graph graph.Graph
}

func newEnv(t *testing.T) *env {
	t.Helper()
	orm := testutil.NewDB(t)
	store := repository.NewStore(orm)
	g := graph.NewRelationalGraph(store)
	sink := &recordingSink{}
	return &env{
		orm:   orm,
		store: store,
		sink:  sink,
		graph: g,
		deps: service.Deps{
			Store:     store,
			Projector: graph.NewProjector(g, config.GraphConfig{}),
			Sink:      sink,
			Limits:    config.FeedConfig{DefaultLimit: 10, MaxLimit: 50, SuggestionLimit: 10},
		},
	}
}

func (e *env) users(t *testing.T, names ...string) map[string]uint {
	t.Helper()
	ids := make(map[string]uint, len(names))
	for _, n := range names {
		ids[n] = testutil.CreateUser(t, e.orm, n).ID
	}
	return ids
}

func (e *env) befriend(t *testing.T, a, b uint) {
	t.Helper()
	ctx := context.Background()
	fs := service.NewFriendshipService(e.deps)
	req, err := fs.SendFriendRequest(ctx, a, b)
	require.NoError(t, err)
	_, err = fs.AcceptFriendRequest(ctx, req.ID, b)
	require.NoError(t, err)
}

func (e *env) role(t *testing.T, communityID, userID uint) model.Role {
	t.Helper()
	role, err := e.store.Communities.GetRole(context.Background(), communityID, userID)
	require.NoError(t, err)
	return role
}
