package graph

import (
	"context"

	"social-system/internal/repository"
)

// RelationalGraph 在没有图存储时直接基于关系库回答图查询
// 关系库本身就是事实来源，因此所有写操作都是空操作
type RelationalGraph struct {
	store *repository.Store
}

// NewRelationalGraph 创建关系库回退实现
func NewRelationalGraph(store *repository.Store) *RelationalGraph {
	return &RelationalGraph{store: store}
}

func (g *RelationalGraph) Name() string { return "relational" }

func (g *RelationalGraph) Close(context.Context) error { return nil }

func (g *RelationalGraph) UpsertUser(context.Context, uint, string) error { return nil }

func (g *RelationalGraph) AddFriendEdge(context.Context, uint, uint) error { return nil }

func (g *RelationalGraph) RemoveFriendEdge(context.Context, uint, uint) error { return nil }

func (g *RelationalGraph) AddRequestEdge(context.Context, uint, uint) error { return nil }

func (g *RelationalGraph) RemoveRequestEdge(context.Context, uint, uint) error { return nil }

func (g *RelationalGraph) AddBlockEdge(context.Context, uint, uint) error { return nil }

func (g *RelationalGraph) RemoveBlockEdge(context.Context, uint, uint) error { return nil }

func (g *RelationalGraph) Rebuild(context.Context, *Snapshot) error { return nil }

// FriendIDs 一跳好友
func (g *RelationalGraph) FriendIDs(ctx context.Context, userID uint) ([]uint, error) {
	return g.store.Requests.FriendIDs(ctx, userID)
}

// SuggestFriends 与 Neo4j 实现相同的语义与排序
func (g *RelationalGraph) SuggestFriends(ctx context.Context, userID uint, limit int) ([]Suggestion, error) {
	friendIDs, err := g.store.Requests.FriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(friendIDs) == 0 {
		return nil, nil
	}

	excluded := map[uint]bool{userID: true}
	friends := make(map[uint]bool, len(friendIDs))
	for _, id := range friendIDs {
		friends[id] = true
		excluded[id] = true
	}

	// 任一方向的待处理好友请求
	pending, err := g.store.Requests.PendingFriendPeerIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, id := range pending {
		excluded[id] = true
	}

	// 任一方向的拉黑
	blocked, err := g.store.Blocks.RelatedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, id := range blocked {
		excluded[id] = true
	}

	records, err := g.store.Requests.FriendshipsOf(ctx, friendIDs)
	if err != nil {
		return nil, err
	}

	// candidate -> 共同好友集合
	mutual := make(map[uint]map[uint]bool)
	for i := range records {
		a := records[i].RequesterID
		b := records[i].OtherParty(a)
		for _, pair := range [][2]uint{{a, b}, {b, a}} {
			via, candidate := pair[0], pair[1]
			if !friends[via] || excluded[candidate] {
				continue
			}
			if mutual[candidate] == nil {
				mutual[candidate] = make(map[uint]bool)
			}
			mutual[candidate][via] = true
		}
	}

	out := make([]Suggestion, 0, len(mutual))
	for candidate, via := range mutual {
		out = append(out, Suggestion{UserID: candidate, MutualFriends: len(via)})
	}
	sortSuggestions(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
