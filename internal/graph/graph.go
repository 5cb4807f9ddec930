// Package graph 维护好友/请求/拉黑关系图，用于好友推荐等多跳查询。
// 图只是关系库的派生索引：所有写入先落关系库，再异步投影到图中。
package graph

import (
	"context"
	"errors"
)

// 边类型
const (
	EdgeFriendsWith = "FRIENDS_WITH"
	EdgeRequested   = "REQUESTED"
	EdgeBlocked     = "BLOCKED"
)

// ErrUnavailable 图存储不可用
var ErrUnavailable = errors.New("graph store unavailable")

// Suggestion 好友推荐结果
type Suggestion struct {
	UserID        uint
	MutualFriends int
}

// UserNode 用户节点
type UserNode struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// Edge 有向边 From -> To；好友边在快照中只记录一次
type Edge struct {
	From uint
	To   uint
}

// Snapshot 从关系库导出的完整关系状态，用于重建
type Snapshot struct {
	Users       []UserNode
	Friendships []Edge
	Requests    []Edge
	Blocks      []Edge
}

// Graph 关系图操作
//
// SuggestFriends 返回与 userID 恰好两跳好友距离的用户，排除本人、直接好友、
// 任一方向存在请求或拉黑关系的用户；按共同好友数降序、用户ID升序排列。
type Graph interface {
	UpsertUser(ctx context.Context, id uint, username string) error

	AddFriendEdge(ctx context.Context, a, b uint) error
	RemoveFriendEdge(ctx context.Context, a, b uint) error

	AddRequestEdge(ctx context.Context, from, to uint) error
	RemoveRequestEdge(ctx context.Context, from, to uint) error

	AddBlockEdge(ctx context.Context, from, to uint) error
	RemoveBlockEdge(ctx context.Context, from, to uint) error

	SuggestFriends(ctx context.Context, userID uint, limit int) ([]Suggestion, error)
	FriendIDs(ctx context.Context, userID uint) ([]uint, error)

	Rebuild(ctx context.Context, snap *Snapshot) error
	Name() string
	Close(ctx context.Context) error
}
