package service

import (
	"context"
	"time"

	"social-system/internal/graph"
	"social-system/pkg/logger"

	"go.uber.org/zap"
)

// SuggestionView 好友推荐
type SuggestionView struct {
	ID            uint   `json:"id"`
	Username      string `json:"username"`
	PhotoURL      string `json:"photo_url"`
	Bio           string `json:"bio"`
	MutualFriends int    `json:"mutual_friends"`
}

// SuggestionService 基于关系图的二度好友推荐
// 图查询失败时返回空结果，不影响调用方
type SuggestionService struct {
	Deps
	graph   graph.Graph
	timeout time.Duration
}

// NewSuggestionService 创建推荐服务
func NewSuggestionService(d Deps, g graph.Graph, timeout time.Duration) *SuggestionService {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &SuggestionService{Deps: d, graph: g, timeout: timeout}
}

// SuggestFriends 按共同好友数排序的推荐列表
// 图可能滞后于关系库，结果再按关系库中的好友、待处理请求与拉黑关系过滤，已删除的用户直接跳过
func (s *SuggestionService) SuggestFriends(ctx context.Context, userID uint, limit int) ([]SuggestionView, error) {
	if limit < 1 {
		limit = s.Limits.SuggestionLimit
	}
	if limit < 1 {
		limit = 10
	}
	if s.Limits.MaxLimit > 0 && limit > s.Limits.MaxLimit {
		limit = s.Limits.MaxLimit
	}
	views := []SuggestionView{}
	if s.graph == nil {
		return views, nil
	}

	gctx, cancel := context.WithTimeout(ctx, s.timeout)
	suggestions, err := s.graph.SuggestFriends(gctx, userID, limit)
	cancel()
	if err != nil {
		logger.Warn("好友推荐查询失败，返回空结果", zap.String("graph", s.graph.Name()), zap.Uint("user", userID), zap.Error(err))
		return views, nil
	}
	if len(suggestions) == 0 {
		return views, nil
	}

	excluded := map[uint]bool{userID: true}
	blocked, err := s.Store.Blocks.RelatedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	friends, err := s.Store.Requests.FriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	pending, err := s.Store.Requests.PendingFriendPeerIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, list := range [][]uint{blocked, friends, pending} {
		for _, id := range list {
			excluded[id] = true
		}
	}

	ids := make([]uint, 0, len(suggestions))
	for _, sg := range suggestions {
		ids = append(ids, sg.UserID)
	}
	users, err := s.Store.Users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, sg := range suggestions {
		if excluded[sg.UserID] {
			continue
		}
		u, ok := users[sg.UserID]
		if !ok {
			continue
		}
		views = append(views, SuggestionView{
			ID:            u.ID,
			Username:      u.Username,
			PhotoURL:      u.PhotoURL,
			Bio:           u.Bio,
			MutualFriends: sg.MutualFriends,
		})
	}
	return views, nil
}
