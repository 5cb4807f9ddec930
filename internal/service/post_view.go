package service

import (
	"context"
	"time"

	"social-system/internal/model"
	"social-system/internal/repository"
	"social-system/pkg/logger"
	"social-system/pkg/redis"

	"go.uber.org/zap"
)

// PostView 带作者、反应统计与社区摘要的帖子
type PostView struct {
	ID            uint                    `json:"id"`
	Author        model.UserSummary       `json:"author"`
	TextBody      string                  `json:"text_body"`
	MediaURL      string                  `json:"media_url"`
	Hashtags      []string                `json:"hashtags"`
	CommunityID   *uint                   `json:"community_id,omitempty"`
	Community     *model.CommunitySummary `json:"community,omitempty"`
	LikesCount    int64                   `json:"likes_count"`
	DislikesCount int64                   `json:"dislikes_count"`
	HasLiked      bool                    `json:"has_liked"`
	HasDisliked   bool                    `json:"has_disliked"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

// PostPage 帖子分页
type PostPage struct {
	Posts      []PostView `json:"posts"`
	Pagination Pagination `json:"pagination"`
}

// assemblePosts 批量标注帖子；作者已不存在的帖子被丢弃
func assemblePosts(ctx context.Context, store *repository.Store, posts []model.Post, viewerID uint) ([]PostView, error) {
	views := make([]PostView, 0, len(posts))
	if len(posts) == 0 {
		return views, nil
	}

	authorIDs := make([]uint, 0, len(posts))
	postIDs := make([]uint, 0, len(posts))
	var communityIDs []uint
	for i := range posts {
		authorIDs = append(authorIDs, posts[i].AuthorID)
		postIDs = append(postIDs, posts[i].ID)
		if posts[i].CommunityID != nil {
			communityIDs = append(communityIDs, *posts[i].CommunityID)
		}
	}

	authors, err := store.Users.FindByIDs(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	stats, err := store.Posts.ReactionStats(ctx, postIDs, viewerID)
	if err != nil {
		return nil, err
	}
	communities := communitySummaries(ctx, store, communityIDs)

	for i := range posts {
		p := &posts[i]
		author, ok := authors[p.AuthorID]
		if !ok {
			continue
		}
		hashtags := p.Hashtags
		if hashtags == nil {
			hashtags = []string{}
		}
		v := PostView{
			ID:          p.ID,
			Author:      author.Summary(),
			TextBody:    p.TextBody,
			MediaURL:    p.MediaURL,
			Hashtags:    hashtags,
			CommunityID: p.CommunityID,
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
		}
		if st := stats[p.ID]; st != nil {
			v.LikesCount = st.Likes
			v.DislikesCount = st.Dislikes
			v.HasLiked = st.HasLiked
			v.HasDisliked = st.HasDisliked
		}
		if p.CommunityID != nil {
			if c, ok := communities[*p.CommunityID]; ok {
				v.Community = &c
			}
		}
		views = append(views, v)
	}
	return views, nil
}

// communitySummaries 解析社区摘要：先查 Redis 缓存，未命中批量查库，
// 批量查询失败时逐个回退；任何失败都只影响摘要，不影响帖子本身
func communitySummaries(ctx context.Context, store *repository.Store, ids []uint) map[uint]model.CommunitySummary {
	result := make(map[uint]model.CommunitySummary, len(ids))
	if len(ids) == 0 {
		return result
	}
	ids = uniqueIDs(ids)

	missing := ids
	if redis.Enabled() {
		cached, miss, err := redis.GetCachedCommunitySummaries(ids)
		if err != nil {
			logger.Warn("读取社区缓存失败", zap.Error(err))
		} else {
			result = cached
			missing = miss
		}
	}
	if len(missing) == 0 {
		return result
	}

	var fetched []model.CommunitySummary
	list, err := store.Communities.FindByIDs(ctx, missing)
	if err != nil {
		logger.Warn("批量查询社区失败，逐个回退", zap.Error(err))
		for _, id := range missing {
			c, err := store.Communities.GetByID(ctx, id)
			if err != nil {
				continue
			}
			fetched = append(fetched, c.Summary())
		}
	} else {
		for i := range list {
			fetched = append(fetched, list[i].Summary())
		}
	}

	for _, s := range fetched {
		result[s.ID] = s
	}
	if redis.Enabled() && len(fetched) > 0 {
		if err := redis.CacheCommunitySummaries(fetched); err != nil {
			logger.Warn("写入社区缓存失败", zap.Error(err))
		}
	}
	return result
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
