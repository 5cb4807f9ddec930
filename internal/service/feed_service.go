package service

import (
	"context"

	"social-system/internal/model"
	"social-system/internal/repository"
	"social-system/pkg/apperr"

	"golang.org/x/sync/errgroup"
)

// FeedService 动态流：自己、好友与所在社区的帖子，按时间倒序分页
type FeedService struct {
	Deps
}

// NewFeedService 创建动态流服务
func NewFeedService(d Deps) *FeedService {
	return &FeedService{Deps: d}
}

// audience 浏览者的可见范围
type audience struct {
	friendIDs    []uint
	communityIDs []uint
	blockedIDs   []uint
}

// resolveAudience 并发解析好友、社区（角色 >= member）与拉黑三个集合
func resolveAudience(ctx context.Context, store *repository.Store, viewerID uint) (*audience, error) {
	a := &audience{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ids, err := store.Requests.FriendIDs(gctx, viewerID)
		a.friendIDs = ids
		return err
	})
	g.Go(func() error {
		ids, err := store.Communities.CommunityIDsForUser(gctx, viewerID, model.RoleMember)
		a.communityIDs = ids
		return err
	})
	g.Go(func() error {
		ids, err := store.Blocks.RelatedIDs(gctx, viewerID)
		a.blockedIDs = ids
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return a, nil
}

// GetFeed 浏览者的动态流
// 自己的帖子总是包含在内；分页总数为过滤孤儿作者之前的数量
func (s *FeedService) GetFeed(ctx context.Context, viewerID uint, page, limit int) (*PostPage, error) {
	p, err := newPageRequest(page, limit, s.Limits)
	if err != nil {
		return nil, err
	}

	a, err := resolveAudience(ctx, s.Store, viewerID)
	if err != nil {
		return nil, err
	}

	authors := append([]uint{viewerID}, a.friendIDs...)
	posts, total, err := s.Store.Posts.Find(ctx, repository.PostQuery{
		AuthorIDs:          authors,
		MemberCommunityIDs: a.communityIDs,
		IncludeCommunities: true,
		ExcludeAuthorIDs:   a.blockedIDs,
		Offset:             p.offset,
		Limit:              p.limit,
	})
	if err != nil {
		return nil, err
	}

	views, err := assemblePosts(ctx, s.Store, posts, viewerID)
	if err != nil {
		return nil, err
	}
	return &PostPage{Posts: views, Pagination: p.result(total, len(views))}, nil
}

// GetCommunityPosts 社区帖子，私密社区仅成员可见
func (s *FeedService) GetCommunityPosts(ctx context.Context, communityID, viewerID uint, page, limit int) (*PostPage, error) {
	p, err := newPageRequest(page, limit, s.Limits)
	if err != nil {
		return nil, err
	}

	c, err := s.Store.Communities.GetByID(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if c.IsPrivate {
		role, err := s.Store.Communities.GetRole(ctx, communityID, viewerID)
		if err != nil {
			return nil, err
		}
		if !role.AtLeast(model.RoleMember) {
			return nil, apperr.ErrMembersOnly
		}
	}

	blocked, err := s.Store.Blocks.RelatedIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	posts, total, err := s.Store.Posts.FindByCommunity(ctx, communityID, blocked, p.offset, p.limit)
	if err != nil {
		return nil, err
	}

	views, err := assemblePosts(ctx, s.Store, posts, viewerID)
	if err != nil {
		return nil, err
	}
	return &PostPage{Posts: views, Pagination: p.result(total, len(views))}, nil
}
