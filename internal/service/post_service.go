package service

import (
	"context"
	"strings"

	"social-system/internal/model"
	"social-system/internal/repository"
	"social-system/pkg/apperr"
	"social-system/pkg/logger"

	"go.uber.org/zap"
)

// PostService 帖子与反应
type PostService struct {
	Deps
}

// NewPostService 创建帖子服务
func NewPostService(d Deps) *PostService {
	return &PostService{Deps: d}
}

// CreatePostInput 发帖参数，媒体由上传服务处理后以URL传入
type CreatePostInput struct {
	TextBody    string   `json:"text_body"`
	MediaURL    string   `json:"media_url"`
	Hashtags    []string `json:"hashtags"`
	CommunityID *uint    `json:"community_id"`
}

// UpdatePostInput 更新帖子参数，nil 字段保持不变
type UpdatePostInput struct {
	TextBody *string   `json:"text_body"`
	MediaURL *string   `json:"media_url"`
	Hashtags *[]string `json:"hashtags"`
}

// ReactionResult 切换反应后的帖子统计
type ReactionResult struct {
	PostID        uint  `json:"post_id"`
	LikesCount    int64 `json:"likes_count"`
	DislikesCount int64 `json:"dislikes_count"`
	HasLiked      bool  `json:"has_liked"`
	HasDisliked   bool  `json:"has_disliked"`
}

// CreatePost 发帖；社区帖子要求作者角色 >= member
func (s *PostService) CreatePost(ctx context.Context, authorID uint, in CreatePostInput) (*PostView, error) {
	if strings.TrimSpace(in.TextBody) == "" && in.MediaURL == "" {
		return nil, apperr.ErrInvalidArgument.Withf("post needs text or media")
	}

	post := &model.Post{
		AuthorID:    authorID,
		TextBody:    in.TextBody,
		MediaURL:    in.MediaURL,
		Hashtags:    in.Hashtags,
		CommunityID: in.CommunityID,
	}
	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Users.GetByID(ctx, authorID); err != nil {
			return err
		}
		if in.CommunityID != nil {
			if _, err := tx.Communities.GetByID(ctx, *in.CommunityID); err != nil {
				return err
			}
			role, err := tx.Communities.GetRole(ctx, *in.CommunityID, authorID)
			if err != nil {
				return err
			}
			if !role.AtLeast(model.RoleMember) {
				return apperr.ErrNotMember
			}
		}
		return tx.Posts.Create(ctx, post)
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("帖子已创建", zap.Uint("post_id", post.ID), zap.Uint("author", authorID))
	return s.view(ctx, post, authorID)
}

// UpdatePost 作者编辑帖子
func (s *PostService) UpdatePost(ctx context.Context, postID, actingUserID uint, in UpdatePostInput) (*PostView, error) {
	post, err := s.Store.Posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != actingUserID {
		return nil, apperr.ErrNotAuthor
	}

	var columns []string
	if in.TextBody != nil {
		post.TextBody = *in.TextBody
		columns = append(columns, "text_body")
	}
	if in.MediaURL != nil {
		post.MediaURL = *in.MediaURL
		columns = append(columns, "media_url")
	}
	if in.Hashtags != nil {
		post.Hashtags = *in.Hashtags
		columns = append(columns, "hashtags")
	}
	if strings.TrimSpace(post.TextBody) == "" && post.MediaURL == "" {
		return nil, apperr.ErrInvalidArgument.Withf("post needs text or media")
	}
	if len(columns) > 0 {
		if err := s.Store.Posts.SaveFields(ctx, post, columns...); err != nil {
			return nil, err
		}
	}
	return s.view(ctx, post, actingUserID)
}

// DeletePost 作者或社区管理员删除帖子
func (s *PostService) DeletePost(ctx context.Context, postID, actingUserID uint) error {
	return s.Store.Transaction(ctx, func(tx *repository.Store) error {
		post, err := tx.Posts.GetByID(ctx, postID)
		if err != nil {
			return err
		}
		if post.AuthorID != actingUserID {
			if post.CommunityID == nil {
				return apperr.ErrNotAuthor
			}
			role, err := tx.Communities.GetRole(ctx, *post.CommunityID, actingUserID)
			if err != nil {
				return err
			}
			if !role.AtLeast(model.RoleAdmin) {
				return apperr.ErrNotAuthor
			}
		}
		return tx.Posts.Delete(ctx, postID)
	})
}

// GetPost 单个帖子，校验可见性
func (s *PostService) GetPost(ctx context.Context, postID, viewerID uint) (*PostView, error) {
	post, err := s.Store.Posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.checkVisible(ctx, post, viewerID); err != nil {
		return nil, err
	}
	return s.view(ctx, post, viewerID)
}

// checkVisible 帖子可见性：
// 与作者存在拉黑关系时视为不存在；私密社区帖子仅成员可见；
// 私密账号的非社区帖子仅本人和好友可见
func (s *PostService) checkVisible(ctx context.Context, post *model.Post, viewerID uint) error {
	if post.AuthorID == viewerID {
		return nil
	}
	blocked, err := s.Store.Blocks.EitherBlocked(ctx, viewerID, post.AuthorID)
	if err != nil {
		return err
	}
	if blocked {
		return apperr.ErrPostNotFound.Withf("id=%d", post.ID)
	}

	if post.CommunityID != nil {
		c, err := s.Store.Communities.GetByID(ctx, *post.CommunityID)
		if err != nil {
			return err
		}
		if !c.IsPrivate {
			return nil
		}
		role, err := s.Store.Communities.GetRole(ctx, c.ID, viewerID)
		if err != nil {
			return err
		}
		if !role.AtLeast(model.RoleMember) {
			return apperr.ErrMembersOnly
		}
		return nil
	}

	author, err := s.Store.Users.GetByID(ctx, post.AuthorID)
	if err != nil {
		return apperr.ErrPostNotFound.Withf("id=%d", post.ID)
	}
	return s.checkAccountVisible(ctx, author, viewerID)
}

// checkAccountVisible 私密账号仅本人和好友可见
func (s *PostService) checkAccountVisible(ctx context.Context, author *model.User, viewerID uint) error {
	if !author.IsPrivate || author.ID == viewerID {
		return nil
	}
	record, err := s.Store.Requests.FindFriendRecord(ctx, viewerID, author.ID)
	if err != nil {
		return err
	}
	if record == nil || record.Status != model.RequestStatusAccepted {
		return apperr.ErrPrivateAccount
	}
	return nil
}

// ListUserPosts 某个用户的帖子，不含浏览者不可见的私密社区帖子
func (s *PostService) ListUserPosts(ctx context.Context, viewerID, authorID uint, page, limit int) (*PostPage, error) {
	p, err := newPageRequest(page, limit, s.Limits)
	if err != nil {
		return nil, err
	}

	author, err := s.Store.Users.GetByID(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if viewerID != authorID {
		blocked, err := s.Store.Blocks.EitherBlocked(ctx, viewerID, authorID)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, apperr.ErrUserNotFound.Withf("id=%d", authorID)
		}
		if err := s.checkAccountVisible(ctx, author, viewerID); err != nil {
			return nil, err
		}
	}

	communityIDs, err := s.Store.Communities.CommunityIDsForUser(ctx, viewerID, model.RoleMember)
	if err != nil {
		return nil, err
	}
	posts, total, err := s.Store.Posts.Find(ctx, repository.PostQuery{
		AuthorIDs:          []uint{authorID},
		MemberCommunityIDs: communityIDs,
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

// ToggleLike 切换赞：已赞则取消，否则设为赞（同时取消踩）
func (s *PostService) ToggleLike(ctx context.Context, postID, userID uint) (*ReactionResult, error) {
	return s.toggle(ctx, postID, userID, model.ReactionUp)
}

// ToggleDislike 切换踩：已踩则取消，否则设为踩（同时取消赞）
func (s *PostService) ToggleDislike(ctx context.Context, postID, userID uint) (*ReactionResult, error) {
	return s.toggle(ctx, postID, userID, model.ReactionDown)
}

func (s *PostService) toggle(ctx context.Context, postID, userID uint, kind model.ReactionKind) (*ReactionResult, error) {
	post, err := s.Store.Posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.checkVisible(ctx, post, userID); err != nil {
		return nil, err
	}

	var stats *model.ReactionStats
	err = s.Store.Transaction(ctx, func(tx *repository.Store) error {
		current, err := tx.Posts.GetReaction(ctx, postID, userID)
		if err != nil {
			return err
		}
		if current != nil && current.Kind == kind {
			err = tx.Posts.DeleteReaction(ctx, postID, userID)
		} else {
			err = tx.Posts.SetReaction(ctx, postID, userID, kind)
		}
		if err != nil {
			return err
		}

		all, err := tx.Posts.ReactionStats(ctx, []uint{postID}, userID)
		if err != nil {
			return err
		}
		stats = all[postID]
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ReactionResult{
		PostID:        postID,
		LikesCount:    stats.Likes,
		DislikesCount: stats.Dislikes,
		HasLiked:      stats.HasLiked,
		HasDisliked:   stats.HasDisliked,
	}, nil
}

func (s *PostService) view(ctx context.Context, post *model.Post, viewerID uint) (*PostView, error) {
	views, err := assemblePosts(ctx, s.Store, []model.Post{*post}, viewerID)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, apperr.ErrPostNotFound.Withf("id=%d", post.ID)
	}
	return &views[0], nil
}
