package handler

import (
	"context"

	"social-system/internal/service"
	"social-system/pkg/response"

	"github.com/gin-gonic/gin"
)

// PostHandler 帖子、点赞与动态流
type PostHandler struct {
	posts        *service.PostService
	feed         *service.FeedService
	defaultLimit int
}

func NewPostHandler(posts *service.PostService, feed *service.FeedService, defaultLimit int) *PostHandler {
	return &PostHandler{posts: posts, feed: feed, defaultLimit: defaultLimit}
}

// Feed 首页动态：自己、好友和已加入社区的帖子
func (h *PostHandler) Feed(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	page, limit := pageParams(c, h.defaultLimit)
	result, err := h.feed.GetFeed(c.Request.Context(), uid, page, limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, result)
}

// Create 发帖
func (h *PostHandler) Create(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	var in service.CreatePostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	post, err := h.posts.CreatePost(c.Request.Context(), uid, in)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "发布成功", post)
}

// Get 帖子详情
func (h *PostHandler) Get(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "post_id")
	if !ok {
		return
	}
	post, err := h.posts.GetPost(c.Request.Context(), id, uid)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, post)
}

// Update 编辑帖子（仅作者）
func (h *PostHandler) Update(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "post_id")
	if !ok {
		return
	}
	var in service.UpdatePostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	post, err := h.posts.UpdatePost(c.Request.Context(), id, uid, in)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "帖子已更新", post)
}

// Delete 删除帖子（作者或社区管理员）
func (h *PostHandler) Delete(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "post_id")
	if !ok {
		return
	}
	if err := h.posts.DeletePost(c.Request.Context(), id, uid); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "帖子已删除", nil)
}

// Like 点赞/取消点赞
func (h *PostHandler) Like(c *gin.Context) {
	h.react(c, h.posts.ToggleLike)
}

// Dislike 点踩/取消点踩
func (h *PostHandler) Dislike(c *gin.Context) {
	h.react(c, h.posts.ToggleDislike)
}

func (h *PostHandler) react(c *gin.Context, toggle func(ctx context.Context, postID, userID uint) (*service.ReactionResult, error)) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "post_id")
	if !ok {
		return
	}
	result, err := toggle(c.Request.Context(), id, uid)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, result)
}

// UserPosts 指定用户的帖子
func (h *PostHandler) UserPosts(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	author, ok := paramID(c, "user_id")
	if !ok {
		return
	}
	page, limit := pageParams(c, h.defaultLimit)
	result, err := h.posts.ListUserPosts(c.Request.Context(), uid, author, page, limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, result)
}
