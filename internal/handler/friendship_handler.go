package handler

import (
	"strconv"

	"social-system/internal/service"
	"social-system/pkg/response"

	"github.com/gin-gonic/gin"
)

// FriendshipHandler 好友、好友请求与好友推荐
type FriendshipHandler struct {
	service      *service.FriendshipService
	suggestions  *service.SuggestionService
	defaultLimit int
}

func NewFriendshipHandler(s *service.FriendshipService, suggestions *service.SuggestionService, defaultLimit int) *FriendshipHandler {
	return &FriendshipHandler{service: s, suggestions: suggestions, defaultLimit: defaultLimit}
}

// SendRequest 发送好友请求
func (h *FriendshipHandler) SendRequest(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	target, ok := paramID(c, "user_id")
	if !ok {
		return
	}
	req, err := h.service.SendFriendRequest(c.Request.Context(), uid, target)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "好友请求已发送", gin.H{"request_id": req.ID, "status": req.Status})
}

// Accept 接受好友请求
func (h *FriendshipHandler) Accept(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "request_id")
	if !ok {
		return
	}
	req, err := h.service.AcceptFriendRequest(c.Request.Context(), id, uid)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "已成为好友", gin.H{"request_id": req.ID, "status": req.Status})
}

// Reject 拒绝好友请求
func (h *FriendshipHandler) Reject(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "request_id")
	if !ok {
		return
	}
	if err := h.service.RejectFriendRequest(c.Request.Context(), id, uid); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "已拒绝好友请求", nil)
}

// Cancel 撤回自己发出的好友请求
func (h *FriendshipHandler) Cancel(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "request_id")
	if !ok {
		return
	}
	if err := h.service.CancelFriendRequest(c.Request.Context(), id, uid); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "已撤回好友请求", nil)
}

// Remove 删除好友
func (h *FriendshipHandler) Remove(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	target, ok := paramID(c, "user_id")
	if !ok {
		return
	}
	if err := h.service.RemoveFriend(c.Request.Context(), uid, target); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "已删除好友", nil)
}

// Status 与指定用户的好友状态
func (h *FriendshipHandler) Status(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	target, ok := paramID(c, "user_id")
	if !ok {
		return
	}
	st, err := h.service.GetFriendshipStatus(c.Request.Context(), uid, target)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, st)
}

// List 好友列表
func (h *FriendshipHandler) List(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	page, limit := pageParams(c, h.defaultLimit)
	result, err := h.service.ListFriends(c.Request.Context(), uid, page, limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, result)
}

// Incoming 收到的待处理好友请求
func (h *FriendshipHandler) Incoming(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	list, err := h.service.ListIncomingRequests(c.Request.Context(), uid)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"requests": list})
}

// Sent 发出的待处理好友请求
func (h *FriendshipHandler) Sent(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	list, err := h.service.ListSentRequests(c.Request.Context(), uid)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"requests": list})
}

// Mutual 共同好友
func (h *FriendshipHandler) Mutual(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	target, ok := paramID(c, "user_id")
	if !ok {
		return
	}
	users, err := h.service.GetMutualFriends(c.Request.Context(), uid, target)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"users": users, "count": len(users)})
}

// Suggestions 好友推荐，按共同好友数排序
func (h *FriendshipHandler) Suggestions(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.suggestions.SuggestFriends(c.Request.Context(), uid, limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"suggestions": list})
}
