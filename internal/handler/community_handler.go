package handler

import (
	"social-system/internal/service"
	"social-system/pkg/response"

	"github.com/gin-gonic/gin"
)

// CommunityHandler 社区、成员角色与邀请
type CommunityHandler struct {
	service      *service.CommunityService
	feed         *service.FeedService
	defaultLimit int
}

func NewCommunityHandler(s *service.CommunityService, feed *service.FeedService, defaultLimit int) *CommunityHandler {
	return &CommunityHandler{service: s, feed: feed, defaultLimit: defaultLimit}
}

// communityTarget 同时解析社区ID和目标用户ID
func communityTarget(c *gin.Context) (uid, cid, target uint, ok bool) {
	if uid, ok = viewerID(c); !ok {
		return
	}
	if cid, ok = paramID(c, "community_id"); !ok {
		return
	}
	target, ok = paramID(c, "user_id")
	return
}

func communityActor(c *gin.Context) (uid, cid uint, ok bool) {
	if uid, ok = viewerID(c); !ok {
		return
	}
	cid, ok = paramID(c, "community_id")
	return
}

// Create 创建社区
func (h *CommunityHandler) Create(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	var in service.CreateCommunityInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	community, err := h.service.CreateCommunity(c.Request.Context(), uid, in)
	if err != nil {
		response.FromError(c, err)
		return
	}
	view, err := h.service.GetCommunity(c.Request.Context(), community.ID, uid)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "社区创建成功", view)
}

// List 社区列表，支持按名称搜索
func (h *CommunityHandler) List(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	page, limit := pageParams(c, h.defaultLimit)
	result, err := h.service.ListCommunities(c.Request.Context(), uid, c.Query("q"), page, limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, result)
}

// Mine 我加入的社区
func (h *CommunityHandler) Mine(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	list, err := h.service.ListUserCommunities(c.Request.Context(), uid)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"communities": list})
}

// Get 社区详情
func (h *CommunityHandler) Get(c *gin.Context) {
	uid, cid, ok := communityActor(c)
	if !ok {
		return
	}
	view, err := h.service.GetCommunity(c.Request.Context(), cid, uid)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, view)
}

// Update 修改社区信息（管理员）
func (h *CommunityHandler) Update(c *gin.Context) {
	uid, cid, ok := communityActor(c)
	if !ok {
		return
	}
	var in service.UpdateCommunityInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if _, err := h.service.UpdateCommunity(c.Request.Context(), cid, uid, in); err != nil {
		response.FromError(c, err)
		return
	}
	view, err := h.service.GetCommunity(c.Request.Context(), cid, uid)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "社区信息已更新", view)
}

// SetPrivacy 切换公开/私密（所有者）
func (h *CommunityHandler) SetPrivacy(c *gin.Context) {
	uid, cid, ok := communityActor(c)
	if !ok {
		return
	}
	type req struct {
		IsPrivate *bool `json:"is_private" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.service.SetPrivacy(c.Request.Context(), cid, uid, *r.IsPrivate); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "社区隐私设置已更新", gin.H{"is_private": *r.IsPrivate})
}

// Delete 删除社区（所有者）
func (h *CommunityHandler) Delete(c *gin.Context) {
	uid, cid, ok := communityActor(c)
	if !ok {
		return
	}
	if err := h.service.DeleteCommunity(c.Request.Context(), cid, uid); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "社区已删除", nil)
}

// Members 成员列表
func (h *CommunityHandler) Members(c *gin.Context) {
	uid, cid, ok := communityActor(c)
	if !ok {
		return
	}
	members, err := h.service.GetCommunityMembers(c.Request.Context(), cid, uid)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, members)
}

// Posts 社区帖子
func (h *CommunityHandler) Posts(c *gin.Context) {
	uid, cid, ok := communityActor(c)
	if !ok {
		return
	}
	page, limit := pageParams(c, h.defaultLimit)
	result, err := h.feed.GetCommunityPosts(c.Request.Context(), cid, uid, page, limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, result)
}

// Join 加入公开社区
func (h *CommunityHandler) Join(c *gin.Context) {
	uid, cid, ok := communityActor(c)
	if !ok {
		return
	}
	if err := h.service.JoinCommunity(c.Request.Context(), cid, uid); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "已加入社区", nil)
}

// RequestJoin 申请加入私密社区
func (h *CommunityHandler) RequestJoin(c *gin.Context) {
	uid, cid, ok := communityActor(c)
	if !ok {
		return
	}
	req, err := h.service.RequestJoin(c.Request.Context(), cid, uid)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "加入申请已提交", gin.H{"request_id": req.ID, "status": req.Status})
}

// Leave 退出社区；所有者退出返回 success=false
func (h *CommunityHandler) Leave(c *gin.Context) {
	uid, cid, ok := communityActor(c)
	if !ok {
		return
	}
	result, err := h.service.LeaveCommunity(c.Request.Context(), cid, uid)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, result)
}

// PendingRequests 待审核的加入申请（管理员）
func (h *CommunityHandler) PendingRequests(c *gin.Context) {
	uid, cid, ok := communityActor(c)
	if !ok {
		return
	}
	list, err := h.service.GetPendingRequests(c.Request.Context(), cid, uid)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"requests": list})
}

// AcceptRequest 通过加入申请
func (h *CommunityHandler) AcceptRequest(c *gin.Context) {
	uid, cid, target, ok := communityTarget(c)
	if !ok {
		return
	}
	if err := h.service.AcceptRequest(c.Request.Context(), cid, target, uid); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "已通过加入申请", nil)
}

// RejectRequest 拒绝加入申请
func (h *CommunityHandler) RejectRequest(c *gin.Context) {
	uid, cid, target, ok := communityTarget(c)
	if !ok {
		return
	}
	if err := h.service.RejectRequest(c.Request.Context(), cid, target, uid); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "已拒绝加入申请", nil)
}

// Promote 提升为管理员
func (h *CommunityHandler) Promote(c *gin.Context) {
	uid, cid, target, ok := communityTarget(c)
	if !ok {
		return
	}
	if err := h.service.PromoteToAdmin(c.Request.Context(), cid, target, uid); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "已设为管理员", nil)
}

// Demote 取消管理员
func (h *CommunityHandler) Demote(c *gin.Context) {
	uid, cid, target, ok := communityTarget(c)
	if !ok {
		return
	}
	if err := h.service.DemoteFromAdmin(c.Request.Context(), cid, target, uid); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "已取消管理员", nil)
}

// RemoveMember 移除成员
func (h *CommunityHandler) RemoveMember(c *gin.Context) {
	uid, cid, target, ok := communityTarget(c)
	if !ok {
		return
	}
	if err := h.service.RemoveMember(c.Request.Context(), cid, target, uid); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "已移除成员", nil)
}

// Transfer 转让所有权
func (h *CommunityHandler) Transfer(c *gin.Context) {
	uid, cid, target, ok := communityTarget(c)
	if !ok {
		return
	}
	if err := h.service.TransferOwnership(c.Request.Context(), cid, target, uid); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "所有权已转让", nil)
}

// Invite 邀请用户加入社区（管理员）
func (h *CommunityHandler) Invite(c *gin.Context) {
	uid, cid, target, ok := communityTarget(c)
	if !ok {
		return
	}
	req, err := h.service.InviteToCommunity(c.Request.Context(), cid, uid, target)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "邀请已发送", gin.H{"request_id": req.ID, "status": req.Status})
}

// Invites 我收到的社区邀请
func (h *CommunityHandler) Invites(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	list, err := h.service.ListInvites(c.Request.Context(), uid)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"invites": list})
}

// AcceptInvite 接受社区邀请
func (h *CommunityHandler) AcceptInvite(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "request_id")
	if !ok {
		return
	}
	if err := h.service.AcceptInvite(c.Request.Context(), id, uid); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "已加入社区", nil)
}

// DeclineInvite 拒绝社区邀请
func (h *CommunityHandler) DeclineInvite(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "request_id")
	if !ok {
		return
	}
	if err := h.service.DeclineInvite(c.Request.Context(), id, uid); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "已拒绝邀请", nil)
}
