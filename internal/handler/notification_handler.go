package handler

import (
	"strconv"

	"social-system/internal/service"
	"social-system/pkg/response"

	"github.com/gin-gonic/gin"
)

// NotificationHandler 通知
type NotificationHandler struct {
	notifications *service.NotificationService
	defaultLimit  int
}

func NewNotificationHandler(n *service.NotificationService, defaultLimit int) *NotificationHandler {
	return &NotificationHandler{notifications: n, defaultLimit: defaultLimit}
}

// List 通知列表，unread=true 时只看未读
func (h *NotificationHandler) List(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	page, limit := pageParams(c, h.defaultLimit)
	unreadOnly, _ := strconv.ParseBool(c.DefaultQuery("unread", "false"))
	result, err := h.notifications.ListNotifications(c.Request.Context(), uid, page, limit, unreadOnly)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, result)
}

// UnreadCount 未读通知数
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	count, err := h.notifications.UnreadCount(c.Request.Context(), uid)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"unread_count": count})
}

// MarkRead 标记单条通知已读
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "notification_id")
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), id, uid); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "已标记为已读", nil)
}

// MarkAllRead 全部标记已读
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	uid, ok := viewerID(c)
	if !ok {
		return
	}
	n, err := h.notifications.MarkAllRead(c.Request.Context(), uid)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "已全部标记为已读", gin.H{"updated": n})
}
