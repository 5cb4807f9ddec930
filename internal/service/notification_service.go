package service

import (
	"context"
	"time"

	"social-system/internal/model"
	"social-system/pkg/apperr"
	"social-system/pkg/logger"
	"social-system/pkg/redis"

	"go.uber.org/zap"
)

// NotificationView 通知
type NotificationView struct {
	ID        uint               `json:"id"`
	Type      string             `json:"type"`
	Message   string             `json:"message"`
	Sender    *model.UserSummary `json:"sender,omitempty"`
	RelatedID *uint              `json:"related_id,omitempty"`
	IsRead    bool               `json:"is_read"`
	CreatedAt time.Time          `json:"created_at"`
}

// NotificationPage 通知分页
type NotificationPage struct {
	Notifications []NotificationView `json:"notifications"`
	Pagination    Pagination         `json:"pagination"`
}

// NotificationService 通知查询与已读状态
// 未读数优先读 Redis 计数，计数缺失时回源数据库并回填
type NotificationService struct {
	Deps
}

// NewNotificationService 创建通知服务
func NewNotificationService(d Deps) *NotificationService {
	return &NotificationService{Deps: d}
}

// ListNotifications 分页列出通知，最新的在前
func (s *NotificationService) ListNotifications(ctx context.Context, userID uint, page, limit int, unreadOnly bool) (*NotificationPage, error) {
	p, err := newPageRequest(page, limit, s.Limits)
	if err != nil {
		return nil, err
	}
	list, total, err := s.Store.Notifications.List(ctx, userID, unreadOnly, p.offset, p.limit)
	if err != nil {
		return nil, err
	}

	senderIDs := make([]uint, 0, len(list))
	for i := range list {
		senderIDs = append(senderIDs, list[i].SenderID)
	}
	senders, err := s.Store.Users.FindByIDs(ctx, senderIDs)
	if err != nil {
		return nil, err
	}

	views := make([]NotificationView, 0, len(list))
	for i := range list {
		n := &list[i]
		v := NotificationView{
			ID:        n.ID,
			Type:      n.Type,
			Message:   n.Message,
			RelatedID: n.RelatedID,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		}
		if u, ok := senders[n.SenderID]; ok {
			summary := u.Summary()
			v.Sender = &summary
		}
		views = append(views, v)
	}
	return &NotificationPage{Notifications: views, Pagination: p.result(total, len(views))}, nil
}

// MarkRead 标记单条已读；重复标记无副作用
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, userID uint) error {
	n, err := s.Store.Notifications.GetByID(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.RecipientID != userID {
		return apperr.ErrNotificationNotFound.Withf("id=%d", notificationID)
	}

	changed, err := s.Store.Notifications.MarkRead(ctx, notificationID, userID)
	if err != nil {
		return err
	}
	if changed && redis.Enabled() {
		if err := redis.DecrementUnreadCount(userID); err != nil {
			logger.Warn("减少未读通知计数失败", zap.Uint("user", userID), zap.Error(err))
		}
	}
	return nil
}

// MarkAllRead 全部标记已读，返回更新条数
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	n, err := s.Store.Notifications.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	if redis.Enabled() {
		if err := redis.ResetUnreadCount(userID); err != nil {
			logger.Warn("重置未读通知计数失败", zap.Uint("user", userID), zap.Error(err))
		}
	}
	return n, nil
}

// UnreadCount 未读通知数
func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	if redis.Enabled() {
		count, err := redis.GetUnreadCount(userID)
		if err == nil && count >= 0 {
			return count, nil
		}
		if err != nil {
			logger.Warn("读取未读通知计数失败，回源数据库", zap.Uint("user", userID), zap.Error(err))
		}
	}

	count, err := s.Store.Notifications.CountUnread(ctx, userID)
	if err != nil {
		return 0, err
	}
	if redis.Enabled() {
		if err := redis.SetUnreadCount(userID, count); err != nil {
			logger.Warn("回填未读通知计数失败", zap.Uint("user", userID), zap.Error(err))
		}
	}
	return count, nil
}
