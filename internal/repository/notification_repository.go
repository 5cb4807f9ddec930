package repository

import (
	"context"
	"errors"
	"time"

	"social-system/internal/model"
	"social-system/pkg/apperr"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NotificationRepository 通知仓储
type NotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository 创建NotificationRepository实例
func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// CreateIfAbsent 按 EventID 幂等写入，返回是否为新插入
func (r *NotificationRepository) CreateIfAbsent(ctx context.Context, n *model.Notification) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(n)
	return res.RowsAffected > 0, res.Error
}

// GetByID 根据ID获取通知
func (r *NotificationRepository) GetByID(ctx context.Context, id uint) (*model.Notification, error) {
	var n model.Notification
	if err := r.db.WithContext(ctx).First(&n, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotificationNotFound.Withf("id=%d", id)
		}
		return nil, err
	}
	return &n, nil
}

// List 分页获取用户通知，最新的在前
func (r *NotificationRepository) List(ctx context.Context, recipientID uint, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error) {
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&model.Notification{}).Where("recipient_id = ?", recipientID)
		if unreadOnly {
			q = q.Where("is_read = ?", false)
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []model.Notification
	err := offsetLimit(base(), offset, limit).
		Order("created_at DESC").Order("id DESC").
		Find(&list).Error
	return list, total, err
}

// MarkRead 标记单条已读，返回是否由未读变为已读
func (r *NotificationRepository) MarkRead(ctx context.Context, id, recipientID uint) (bool, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND recipient_id = ? AND is_read = ?", id, recipientID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	return res.RowsAffected > 0, res.Error
}

// MarkAllRead 标记用户全部通知已读，返回更新数量
func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID uint) (int64, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	return res.RowsAffected, res.Error
}

// CountUnread 未读数量
func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}

// PurgeRead 删除在 before 之前已读的通知
func (r *NotificationRepository) PurgeRead(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("is_read = ? AND read_at < ?", true, before).
		Delete(&model.Notification{})
	return res.RowsAffected, res.Error
}
