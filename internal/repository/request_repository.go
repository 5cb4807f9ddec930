package repository

import (
	"context"
	"errors"

	"social-system/internal/model"
	"social-system/pkg/apperr"

	"gorm.io/gorm"
)

// RequestRepository 好友请求/社区请求仓储
// 状态迁移均为条件更新（WHERE status='pending'），受影响行数为0即说明已被并发处理
type RequestRepository struct {
	db *gorm.DB
}

// NewRequestRepository 创建RequestRepository实例
func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create 创建请求
// PairKey 唯一索引冲突时返回 gorm.ErrDuplicatedKey
func (r *RequestRepository) Create(ctx context.Context, req *model.Request) error {
	return r.db.WithContext(ctx).Create(req).Error
}

// GetByID 根据ID获取请求
func (r *RequestRepository) GetByID(ctx context.Context, id uint) (*model.Request, error) {
	var req model.Request
	err := r.db.WithContext(ctx).First(&req, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrRequestNotFound.Withf("id=%d", id)
		}
		return nil, err
	}
	return &req, nil
}

// FindByPairKey 按存活唯一键查找，不存在返回 nil, nil
func (r *RequestRepository) FindByPairKey(ctx context.Context, key string) (*model.Request, error) {
	var req model.Request
	err := r.db.WithContext(ctx).Where("pair_key = ?", key).Take(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

// FindFriendRecord 查找两人之间的好友请求或好友关系（任一方向）
func (r *RequestRepository) FindFriendRecord(ctx context.Context, a, b uint) (*model.Request, error) {
	return r.FindByPairKey(ctx, model.FriendPairKey(a, b))
}

// MarkAccepted 将待处理请求置为已接受
// clearKey 为 true 时同时清空 PairKey（社区请求接受后不再占用唯一键）
func (r *RequestRepository) MarkAccepted(ctx context.Context, id uint, clearKey bool) (bool, error) {
	fields := map[string]interface{}{"status": model.RequestStatusAccepted}
	if clearKey {
		fields["pair_key"] = nil
	}

	res := r.db.WithContext(ctx).Model(&model.Request{}).
		Where("id = ? AND status = ?", id, model.RequestStatusPending).
		Updates(fields)
	return res.RowsAffected > 0, res.Error
}

// DeletePending 删除待处理请求（拒绝/撤回），返回是否命中
func (r *RequestRepository) DeletePending(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, model.RequestStatusPending).
		Delete(&model.Request{})
	return res.RowsAffected > 0, res.Error
}

// DeleteFriendship 删除两人之间已接受的好友关系，返回是否命中
func (r *RequestRepository) DeleteFriendship(ctx context.Context, a, b uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("pair_key = ? AND status = ?", model.FriendPairKey(a, b), model.RequestStatusAccepted).
		Delete(&model.Request{})
	return res.RowsAffected > 0, res.Error
}

// DeleteByID 无条件删除
func (r *RequestRepository) DeleteByID(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.Request{}, id).Error
}

// friendsOf 用户已接受的好友记录
func (r *RequestRepository) friendsOf(ctx context.Context, userID uint) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.Request{}).
		Where("type = ? AND status = ?", model.RequestTypeFriend, model.RequestStatusAccepted).
		Where("requester_id = ? OR recipient_id = ?", userID, userID)
}

// FriendIDs 用户的所有好友ID
func (r *RequestRepository) FriendIDs(ctx context.Context, userID uint) ([]uint, error) {
	var records []model.Request
	if err := r.friendsOf(ctx, userID).Select("requester_id", "recipient_id").Find(&records).Error; err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(records))
	for i := range records {
		ids = append(ids, records[i].OtherParty(userID))
	}
	return ids, nil
}

// PendingFriendPeerIDs 与用户之间存在待处理好友请求（任一方向）的用户ID
func (r *RequestRepository) PendingFriendPeerIDs(ctx context.Context, userID uint) ([]uint, error) {
	var records []model.Request
	err := r.db.WithContext(ctx).Model(&model.Request{}).
		Select("requester_id", "recipient_id").
		Where("type = ? AND status = ?", model.RequestTypeFriend, model.RequestStatusPending).
		Where("requester_id = ? OR recipient_id = ?", userID, userID).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(records))
	for i := range records {
		ids = append(ids, records[i].OtherParty(userID))
	}
	return ids, nil
}

// CountFriends 好友数量
func (r *RequestRepository) CountFriends(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.friendsOf(ctx, userID).Count(&count).Error
	return count, err
}

// ListFriendships 分页获取好友关系记录，按成为好友的时间倒序
func (r *RequestRepository) ListFriendships(ctx context.Context, userID uint, offset, limit int) ([]model.Request, int64, error) {
	var total int64
	if err := r.friendsOf(ctx, userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []model.Request
	err := offsetLimit(r.friendsOf(ctx, userID), offset, limit).
		Order("updated_at DESC").Order("id DESC").
		Find(&records).Error
	return records, total, err
}

// ListIncoming 发给用户的待处理请求
func (r *RequestRepository) ListIncoming(ctx context.Context, userID uint, typ model.RequestType) ([]model.Request, error) {
	var records []model.Request
	err := r.db.WithContext(ctx).
		Where("recipient_id = ? AND type = ? AND status = ?", userID, typ, model.RequestStatusPending).
		Order("created_at DESC").Order("id DESC").
		Find(&records).Error
	return records, err
}

// ListSent 用户发出的待处理请求
func (r *RequestRepository) ListSent(ctx context.Context, userID uint, typ model.RequestType) ([]model.Request, error) {
	var records []model.Request
	err := r.db.WithContext(ctx).
		Where("requester_id = ? AND type = ? AND status = ?", userID, typ, model.RequestStatusPending).
		Order("created_at DESC").Order("id DESC").
		Find(&records).Error
	return records, err
}

// ListPendingJoins 社区的待处理加入申请
func (r *RequestRepository) ListPendingJoins(ctx context.Context, communityID uint) ([]model.Request, error) {
	var records []model.Request
	err := r.db.WithContext(ctx).
		Where("community_id = ? AND type = ? AND status = ?", communityID, model.RequestTypeCommunityJoin, model.RequestStatusPending).
		Order("created_at ASC").Order("id ASC").
		Find(&records).Error
	return records, err
}

// DeleteByCommunity 删除社区相关的所有请求
func (r *RequestRepository) DeleteByCommunity(ctx context.Context, communityID uint) error {
	return r.db.WithContext(ctx).
		Where("community_id = ?", communityID).
		Delete(&model.Request{}).Error
}

// ListByTypeStatus 按类型和状态列出所有请求（图重建使用）
func (r *RequestRepository) ListByTypeStatus(ctx context.Context, typ model.RequestType, status model.RequestStatus) ([]model.Request, error) {
	var records []model.Request
	err := r.db.WithContext(ctx).
		Where("type = ? AND status = ?", typ, status).
		Order("id").
		Find(&records).Error
	return records, err
}

// FriendshipsOf 任一方在 userIDs 中的已接受好友关系（二度好友计算使用）
func (r *RequestRepository) FriendshipsOf(ctx context.Context, userIDs []uint) ([]model.Request, error) {
	var records []model.Request
	if len(userIDs) == 0 {
		return records, nil
	}
	err := r.db.WithContext(ctx).
		Where("type = ? AND status = ?", model.RequestTypeFriend, model.RequestStatusAccepted).
		Where("requester_id IN ? OR recipient_id IN ?", userIDs, userIDs).
		Find(&records).Error
	return records, err
}
