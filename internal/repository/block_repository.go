package repository

import (
	"context"

	"social-system/internal/model"

	"gorm.io/gorm"
)

// BlockRepository 拉黑关系仓储
type BlockRepository struct {
	db *gorm.DB
}

// NewBlockRepository 创建BlockRepository实例
func NewBlockRepository(db *gorm.DB) *BlockRepository {
	return &BlockRepository{db: db}
}

// Create 新增拉黑记录
func (r *BlockRepository) Create(ctx context.Context, blockerID, blockedID uint) error {
	return r.db.WithContext(ctx).Create(&model.UserBlock{BlockerID: blockerID, BlockedID: blockedID}).Error
}

// Delete 删除拉黑记录，返回是否存在
func (r *BlockRepository) Delete(ctx context.Context, blockerID, blockedID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&model.UserBlock{})
	return res.RowsAffected > 0, res.Error
}

// Exists blocker 是否拉黑了 blocked
func (r *BlockRepository) Exists(ctx context.Context, blockerID, blockedID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.UserBlock{}).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Count(&count).Error
	return count > 0, err
}

// EitherBlocked 两人之间任一方向是否存在拉黑
func (r *BlockRepository) EitherBlocked(ctx context.Context, a, b uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.UserBlock{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error
	return count > 0, err
}

// ListBlocked 用户拉黑的人
func (r *BlockRepository) ListBlocked(ctx context.Context, blockerID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&model.UserBlock{}).
		Where("blocker_id = ?", blockerID).
		Order("created_at DESC").
		Pluck("blocked_id", &ids).Error
	return ids, err
}

// RelatedIDs 与用户存在任一方向拉黑关系的所有用户
func (r *BlockRepository) RelatedIDs(ctx context.Context, userID uint) ([]uint, error) {
	var blocks []model.UserBlock
	err := r.db.WithContext(ctx).
		Where("blocker_id = ? OR blocked_id = ?", userID, userID).
		Find(&blocks).Error
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(blocks))
	for _, b := range blocks {
		if b.BlockerID == userID {
			ids = append(ids, b.BlockedID)
		} else {
			ids = append(ids, b.BlockerID)
		}
	}
	return ids, nil
}

// All 所有拉黑记录（图重建使用）
func (r *BlockRepository) All(ctx context.Context) ([]model.UserBlock, error) {
	var blocks []model.UserBlock
	err := r.db.WithContext(ctx).Find(&blocks).Error
	return blocks, err
}
