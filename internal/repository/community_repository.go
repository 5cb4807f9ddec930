package repository

import (
	"context"
	"errors"

	"social-system/internal/model"
	"social-system/pkg/apperr"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommunityRepository 社区与成员角色仓储
type CommunityRepository struct {
	db *gorm.DB
}

// NewCommunityRepository 创建CommunityRepository实例
func NewCommunityRepository(db *gorm.DB) *CommunityRepository {
	return &CommunityRepository{db: db}
}

// Create 创建社区
func (r *CommunityRepository) Create(ctx context.Context, c *model.Community) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// GetByID 根据ID获取社区
func (r *CommunityRepository) GetByID(ctx context.Context, id uint) (*model.Community, error) {
	var c model.Community
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrCommunityNotFound.Withf("id=%d", id)
		}
		return nil, err
	}
	return &c, nil
}

// NameExists 名称是否已被其他社区占用
func (r *CommunityRepository) NameExists(ctx context.Context, name string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&model.Community{}).Where("name = ?", name)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

// Update 更新社区字段
func (r *CommunityRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Community{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrCommunityNotFound.Withf("id=%d", id)
	}
	return nil
}

// SaveFields 按结构体保存指定列，序列化字段（话题标签）经 serializer 写入
func (r *CommunityRepository) SaveFields(ctx context.Context, c *model.Community, columns ...string) error {
	res := r.db.WithContext(ctx).Model(c).Select(columns).Updates(c)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrCommunityNotFound.Withf("id=%d", c.ID)
	}
	return nil
}

// Delete 删除社区及其全部角色记录
func (r *CommunityRepository) Delete(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("community_id = ?", id).Delete(&model.CommunityMember{}).Error; err != nil {
		return err
	}
	return db.Delete(&model.Community{}, id).Error
}

// FindByIDs 批量查询社区
func (r *CommunityRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Community, error) {
	var communities []model.Community
	if len(ids) == 0 {
		return communities, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&communities).Error
	return communities, err
}

// Search 按名称模糊搜索社区
func (r *CommunityRepository) Search(ctx context.Context, query string, offset, limit int) ([]model.Community, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Community{})
	if query != "" {
		q = q.Where("name LIKE ?", "%"+query+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var communities []model.Community
	err := offsetLimit(q, offset, limit).Order("created_at DESC").Order("id DESC").Find(&communities).Error
	return communities, total, err
}

// GetRole 获取用户在社区中的角色，无记录返回 RoleNone
func (r *CommunityRepository) GetRole(ctx context.Context, communityID, userID uint) (model.Role, error) {
	var m model.CommunityMember
	err := r.db.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Take(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.RoleNone, nil
		}
		return model.RoleNone, err
	}
	return m.Role, nil
}

// SetRole 设置角色（upsert），同一 (社区, 用户) 只会有一行
func (r *CommunityRepository) SetRole(ctx context.Context, communityID, userID uint, role model.Role) error {
	m := model.CommunityMember{CommunityID: communityID, UserID: userID, Role: role}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "community_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
	}).Create(&m).Error
}

// ChangeRole 条件更新角色：仅当当前角色为 from 时改为 to，返回是否命中
func (r *CommunityRepository) ChangeRole(ctx context.Context, communityID, userID uint, from, to model.Role) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.CommunityMember{}).
		Where("community_id = ? AND user_id = ? AND role = ?", communityID, userID, from).
		Update("role", to)
	return res.RowsAffected > 0, res.Error
}

// RemoveRole 删除角色记录，返回是否命中
func (r *CommunityRepository) RemoveRole(ctx context.Context, communityID, userID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Delete(&model.CommunityMember{})
	return res.RowsAffected > 0, res.Error
}

// ListMembers 社区所有角色记录，按角色从高到低、加入时间先后排序
func (r *CommunityRepository) ListMembers(ctx context.Context, communityID uint, minRole model.Role) ([]model.CommunityMember, error) {
	var members []model.CommunityMember
	err := r.db.WithContext(ctx).
		Where("community_id = ? AND role >= ?", communityID, minRole).
		Order("role DESC").Order("created_at ASC").Order("user_id ASC").
		Find(&members).Error
	return members, err
}

// ListByRole 某个角色的所有用户ID
func (r *CommunityRepository) ListByRole(ctx context.Context, communityID uint, role model.Role) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&model.CommunityMember{}).
		Where("community_id = ? AND role = ?", communityID, role).
		Order("created_at ASC").Order("user_id ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

// CountMembers 角色不低于 member 的人数
func (r *CommunityRepository) CountMembers(ctx context.Context, communityID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.CommunityMember{}).
		Where("community_id = ? AND role >= ?", communityID, model.RoleMember).
		Count(&count).Error
	return count, err
}

// CommunityIDsForUser 用户角色不低于 minRole 的社区ID
func (r *CommunityRepository) CommunityIDsForUser(ctx context.Context, userID uint, minRole model.Role) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&model.CommunityMember{}).
		Where("user_id = ? AND role >= ?", userID, minRole).
		Order("community_id").
		Pluck("community_id", &ids).Error
	return ids, err
}

// MembershipsForUser 用户参与的所有社区角色记录
func (r *CommunityRepository) MembershipsForUser(ctx context.Context, userID uint, minRole model.Role) ([]model.CommunityMember, error) {
	var members []model.CommunityMember
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND role >= ?", userID, minRole).
		Order("created_at DESC").
		Find(&members).Error
	return members, err
}

// PromoteAllPending 将社区中所有 pending 提升为 member，返回受影响用户
func (r *CommunityRepository) PromoteAllPending(ctx context.Context, communityID uint) ([]uint, error) {
	ids, err := r.ListByRole(ctx, communityID, model.RolePending)
	if err != nil || len(ids) == 0 {
		return ids, err
	}

	err = r.db.WithContext(ctx).Model(&model.CommunityMember{}).
		Where("community_id = ? AND role = ?", communityID, model.RolePending).
		Update("role", model.RoleMember).Error
	return ids, err
}
