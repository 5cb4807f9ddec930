package repository

import (
	"context"
	"errors"

	"social-system/internal/model"
	"social-system/pkg/apperr"

	"gorm.io/gorm"
)

type UserRepository struct {
	orm *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{orm: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.orm.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	var u model.User
	if err := r.orm.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrUserNotFound.Withf("id=%d", id)
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByUsernameOrEmail(ctx context.Context, identifier string) (*model.User, error) {
	var u model.User
	if err := r.orm.WithContext(ctx).Where("username = ? OR email = ?", identifier, identifier).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// ExistsByUsernameOrEmail 注册前检查用户名或邮箱是否被占用
func (r *UserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := r.orm.WithContext(ctx).Model(&model.User{}).
		Where("username = ? OR (email <> '' AND email = ?)", username, email).
		Count(&count).Error
	return count > 0, err
}

// FindByIDs 批量查询用户，已删除的用户不会返回
func (r *UserRepository) FindByIDs(ctx context.Context, ids []uint) (map[uint]*model.User, error) {
	result := make(map[uint]*model.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var users []*model.User
	if err := r.orm.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

// UpdateProfile 更新资料字段
func (r *UserRepository) UpdateProfile(ctx context.Context, id uint, fields map[string]interface{}) error {
	res := r.orm.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrUserNotFound.Withf("id=%d", id)
	}
	return nil
}

// Delete 软删除用户
func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	return r.orm.WithContext(ctx).Delete(&model.User{}, id).Error
}

// EachBatch 分批遍历所有用户（图重建使用）
func (r *UserRepository) EachBatch(ctx context.Context, size int, fn func(users []*model.User) error) error {
	var batch []*model.User
	res := r.orm.WithContext(ctx).Order("id").FindInBatches(&batch, size, func(tx *gorm.DB, _ int) error {
		return fn(batch)
	})
	return res.Error
}
