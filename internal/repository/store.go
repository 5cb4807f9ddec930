package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store 聚合所有仓储，便于在同一事务内组合操作
type Store struct {
	db *gorm.DB

	Users         *UserRepository
	Blocks        *BlockRepository
	Requests      *RequestRepository
	Communities   *CommunityRepository
	Posts         *PostRepository
	Notifications *NotificationRepository
}

// NewStore 基于数据库连接（或事务）创建仓储集合
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:            db,
		Users:         NewUserRepository(db),
		Blocks:        NewBlockRepository(db),
		Requests:      NewRequestRepository(db),
		Communities:   NewCommunityRepository(db),
		Posts:         NewPostRepository(db),
		Notifications: NewNotificationRepository(db),
	}
}

// DB 返回底层连接
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction 在一个数据库事务中执行 fn
// fn 内只能使用传入的 tx，不能再使用外层 Store，否则单连接驱动下会互相等待
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// offsetLimit 统一处理分页参数
func offsetLimit(db *gorm.DB, offset, limit int) *gorm.DB {
	if offset > 0 {
		db = db.Offset(offset)
	}
	if limit > 0 {
		db = db.Limit(limit)
	}
	return db
}
