// Package testutil 提供测试用的内存数据库与 Redis
package testutil

import (
	"testing"

	"social-system/config"
	"social-system/internal/model"
	"social-system/pkg/db"
	pkgredis "social-system/pkg/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB 打开一个独立的内存 SQLite 并迁移全部模型
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	orm, err := db.Open(config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      "file::memory:",
		LogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(orm, model.All()...))

	t.Cleanup(func() {
		if sqlDB, err := orm.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return orm
}

// NewRedis 启动 miniredis 并替换全局客户端，测试结束后恢复为未初始化
func NewRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	mr := miniredis.RunT(t)
	pkgredis.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { pkgredis.SetClient(nil) })
	return mr
}

// CreateUser 创建测试用户
func CreateUser(t *testing.T, orm *gorm.DB, username string) *model.User {
	t.Helper()

	u := &model.User{Username: username, Email: username + "@example.com", PasswordHash: "x"}
	require.NoError(t, orm.Create(u).Error)
	return u
}
