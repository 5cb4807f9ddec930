package redis

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// 未读通知计数相关常量
const (
	UnreadCountKeyPrefix = "social:unread:" // 未读通知计数key前缀
)

func unreadKey(userID uint) string {
	return fmt.Sprintf("%s%d", UnreadCountKeyPrefix, userID)
}

// IncrementUnreadCount 增加用户未读通知计数
// 计数不存在时不创建，避免在未初始化的计数上累加出错误的值
func IncrementUnreadCount(userID uint) error {
	if client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}

	key := unreadKey(userID)

	exists, err := client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("检查未读通知计数失败: %w", err)
	}
	if exists == 0 {
		return nil
	}

	// 使用Redis INCR命令原子性增加计数
	if err := client.Incr(ctx, key).Err(); err != nil {
		return fmt.Errorf("增加未读通知计数失败: %w", err)
	}

	return nil
}

// DecrementUnreadCount 减少用户未读通知计数
func DecrementUnreadCount(userID uint) error {
	if client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}

	key := unreadKey(userID)

	// 使用Redis DECR命令原子性减少计数
	count, err := client.Decr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("减少未读通知计数失败: %w", err)
	}

	// 如果计数为负数，删除key，下次回源数据库
	if count < 0 {
		client.Del(ctx, key)
	}

	return nil
}

// GetUnreadCount 获取用户未读通知计数
// key 不存在时返回 -1，表示需要从数据库获取
func GetUnreadCount(userID uint) (int64, error) {
	if client == nil {
		return 0, fmt.Errorf("redis客户端未初始化")
	}

	count, err := client.Get(ctx, unreadKey(userID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return -1, nil
		}
		return 0, fmt.Errorf("获取未读通知计数失败: %w", err)
	}

	return count, nil
}

// SetUnreadCount 设置用户未读通知计数（用于回源后初始化）
func SetUnreadCount(userID uint, count int64) error {
	if client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}

	if err := client.Set(ctx, unreadKey(userID), count, UnreadCountTTL).Err(); err != nil {
		return fmt.Errorf("设置未读通知计数失败: %w", err)
	}

	return nil
}

// ResetUnreadCount 重置用户未读通知计数为0
func ResetUnreadCount(userID uint) error {
	if client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}

	// 删除key，相当于重置为0
	if err := client.Del(ctx, unreadKey(userID)).Err(); err != nil {
		return fmt.Errorf("重置未读通知计数失败: %w", err)
	}

	return nil
}
