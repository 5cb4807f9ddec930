package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrQueueEmpty 阻塞出队超时，队列中没有事件
var ErrQueueEmpty = errors.New("notification queue empty")

// PushNotificationEvent 将序列化后的通知事件推入队列头部
func PushNotificationEvent(queueKey string, payload []byte) error {
	if client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}

	if err := client.LPush(ctx, queueKey, payload).Err(); err != nil {
		return fmt.Errorf("推送通知事件失败: %w", err)
	}

	return nil
}

// PopNotificationEvent 从队列尾部阻塞取出一个事件（LPUSH + BRPOP 保证先进先出）
// timeout 内无事件返回 ErrQueueEmpty
func PopNotificationEvent(c context.Context, queueKey string, timeout time.Duration) ([]byte, error) {
	if client == nil {
		return nil, fmt.Errorf("redis客户端未初始化")
	}

	result, err := client.BRPop(c, timeout, queueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrQueueEmpty
		}
		return nil, fmt.Errorf("取出通知事件失败: %w", err)
	}

	// BRPOP 返回 [key, value]
	if len(result) != 2 {
		return nil, fmt.Errorf("通知事件格式异常: %v", result)
	}

	return []byte(result[1]), nil
}

// NotificationQueueLength 队列中待处理事件数
func NotificationQueueLength(queueKey string) (int64, error) {
	if client == nil {
		return 0, fmt.Errorf("redis客户端未初始化")
	}

	n, err := client.LLen(ctx, queueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("获取通知队列长度失败: %w", err)
	}

	return n, nil
}
