package notify

import (
	"context"
	"encoding/json"

	"social-system/pkg/logger"
	"social-system/pkg/redis"

	"go.uber.org/zap"
)

// QueueSink 将事件推入 Redis 列表，由 Dispatcher 消费
// 推送失败时转交 fallback（通常是 StoreSink）
type QueueSink struct {
	key      string
	fallback Sink
}

// NewQueueSink 创建队列出口
func NewQueueSink(key string, fallback Sink) *QueueSink {
	return &QueueSink{key: key, fallback: fallback}
}

// Emit 序列化并入队
func (s *QueueSink) Emit(ctx context.Context, e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		logger.Error("序列化通知事件失败", zap.String("event_id", e.ID), zap.Error(err))
		return
	}

	if err := redis.PushNotificationEvent(s.key, data); err != nil {
		logger.Warn("通知事件入队失败，改为直接写库", zap.String("event_id", e.ID), zap.Error(err))
		if s.fallback != nil {
			s.fallback.Emit(ctx, e)
		}
	}
}
