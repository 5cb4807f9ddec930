package notify

import (
	"context"
	"sync"
	"time"

	"social-system/internal/repository"
	"social-system/pkg/logger"
	"social-system/pkg/redis"

	"go.uber.org/zap"
)

// persistTimeout 单次写入通知的超时
const persistTimeout = 5 * time.Second

// persist 幂等写入通知，新插入时递增未读计数
func persist(ctx context.Context, repo *repository.NotificationRepository, e Event) error {
	inserted, err := repo.CreateIfAbsent(ctx, e.toModel())
	if err != nil {
		return err
	}
	if inserted && redis.Enabled() {
		if err := redis.IncrementUnreadCount(e.RecipientID); err != nil {
			logger.Warn("递增未读通知计数失败", zap.Uint("recipient", e.RecipientID), zap.Error(err))
		}
	}
	return nil
}

// StoreSink 不经过队列，在后台协程中直接写库（Redis 关闭时使用）
type StoreSink struct {
	repo *repository.NotificationRepository
	wg   sync.WaitGroup
}

// NewStoreSink 创建直写出口
func NewStoreSink(repo *repository.NotificationRepository) *StoreSink {
	return &StoreSink{repo: repo}
}

// Emit 异步写入，与调用方的请求生命周期解耦
func (s *StoreSink) Emit(ctx context.Context, e Event) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
		defer cancel()

		if err := persist(ctx, s.repo, e); err != nil {
			logger.Error("写入通知失败",
				zap.String("event_id", e.ID),
				zap.String("type", e.Type),
				zap.Uint("recipient", e.RecipientID),
				zap.Error(err),
			)
		}
	}()
}

// Wait 等待所有进行中的写入完成
func (s *StoreSink) Wait() {
	s.wg.Wait()
}
