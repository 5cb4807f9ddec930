package notify

import (
	"context"
	"time"

	"social-system/internal/repository"
	"social-system/pkg/logger"

	"go.uber.org/zap"
)

// Janitor 定期清理超过保留期的已读通知
type Janitor struct {
	repo      *repository.NotificationRepository
	retention time.Duration
	interval  time.Duration
}

// NewJanitor 创建清理任务
func NewJanitor(repo *repository.NotificationRepository, retention, interval time.Duration) *Janitor {
	return &Janitor{repo: repo, retention: retention, interval: interval}
}

// PurgeOnce 执行一次清理
func (j *Janitor) PurgeOnce(ctx context.Context) (int64, error) {
	before := time.Now().UTC().Add(-j.retention)
	n, err := j.repo.PurgeRead(ctx, before)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.Info("已清理过期已读通知", zap.Int64("count", n), zap.Time("before", before))
	}
	return n, nil
}

// Run 按间隔执行清理，直到 ctx 结束
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := j.PurgeOnce(ctx); err != nil {
				logger.Error("清理已读通知失败", zap.Error(err))
			}
		}
	}
}
