package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"social-system/internal/repository"
	"social-system/pkg/logger"
	"social-system/pkg/redis"

	"go.uber.org/zap"
)

const (
	popTimeout  = time.Second // BRPOP 阻塞时间
	errorPause  = time.Second // 队列异常后的等待时间
	maxAttempts = 5           // 单个事件最多尝试写库次数
)

// Dispatcher 从 Redis 队列取出通知事件并写库
type Dispatcher struct {
	repo    *repository.NotificationRepository
	key     string
	workers int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher 创建分发器
func NewDispatcher(repo *repository.NotificationRepository, key string, workers int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{repo: repo, key: key, workers: workers}
}

// Start 启动消费协程
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.loop(ctx)
		}()
	}
	logger.Info("通知分发器已启动", zap.String("queue", d.key), zap.Int("workers", d.workers))
}

// Stop 停止消费并等待协程退出，未消费的事件留在队列中
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
}

func (d *Dispatcher) loop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if _, err := d.ProcessOne(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("通知队列消费异常", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(errorPause):
			}
		}
	}
}

// ProcessOne 取出并处理一个事件；队列为空时返回 false, nil
func (d *Dispatcher) ProcessOne(ctx context.Context) (bool, error) {
	payload, err := redis.PopNotificationEvent(ctx, d.key, popTimeout)
	if err != nil {
		if errors.Is(err, redis.ErrQueueEmpty) {
			return false, nil
		}
		return false, err
	}

	var e Event
	if err := json.Unmarshal(payload, &e); err != nil {
		logger.Error("丢弃无法解析的通知事件", zap.ByteString("payload", payload), zap.Error(err))
		return true, nil
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := persist(writeCtx, d.repo, e); err != nil {
		d.retry(e, err)
	}
	return true, nil
}

// retry 写库失败的事件放回队列，超过次数后丢弃
func (d *Dispatcher) retry(e Event, cause error) {
	e.Attempts++
	if e.Attempts >= maxAttempts {
		logger.Error("通知写库多次失败，已丢弃", zap.String("event_id", e.ID), zap.Int("attempts", e.Attempts), zap.Error(cause))
		return
	}

	logger.Warn("通知写库失败，重新入队", zap.String("event_id", e.ID), zap.Int("attempts", e.Attempts), zap.Error(cause))
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := redis.PushNotificationEvent(d.key, data); err != nil {
		logger.Error("通知事件重新入队失败", zap.String("event_id", e.ID), zap.Error(err))
	}
}

// Drain 处理完队列中当前所有事件（关闭前或测试使用）
func (d *Dispatcher) Drain(ctx context.Context) error {
	for {
		n, err := redis.NotificationQueueLength(d.key)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if _, err := d.ProcessOne(ctx); err != nil {
			return err
		}
	}
}
