package graph

import (
	"context"
	"fmt"
	"time"

	"social-system/internal/model"
	"social-system/internal/repository"
	"social-system/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Reconciler 从关系库重建关系图
type Reconciler struct {
	store     *repository.Store
	graph     Graph
	projector *Projector
}

// NewReconciler 创建重建器，projector 可为 nil
func NewReconciler(store *repository.Store, g Graph, projector *Projector) *Reconciler {
	return &Reconciler{store: store, graph: g, projector: projector}
}

// Snapshot 并发导出用户、好友关系、待处理请求与拉黑
func (r *Reconciler) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return r.store.Users.EachBatch(ctx, rebuildBatchSize, func(users []*model.User) error {
			for _, u := range users {
				snap.Users = append(snap.Users, UserNode{ID: u.ID, Username: u.Username})
			}
			return nil
		})
	})

	eg.Go(func() error {
		records, err := r.store.Requests.ListByTypeStatus(ctx, model.RequestTypeFriend, model.RequestStatusAccepted)
		if err != nil {
			return err
		}
		for i := range records {
			snap.Friendships = append(snap.Friendships, Edge{From: records[i].RequesterID, To: records[i].OtherParty(records[i].RequesterID)})
		}
		return nil
	})

	eg.Go(func() error {
		records, err := r.store.Requests.ListByTypeStatus(ctx, model.RequestTypeFriend, model.RequestStatusPending)
		if err != nil {
			return err
		}
		for i := range records {
			snap.Requests = append(snap.Requests, Edge{From: records[i].RequesterID, To: records[i].OtherParty(records[i].RequesterID)})
		}
		return nil
	})

	eg.Go(func() error {
		blocks, err := r.store.Blocks.All(ctx)
		if err != nil {
			return err
		}
		for _, b := range blocks {
			snap.Blocks = append(snap.Blocks, Edge{From: b.BlockerID, To: b.BlockedID})
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load graph snapshot: %w", err)
	}
	return snap, nil
}

// Rebuild 用关系库状态完整替换图内容
func (r *Reconciler) Rebuild(ctx context.Context) (*Snapshot, error) {
	start := time.Now()

	// 先清标记：重建期间新产生的投影失败会重新置脏
	if r.projector != nil {
		r.projector.MarkClean()
	}

	snap, err := r.Snapshot(ctx)
	if err != nil {
		r.markDirty()
		return nil, err
	}
	if err := r.graph.Rebuild(ctx, snap); err != nil {
		r.markDirty()
		return nil, err
	}

	logger.Info("关系图重建完成",
		zap.String("graph", r.graph.Name()),
		zap.Int("users", len(snap.Users)),
		zap.Int("friendships", len(snap.Friendships)),
		zap.Int("requests", len(snap.Requests)),
		zap.Int("blocks", len(snap.Blocks)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return snap, nil
}

func (r *Reconciler) markDirty() {
	if r.projector != nil {
		r.projector.dirty.Store(true)
	}
}

// Run 周期性检查投影器脏标记，有丢失时重建，直到 ctx 结束
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	if r.projector == nil || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !r.projector.Dirty() {
				continue
			}
			if _, err := r.Rebuild(ctx); err != nil {
				logger.Error("关系图重建失败", zap.Error(err))
			}
		}
	}
}
