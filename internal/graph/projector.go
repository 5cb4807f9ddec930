package graph

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"social-system/config"
	"social-system/pkg/logger"

	"go.uber.org/zap"
)

// op 一次待投影的图变更
type op struct {
	name  string
	a, b  uint
	apply func(ctx context.Context, g Graph) error
}

// Projector 将关系库已提交的状态变更尽力投影到图中
// 投影失败只记录日志并标记图为脏，由 Reconciler 重建修复，不影响调用方
// 每个 worker 独占一个队列，同一对用户的变更总落在同一队列，按提交顺序执行
type Projector struct {
	graph    Graph
	queues   []chan op
	workers  int
	timeout  time.Duration
	attempts int
	backoff  time.Duration

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup

	dirty    atomic.Bool
	failures atomic.Int64
	applied  atomic.Int64
}

// NewProjector 创建投影器，SyncWorkers 为 0 时同步投影
func NewProjector(g Graph, cfg config.GraphConfig) *Projector {
	p := &Projector{
		graph:    g,
		workers:  cfg.SyncWorkers,
		timeout:  cfg.QueryTimeout,
		attempts: cfg.RetryAttempts,
		backoff:  cfg.RetryBackoff,
	}
	if p.timeout <= 0 {
		p.timeout = 2 * time.Second
	}
	if p.attempts <= 0 {
		p.attempts = 1
	}
	if p.workers > 0 {
		size := cfg.QueueSize
		if size <= 0 {
			size = 1024
		}
		p.queues = make([]chan op, p.workers)
		for i := range p.queues {
			p.queues[i] = make(chan op, size)
		}
	}
	return p
}

// shard 按无序用户对选择队列
func (p *Projector) shard(a, b uint) chan op {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	key := uint64(lo)<<32 ^ uint64(hi)
	return p.queues[key%uint64(len(p.queues))]
}

// Graph 底层图存储
func (p *Projector) Graph() Graph {
	return p.graph
}

// Start 启动投影协程
func (p *Projector) Start() {
	for _, q := range p.queues {
		p.wg.Add(1)
		go func(q chan op) {
			defer p.wg.Done()
			for o := range q {
				p.run(o)
			}
		}(q)
	}
}

// Stop 停止接收新任务并等待队列排空
func (p *Projector) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	for _, q := range p.queues {
		close(q)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

// Dirty 是否有投影丢失，需要重建
func (p *Projector) Dirty() bool {
	return p.dirty.Load()
}

// MarkClean 重建完成后清除脏标记
func (p *Projector) MarkClean() {
	p.dirty.Store(false)
}

// Failures 放弃的投影次数
func (p *Projector) Failures() int64 {
	return p.failures.Load()
}

// Applied 成功的投影次数
func (p *Projector) Applied() int64 {
	return p.applied.Load()
}

func (p *Projector) submit(o op) {
	if p == nil {
		return
	}
	if p.workers == 0 {
		p.run(o)
		return
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		p.dirty.Store(true)
		logger.Warn("投影器已停止，丢弃图变更", zap.String("op", o.name), zap.Uint("a", o.a), zap.Uint("b", o.b))
		return
	}

	select {
	case p.shard(o.a, o.b) <- o:
	default:
		p.dirty.Store(true)
		logger.Warn("投影队列已满，丢弃图变更", zap.String("op", o.name), zap.Uint("a", o.a), zap.Uint("b", o.b))
	}
}

// run 带超时与指数退避重试地执行一次投影
func (p *Projector) run(o op) {
	backoff := p.backoff
	for attempt := 1; attempt <= p.attempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		err := o.apply(ctx, p.graph)
		cancel()
		if err == nil {
			p.applied.Add(1)
			return
		}

		logger.Warn("图投影失败",
			zap.String("op", o.name),
			zap.Uint("a", o.a),
			zap.Uint("b", o.b),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt < p.attempts && backoff > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}
	}

	p.failures.Add(1)
	p.dirty.Store(true)
	logger.Error("图投影放弃，等待重建", zap.String("op", o.name), zap.Uint("a", o.a), zap.Uint("b", o.b))
}

// UpsertUser 投影用户节点
func (p *Projector) UpsertUser(id uint, username string) {
	p.submit(op{name: "upsert_user", a: id, apply: func(ctx context.Context, g Graph) error {
		return g.UpsertUser(ctx, id, username)
	}})
}

// RequestSent 投影好友请求：新增 REQUESTED 边
func (p *Projector) RequestSent(from, to uint) {
	p.submit(op{name: "add_request", a: from, b: to, apply: func(ctx context.Context, g Graph) error {
		return g.AddRequestEdge(ctx, from, to)
	}})
}

// RequestWithdrawn 投影请求被拒绝/撤回：删除 REQUESTED 边
func (p *Projector) RequestWithdrawn(from, to uint) {
	p.submit(op{name: "remove_request", a: from, b: to, apply: func(ctx context.Context, g Graph) error {
		return g.RemoveRequestEdge(ctx, from, to)
	}})
}

// FriendshipAccepted 投影好友请求被接受：新增双向好友边并删除请求边
func (p *Projector) FriendshipAccepted(requester, recipient uint) {
	p.submit(op{name: "accept_friend", a: requester, b: recipient, apply: func(ctx context.Context, g Graph) error {
		if err := g.AddFriendEdge(ctx, requester, recipient); err != nil {
			return err
		}
		return g.RemoveRequestEdge(ctx, requester, recipient)
	}})
}

// FriendshipRemoved 投影解除好友：删除双向好友边
func (p *Projector) FriendshipRemoved(a, b uint) {
	p.submit(op{name: "remove_friend", a: a, b: b, apply: func(ctx context.Context, g Graph) error {
		return g.RemoveFriendEdge(ctx, a, b)
	}})
}

// Blocked 投影拉黑：新增 BLOCKED 边并清除两人之间的好友与请求边
func (p *Projector) Blocked(blocker, blocked uint) {
	p.submit(op{name: "block", a: blocker, b: blocked, apply: func(ctx context.Context, g Graph) error {
		if err := g.AddBlockEdge(ctx, blocker, blocked); err != nil {
			return err
		}
		if err := g.RemoveFriendEdge(ctx, blocker, blocked); err != nil {
			return err
		}
		if err := g.RemoveRequestEdge(ctx, blocker, blocked); err != nil {
			return err
		}
		return g.RemoveRequestEdge(ctx, blocked, blocker)
	}})
}

// Unblocked 投影取消拉黑
func (p *Projector) Unblocked(blocker, blocked uint) {
	p.submit(op{name: "unblock", a: blocker, b: blocked, apply: func(ctx context.Context, g Graph) error {
		return g.RemoveBlockEdge(ctx, blocker, blocked)
	}})
}
