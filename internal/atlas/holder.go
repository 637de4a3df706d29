package atlas

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"jiuyu/internal/logger"
	"jiuyu/internal/metrics"
)

// 文档注释：当前快照持有者
// 背景：通过 atomic.Value 提供无锁读取与整体切换，重载期间读请求继续使用旧快照
// 约束：Reload 串行执行；Store(nil) 被忽略
type Holder struct {
	v  atomic.Value
	mu sync.Mutex
}

// Load 未设置时返回 nil。
func (h *Holder) Load() *Snapshot {
	s, _ := h.v.Load().(*Snapshot)
	return s
}

func (h *Holder) Store(s *Snapshot) {
	if s == nil {
		return
	}
	h.v.Store(s)
	metrics.SnapshotBuiltAt.Set(float64(s.BuiltAt.Unix()))
}

// 文档注释：用 build 构建新快照并替换
// 约束：失败时旧快照不变；timeout<=0 表示只受 ctx 约束
func (h *Holder) Reload(ctx context.Context, timeout time.Duration, build func(context.Context) (*Snapshot, error)) (*Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	s, err := build(ctx)
	if err != nil {
		metrics.SnapshotReloadsTotal.WithLabelValues("error").Inc()
		logger.L().Error("snapshot_reload_error", "err", err)
		return nil, err
	}
	h.Store(s)
	metrics.SnapshotReloadsTotal.WithLabelValues("ok").Inc()
	return s, nil
}
