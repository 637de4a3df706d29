// 包 cache：API 响应的 Redis 缓存
//
// 背景：搜索与详情查询在同一快照内结果不变；缓存键带上快照版本，重载后旧键自然失效并随 TTL 过期。
// 约束：Redis 不可用或未配置时所有操作退化为未命中，不阻断主流程。
package cache

import (
	"context"
	"encoding/hex"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"

	"jiuyu/internal/logger"
	"jiuyu/internal/metrics"
)

const keyPrefix = "jiuyu:"

type Cache struct {
	rc  *redis.Client
	ttl time.Duration
}

// New rc 为 nil 时返回的缓存永远未命中。
func New(rc *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{rc: rc, ttl: ttl}
}

// Enabled 是否连接了 Redis。
func (c *Cache) Enabled() bool { return c != nil && c.rc != nil }

// Key 由命名空间、快照版本与参数组成；参数经 FNV-64a 摘要，避免长查询串进入键名。
func Key(ns, version, param string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(param))
	return keyPrefix + ns + ":" + version + ":" + hex.EncodeToString(h.Sum(nil))
}

// Get 命中返回内容与 true；错误按未命中处理并记录。
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}
	b, err := c.rc.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.L().Debug("cache_get_error", "key", key, "err", err)
		}
		metrics.RedisMissesTotal.Inc()
		return nil, false
	}
	metrics.RedisHitsTotal.Inc()
	return b, true
}

// Set 写入失败只记录日志。
func (c *Cache) Set(ctx context.Context, key string, val []byte) {
	if !c.Enabled() {
		return
	}
	if err := c.rc.Set(ctx, key, val, c.ttl).Err(); err != nil {
		logger.L().Debug("cache_set_error", "key", key, "err", err)
	}
}

// Ping 启动时探活。
func (c *Cache) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.rc.Ping(ctx).Err()
}
