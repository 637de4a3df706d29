// 包 middleware：HTTP 入口中间件（限流与来源地址解析）
package middleware

import (
	"net/http"
	"sync"
	"time"

	"jiuyu/internal/config"
	"jiuyu/internal/logger"
	"jiuyu/internal/metrics"
)

// 文档注释：令牌桶限流（每秒）
// 背景：重载或批量抓取时对入口限速，避免快照查询与 Redis 被压满
// 约束：不排队，超出即返回 429；每个自然秒重置为满桶
type TokenBucket struct {
	capacity int
	tokens   int
	lastSec  int64
	now      func() time.Time
	mu       sync.Mutex
}

func NewTokenBucket(qps int) *TokenBucket {
	if qps < 1 {
		qps = 1
	}
	return &TokenBucket{capacity: qps, tokens: qps, lastSec: time.Now().Unix(), now: time.Now}
}

// Allow 取一个令牌。
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	nowSec := tb.now().Unix()
	if tb.lastSec != nowSec {
		tb.lastSec = nowSec
		tb.tokens = tb.capacity
	}
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// RateLimit 未开启时原样返回 next。
func RateLimit(cfg *config.Config, next http.Handler) http.Handler {
	if !cfg.RateLimitEnabled {
		return next
	}
	return Limit(NewTokenBucket(cfg.RateLimitQPS), next)
}

func Limit(tb *TokenBucket, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !tb.Allow() {
			metrics.RateLimitedTotal.Inc()
			logger.L().Debug("rate_limited", "ip", VisitorIP(r), "path", r.URL.Path)
			w.Header().Set("retry-after", "1")
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
