package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ParseLinesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jiuyu_parse_lines_total",
		Help: "Total non-blank document lines processed by the parser",
	})
	ParseNodesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jiuyu_parse_nodes_total",
		Help: "Total region nodes created by the parser",
	}, []string{"level"})
	LinkMatchedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jiuyu_link_matched_total",
		Help: "Total region nodes matched to a reference row",
	}, []string{"level"})
	LinkMissedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jiuyu_link_missed_total",
		Help: "Total region nodes without a reference row",
	}, []string{"level"})
	LinkAmbiguousTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jiuyu_link_ambiguous_total",
		Help: "Total matches where more than one reference row had the same normalized name in scope",
	}, []string{"level"})
	LinkSkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jiuyu_link_skipped_total",
		Help: "Total link runs skipped because a reference table was missing or empty",
	})
	LinkDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "jiuyu_link_duration_ms",
		Help:    "Link duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	})
	RefRowsLoaded = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "jiuyu_reftable_rows",
		Help: "Rows in the currently loaded reference tables",
	}, []string{"kind"})
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jiuyu_requests_total",
		Help: "Total API requests by route and status class",
	}, []string{"route", "code"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jiuyu_request_duration_ms",
		Help:    "API request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"route"})
	RedisHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jiuyu_redis_hits_total",
		Help: "Total redis search cache hits",
	})
	RedisMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jiuyu_redis_misses_total",
		Help: "Total redis search cache misses",
	})
	LocateCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jiuyu_locate_cache_hits_total",
		Help: "Total in-process locate cache hits",
	})
	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jiuyu_rate_limited_total",
		Help: "Total requests rejected by the rate limiter",
	})
	SnapshotReloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jiuyu_snapshot_reloads_total",
		Help: "Snapshot rebuilds by result",
	}, []string{"result"})
	SnapshotBuiltAt = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "jiuyu_snapshot_built_at_seconds",
		Help: "Unix time of the currently served snapshot",
	})
)

func init() {
	prometheus.MustRegister(ParseLinesTotal)
	prometheus.MustRegister(ParseNodesTotal)
	prometheus.MustRegister(LinkMatchedTotal)
	prometheus.MustRegister(LinkMissedTotal)
	prometheus.MustRegister(LinkAmbiguousTotal)
	prometheus.MustRegister(LinkSkippedTotal)
	prometheus.MustRegister(LinkDurationMs)
	prometheus.MustRegister(RefRowsLoaded)
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(RedisHitsTotal)
	prometheus.MustRegister(RedisMissesTotal)
	prometheus.MustRegister(LocateCacheHitsTotal)
	prometheus.MustRegister(RateLimitedTotal)
	prometheus.MustRegister(SnapshotReloadsTotal)
	prometheus.MustRegister(SnapshotBuiltAt)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 /metrics 路径，供 Prometheus 抓取；在主入口挂载。
func Handler() http.Handler { return promhttp.Handler() }
