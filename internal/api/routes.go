// 包 api：只读 HTTP API，集中注册路由，主入口挂载到 API_BASE 前缀下
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"jiuyu/internal/atlas"
	"jiuyu/internal/cache"
	"jiuyu/internal/config"
	"jiuyu/internal/geo"
	"jiuyu/internal/logger"
	"jiuyu/internal/metrics"
)

// ReloadFunc 构建新快照；由主入口注入，测试可替换。
type ReloadFunc func(ctx context.Context) (*atlas.Snapshot, error)

// Server 持有路由依赖；所有读取都基于调用时的当前快照。
type Server struct {
	cfg    *config.Config
	holder *atlas.Holder
	reload ReloadFunc
	cache  *cache.Cache
	locate *geo.LRU[locateResult]
}

func New(cfg *config.Config, holder *atlas.Holder, reload ReloadFunc, c *cache.Cache) *Server {
	return &Server{
		cfg:    cfg,
		holder: holder,
		reload: reload,
		cache:  c,
		locate: geo.NewLRU[locateResult](cfg.LocateCache, cfg.LocateTTL),
	}
}

// 构建并返回 API 路由：独立 ServeMux 便于在主入口挂载到 API_BASE 前缀
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/regions", s.instrument("regions", s.handleRegions))
	mux.Handle("/region", s.instrument("region", s.handleRegion))
	mux.Handle("/search", s.instrument("search", s.handleSearch))
	mux.Handle("/locate", s.instrument("locate", s.handleLocate))
	mux.Handle("/country", s.instrument("country", s.handleCountry))
	mux.Handle("/stats", s.instrument("stats", s.handleStats))
	mux.Handle("/reload", s.instrument("reload", s.handleReload))
	mux.HandleFunc("/healthz", s.handleHealthz)
	return mux
}

// 记录每个路由的请求数与耗时
func (s *Server) instrument(route string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &codeWriter{ResponseWriter: w, code: http.StatusOK}
		h(sw, r)
		metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(sw.code)).Inc()
		metrics.RequestDurationMs.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
	})
}

type codeWriter struct {
	http.ResponseWriter
	code int
}

func (w *codeWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// snapshot 当前快照；尚未完成首次构建时写 503 并返回 nil
func (s *Server) snapshot(w http.ResponseWriter) *atlas.Snapshot {
	snap := s.holder.Load()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshot not ready")
	}
	return snap
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		logger.L().Error("json_encode_error", "err", err)
		writeError(w, http.StatusInternalServerError, "encode error")
		return
	}
	writeRaw(w, status, b)
}

func writeRaw(w http.ResponseWriter, status int, b []byte) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(b)
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	b, _ := json.Marshal(map[string]string{"error": msg})
	writeRaw(w, status, b)
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method || (method == http.MethodGet && r.Method == http.MethodHead) {
		return true
	}
	w.Header().Set("allow", method)
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}
