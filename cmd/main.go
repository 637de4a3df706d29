package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"jiuyu/internal/api"
	"jiuyu/internal/atlas"
	"jiuyu/internal/cache"
	"jiuyu/internal/config"
	"jiuyu/internal/logger"
	"jiuyu/internal/metrics"
	"jiuyu/internal/middleware"
	"jiuyu/internal/migrate"
	"jiuyu/internal/reftable"
	"jiuyu/internal/store"
	"jiuyu/internal/utils"
	"jiuyu/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L().Error("config_error", "err", err)
		os.Exit(1)
	}
	l := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	l.Info("starting", "version", version.String(), "api_base", cfg.APIBase, "ref_source", cfg.RefSource)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 参照表来源：REF_SOURCE=postgres 时需要 PG_ENABLE=true
	var src reftable.RowSource
	db, err := utils.OpenPostgres(ctx, cfg)
	if err != nil {
		l.Error("db_open_error", "err", err)
	} else if db != nil {
		defer db.Close()
		if err := migrate.EnsureSchema(db); err != nil {
			l.Error("schema_error", "err", err)
			os.Exit(1)
		}
		src = store.AttachDB(db)
	} else {
		l.Info("postgres_disabled")
	}
	if cfg.RefSource == "postgres" && src == nil {
		l.Warn("ref_source_unavailable", "source", cfg.RefSource)
	}

	rc := utils.OpenRedis(cfg)
	if rc == nil {
		l.Info("redis_disabled")
	} else {
		defer rc.Close()
		if err := rc.Ping(ctx).Err(); err != nil {
			l.Error("redis_ping_error", "err", err)
		} else {
			l.Info("redis_ping_ok")
		}
	}

	builder := atlas.NewBuilder(cfg, src)
	var holder atlas.Holder
	if _, err := holder.Reload(ctx, cfg.ReloadTimeout, builder.Build); err != nil {
		// 首次构建失败时服务仍然启动，/healthz 返回 503 直到 /reload 成功
		l.Error("snapshot_initial_build_error", "err", err)
	}

	apiBase := "/" + strings.Trim(cfg.APIBase, "/")
	srv := api.New(cfg, &holder, builder.Build, cache.New(rc, cfg.SearchTTL))
	mux := http.NewServeMux()
	mux.Handle(apiBase+"/", http.StripPrefix(apiBase, srv.Routes()))
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, apiBase+"/healthz", http.StatusTemporaryRedirect)
	})

	handler := middleware.RateLimit(cfg, mux)
	handler = logger.AccessMiddleware(l)(handler)
	s := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		l.Info("shutting_down")
		_ = s.Shutdown(shutdownCtx)
	}()

	if cfg.TLSEnable {
		if err := utils.EnsureSelfSignedCert(cfg.TLSCertPath, cfg.TLSKeyPath, cfg.TLSCommonName); err != nil {
			l.Error("tls_cert_error", "err", err)
			os.Exit(1)
		}
		l.Info("listening_tls", "addr", cfg.Addr, "cert", cfg.TLSCertPath)
		err = s.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
	} else {
		l.Info("listening", "addr", cfg.Addr)
		err = s.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("listen_error", "err", err)
		os.Exit(1)
	}
}
