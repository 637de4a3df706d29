// 包 utils：外部依赖的连接工具，统一按配置打开 Postgres 与 Redis
package utils

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"jiuyu/internal/config"
	"jiuyu/internal/logger"
)

// OpenPostgres：按配置打开连接池并探活
// 约束：PG_ENABLE 关闭时返回 (nil, nil)；探活失败时关闭连接池并返回错误
func OpenPostgres(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	if !cfg.PGEnable {
		return nil, nil
	}
	db, err := sql.Open("postgres", cfg.PostgresDSN())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.PGMaxOpen)
	db.SetMaxIdleConns(cfg.PGMaxIdle)
	db.SetConnMaxLifetime(cfg.PGConnMaxAge)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping %s:%d: %w", cfg.PGHost, cfg.PGPort, err)
	}
	logger.L().Info("postgres_connected", "host", cfg.PGHost, "db", cfg.PGDB, "max_open", cfg.PGMaxOpen)
	return db, nil
}
