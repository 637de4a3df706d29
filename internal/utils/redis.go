package utils

import (
	"github.com/redis/go-redis/v9"

	"jiuyu/internal/config"
	"jiuyu/internal/logger"
)

// OpenRedis：按配置打开 Redis 客户端
// 约束：REDIS_ENABLE 关闭时返回 nil，调用方按未启用缓存处理；此处不探活
func OpenRedis(cfg *config.Config) *redis.Client {
	if !cfg.RedisEnable {
		return nil
	}
	addr := cfg.RedisAddr()
	logger.L().Debug("redis_config", "addr", addr, "db", cfg.RedisDB)
	return redis.NewClient(&redis.Options{Addr: addr, Password: cfg.RedisPass, DB: cfg.RedisDB})
}
