package redis

import (
	"context"
	"document-vault/internal/config"
	"document-vault/internal/logger"

	"github.com/redis/go-redis/v9"
)

var Ctx = context.Background()
var RedisClient *redis.Client

func InitRedis() {
	RedisClient = redis.NewClient(&redis.Options{
		Addr: config.AppConfig.RedisAddress,
	})
	_, err := RedisClient.Ping(Ctx).Result()
	if err != nil {
		logger.L().Warn("Redis not available. Running without Redis.")
		RedisClient = nil
		return
	}

	logger.L().Info("Redis connected successfully.")
}
