package embedding

import (
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"

	"github.com/nymav/drax-tbs/internal/infrastructure/config"
	"github.com/nymav/drax-tbs/internal/infrastructure/log"
)

// ProviderSet Embedding ProviderSet
var ProviderSet = wire.NewSet(
	NewClient,
	ProvideRedisClient,
)

// ProvideRedisClient 提供查询向量缓存使用的 Redis 客户端，未配置时返回 nil
func ProvideRedisClient(cfg *config.RedisConfig) (*redis.Client, func()) {
	cli := NewRedisClient(cfg)
	if cli == nil {
		return nil, func() {}
	}
	return cli, func() {
		if err := cli.Close(); err != nil {
			log.NewModuleLogger("embedding", "cache").Warn("Failed to close redis client", "error", err)
		}
	}
}
