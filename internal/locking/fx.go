package locking

import (
	"github.com/globetrotter-hq/globetrotter/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("locking",
	fx.Provide(provide),
)

// provide picks the lock backend: redis when an address is configured so
// locks hold across replicas, otherwise an in-process mutex set.
func provide(cfg config.Config, log *zap.Logger) Locker {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		log.Info("using redis payment locks", zap.String("addr", cfg.RedisAddr))
		return NewRedisLocker(client)
	}
	log.Info("using in-process payment locks")
	return NewKeyedMutex()
}
