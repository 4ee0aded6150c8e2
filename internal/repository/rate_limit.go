package repository

import (
	"context"
	"fmt"
	"time"

	"job_board/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const rateLimitKeyPrefix = "ratelimit:%s:%s"

type RateLimitRepository interface {
	// Hit увеличивает счетчик ключа в текущем окне и возвращает новое значение
	Hit(ctx context.Context, scope, key string, window time.Duration) (int64, error)
}

type rateLimitRepository struct {
	redis *redis.Client
	log   logger.Logger
}

func NewRateLimitRepository(redis *redis.Client, log logger.Logger) RateLimitRepository {
	return &rateLimitRepository{redis: redis, log: log}
}

func (r *rateLimitRepository) Hit(ctx context.Context, scope, key string, window time.Duration) (int64, error) {
	redisKey := fmt.Sprintf(rateLimitKeyPrefix, scope, key)

	var incr *redis.IntCmd
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		// NX: окно начинается с первого запроса и не продлевается последующими
		pipe.ExpireNX(ctx, redisKey, window)
		return nil
	})
	if err != nil {
		r.log.Error("Failed to increment rate limit", "error", err, "key", redisKey)
		return 0, err
	}

	return incr.Val(), nil
}
