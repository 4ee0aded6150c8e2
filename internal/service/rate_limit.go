package service

import (
	"context"

	"job_board/internal/domain"
	"job_board/internal/repository"
	"job_board/pkg/logger"
)

type RateLimitService interface {
	// Allow учитывает запрос и сообщает, укладывается ли ключ в лимит правила,
	// и сколько запросов осталось в текущем окне
	Allow(ctx context.Context, rule domain.RateLimitRule, key string) (bool, int, error)
}

type rateLimitService struct {
	rateLimitRepo repository.RateLimitRepository
	log           logger.Logger
}

func NewRateLimitService(rateLimitRepo repository.RateLimitRepository, log logger.Logger) RateLimitService {
	return &rateLimitService{
		rateLimitRepo: rateLimitRepo,
		log:           log,
	}
}

func (s *rateLimitService) Allow(ctx context.Context, rule domain.RateLimitRule, key string) (bool, int, error) {
	count, err := s.rateLimitRepo.Hit(ctx, rule.Scope, key, rule.Window)
	if err != nil {
		return false, 0, err
	}
	if count > int64(rule.Limit) {
		s.log.Debug("Rate limit exceeded", "scope", rule.Scope, "key", key, "count", count)
		return false, 0, nil
	}
	return true, rule.Limit - int(count), nil
}
