package middleware

import (
	"net/http"
	"strconv"

	"job_board/internal/domain"
	"job_board/internal/service"
	"job_board/pkg/logger"

	"github.com/gin-gonic/gin"
)

type RateLimitMiddleware struct {
	rateLimitService service.RateLimitService
	log              logger.Logger
}

func NewRateLimitMiddleware(rateLimitService service.RateLimitService, log logger.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		rateLimitService: rateLimitService,
		log:              log,
	}
}

// Limit ограничивает запросы с одного IP по правилу rule.
// failOpen пропускает запрос, если Redis недоступен.
func (m *RateLimitMiddleware) Limit(rule domain.RateLimitRule, failOpen bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()

		allowed, remaining, err := m.rateLimitService.Allow(c.Request.Context(), rule, key)
		if err != nil {
			m.log.Error("Rate limit check failed", "error", err, "scope", rule.Scope, "fail_open", failOpen)
			if failOpen {
				c.Next()
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
		if !allowed {
			c.Header("X-RateLimit-Remaining", "0")
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Next()
	}
}
