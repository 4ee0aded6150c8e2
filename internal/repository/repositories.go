package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"job_board/pkg/logger"
)

type Repositories struct {
	User         UserRepository
	Company      CompanyRepository
	Application  ApplicationRepository
	Conversation ConversationRepository
	Message      MessageRepository
	Notification NotificationRepository
	RateLimit    RateLimitRepository
	Audit        AuditRepository
}

func NewRepositories(db *pgxpool.Pool, redis *redis.Client, log logger.Logger) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db, log),
		Company:      NewCompanyRepository(db, log),
		Application:  NewApplicationRepository(db, log),
		Conversation: NewConversationRepository(db, log),
		Message:      NewMessageRepository(db, log),
		Notification: NewNotificationRepository(db, log),
		RateLimit:    NewRateLimitRepository(redis, log),
		Audit:        NewAuditRepository(db, log),
	}
}
