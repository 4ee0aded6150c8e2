package service

import (
	"job_board/internal/config"
	"job_board/internal/publisher"
	"job_board/internal/repository"
	"job_board/pkg/logger"
)

type Services struct {
	Auth         AuthService
	User         UserService
	Conversation ConversationService
	Message      MessageService
	Notification NotificationService
	RateLimit    RateLimitService
}

func NewServices(repos *repository.Repositories, pub publisher.Publisher, cfg *config.Config, log logger.Logger) *Services {
	notification := NewNotificationService(repos.Notification, log)
	audit := NewAuditService(repos.Audit, log)

	return &Services{
		Auth:         NewAuthService(repos.User, audit, cfg.JWT, log),
		User:         NewUserService(repos.User, log),
		Conversation: NewConversationService(repos.Conversation, repos.User, repos.Company, repos.Application, audit, log),
		Message:      NewMessageService(repos.Message, repos.Conversation, repos.Company, notification, pub, log),
		Notification: notification,
		RateLimit:    NewRateLimitService(repos.RateLimit, log),
	}
}
