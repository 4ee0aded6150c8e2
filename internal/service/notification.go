package service

import (
	"context"
	"time"

	"job_board/internal/domain"
	"job_board/internal/repository"
	"job_board/pkg/logger"

	"github.com/google/uuid"
)

type NotificationService interface {
	NotifyNewMessage(ctx context.Context, userID uuid.UUID, companyName, content string) error
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
}

type notificationService struct {
	notificationRepo repository.NotificationRepository
	log              logger.Logger
}

func NewNotificationService(notificationRepo repository.NotificationRepository, log logger.Logger) NotificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		log:              log,
	}
}

func (s *notificationService) NotifyNewMessage(ctx context.Context, userID uuid.UUID, companyName, content string) error {
	notification := &domain.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Content:   domain.NewMessageNotificationContent(companyName, content),
		CreatedAt: time.Now(),
	}
	return s.notificationRepo.Create(ctx, notification)
}

func (s *notificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]*domain.Notification, error) {
	return s.notificationRepo.ListByUser(ctx, userID, unreadOnly)
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.notificationRepo.MarkRead(ctx, id, userID)
}
