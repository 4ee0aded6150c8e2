package service

import (
	"context"
	"strings"
	"time"

	"job_board/internal/domain"
	"job_board/internal/publisher"
	"job_board/internal/repository"
	apperrors "job_board/pkg/errors"
	"job_board/pkg/logger"

	"github.com/google/uuid"
)

type MessageService interface {
	// Send сохраняет сообщение и только потом уведомляет relay.
	// Ошибка relay не влияет на результат.
	Send(ctx context.Context, actor *domain.User, conversationID, senderID uuid.UUID, content string) (*domain.Message, error)
	List(ctx context.Context, actor *domain.User, conversationID uuid.UUID) ([]*domain.Message, error)
}

type messageService struct {
	messageRepo  repository.MessageRepository
	convRepo     repository.ConversationRepository
	companyRepo  repository.CompanyRepository
	notification NotificationService
	publisher    publisher.Publisher
	log          logger.Logger
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	convRepo repository.ConversationRepository,
	companyRepo repository.CompanyRepository,
	notification NotificationService,
	pub publisher.Publisher,
	log logger.Logger,
) MessageService {
	return &messageService{
		messageRepo:  messageRepo,
		convRepo:     convRepo,
		companyRepo:  companyRepo,
		notification: notification,
		publisher:    pub,
		log:          log,
	}
}

func (s *messageService) Send(ctx context.Context, actor *domain.User, conversationID, senderID uuid.UUID, content string) (*domain.Message, error) {
	// Валидация: пробелы учитываются только при проверке на пустоту, текст сохраняется как есть
	if conversationID == uuid.Nil || senderID == uuid.Nil || strings.TrimSpace(content) == "" {
		return nil, apperrors.NewValidationError("conversationId, senderId and content are required")
	}
	// Отправлять можно только от своего имени
	if actor == nil || actor.ID != senderID {
		return nil, apperrors.ErrForbidden
	}

	conv, err := s.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsParticipant(actor) {
		s.log.Warn("Sender is not a participant", "conversation_id", conversationID, "sender_id", senderID)
		return nil, apperrors.ErrNotParticipant
	}

	message := &domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      time.Now(),
		Sender: &domain.UserRef{
			ID:   actor.ID,
			Name: actor.Name,
			Role: actor.Role,
		},
	}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}

	// Уведомление получает только соискатель, и только о сообщениях компании
	if actor.Role == domain.RoleCompany {
		s.notifySeeker(ctx, conv, message)
	}

	// Сообщение уже сохранено: сбой relay только логируется
	if err := s.publisher.Publish(ctx, conversationID.String(), message); err != nil {
		s.log.Warn("Failed to publish message to relay", "conversation_id", conversationID, "message_id", message.ID, "error", err)
	}

	return message, nil
}

func (s *messageService) notifySeeker(ctx context.Context, conv *domain.Conversation, message *domain.Message) {
	company, err := s.companyRepo.GetByID(ctx, conv.CompanyID)
	if err != nil {
		s.log.Warn("Failed to load company for notification", "company_id", conv.CompanyID, "error", err)
		return
	}
	if err := s.notification.NotifyNewMessage(ctx, conv.UserID, company.Name, message.Content); err != nil {
		s.log.Warn("Failed to create message notification", "user_id", conv.UserID, "message_id", message.ID, "error", err)
	}
}

func (s *messageService) List(ctx context.Context, actor *domain.User, conversationID uuid.UUID) ([]*domain.Message, error) {
	if conversationID == uuid.Nil {
		return nil, apperrors.NewValidationError("conversationId is required")
	}

	conv, err := s.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsParticipant(actor) && actor.Role != domain.RoleAdmin {
		return nil, apperrors.ErrNotParticipant
	}

	return s.messageRepo.ListByConversation(ctx, conversationID)
}
