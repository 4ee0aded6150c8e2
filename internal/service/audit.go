package service

import (
	"context"
	"time"

	"job_board/internal/domain"
	"job_board/internal/repository"
	"job_board/pkg/logger"

	"github.com/google/uuid"
)

// AuditService пишет журнал действий. Сбой записи не должен ломать основную операцию,
// поэтому Record только логирует ошибку.
type AuditService interface {
	Record(ctx context.Context, actor *domain.User, conversationID *uuid.UUID, eventType string, payload map[string]interface{})
}

type auditService struct {
	auditRepo repository.AuditRepository
	log       logger.Logger
}

func NewAuditService(auditRepo repository.AuditRepository, log logger.Logger) AuditService {
	return &auditService{
		auditRepo: auditRepo,
		log:       log,
	}
}

func (s *auditService) Record(ctx context.Context, actor *domain.User, conversationID *uuid.UUID, eventType string, payload map[string]interface{}) {
	if payload == nil {
		payload = make(map[string]interface{})
	}

	auditLog := &domain.AuditLog{
		EventTime:      time.Now(),
		ConversationID: conversationID,
		EventType:      eventType,
		Payload:        payload,
	}
	if actor != nil {
		id := actor.ID
		auditLog.ActorUserID = &id
		auditLog.ActorRole = actor.Role
	}

	if err := s.auditRepo.CreateLog(ctx, auditLog); err != nil {
		s.log.Warn("Audit event dropped", "event_type", eventType, "error", err)
	}
}
