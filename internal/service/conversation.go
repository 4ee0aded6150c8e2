package service

import (
	"context"

	"job_board/internal/domain"
	"job_board/internal/repository"
	apperrors "job_board/pkg/errors"
	"job_board/pkg/logger"

	"github.com/google/uuid"
)

type ConversationService interface {
	// GetOrCreate возвращает существующую переписку пары или создает новую (created == true)
	GetOrCreate(ctx context.Context, actor *domain.User, userID, companyID uuid.UUID) (*domain.Conversation, bool, error)
	ListForUser(ctx context.Context, actor *domain.User, userID uuid.UUID) ([]*domain.Conversation, error)
	// ListForCompany сопоставляет отклики на вакансии компании с существующими переписками
	ListForCompany(ctx context.Context, actor *domain.User, companyID uuid.UUID) ([]*domain.ApplicantConversation, error)
}

type conversationService struct {
	convRepo    repository.ConversationRepository
	userRepo    repository.UserRepository
	companyRepo repository.CompanyRepository
	appRepo     repository.ApplicationRepository
	audit       AuditService
	log         logger.Logger
}

func NewConversationService(
	convRepo repository.ConversationRepository,
	userRepo repository.UserRepository,
	companyRepo repository.CompanyRepository,
	appRepo repository.ApplicationRepository,
	audit AuditService,
	log logger.Logger,
) ConversationService {
	return &conversationService{
		convRepo:    convRepo,
		userRepo:    userRepo,
		companyRepo: companyRepo,
		appRepo:     appRepo,
		audit:       audit,
		log:         log,
	}
}

func (s *conversationService) GetOrCreate(ctx context.Context, actor *domain.User, userID, companyID uuid.UUID) (*domain.Conversation, bool, error) {
	if userID == uuid.Nil || companyID == uuid.Nil {
		return nil, false, apperrors.NewValidationError("userId and companyId are required")
	}
	if !canActFor(actor, userID, companyID) {
		return nil, false, apperrors.ErrForbidden
	}

	seeker, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	company, err := s.companyRepo.GetByID(ctx, companyID)
	if err != nil {
		return nil, false, err
	}

	conv, created, err := s.convRepo.GetOrCreate(ctx, userID, companyID)
	if err != nil {
		return nil, false, err
	}

	conv.User = &domain.UserRef{ID: seeker.ID, Name: seeker.Name, Email: seeker.Email}
	conv.Company = &domain.CompanyRef{ID: company.ID, Name: company.Name}

	if created {
		s.log.Info("Conversation created", "conversation_id", conv.ID, "user_id", userID, "company_id", companyID)
		convID := conv.ID
		s.audit.Record(ctx, actor, &convID, domain.AuditConversationCreated, map[string]interface{}{
			"user_id":    userID.String(),
			"company_id": companyID.String(),
		})
	}
	return conv, created, nil
}

func (s *conversationService) ListForUser(ctx context.Context, actor *domain.User, userID uuid.UUID) ([]*domain.Conversation, error) {
	if actor.ID != userID && actor.Role != domain.RoleAdmin {
		return nil, apperrors.ErrForbidden
	}
	return s.convRepo.ListByUser(ctx, userID)
}

func (s *conversationService) ListForCompany(ctx context.Context, actor *domain.User, companyID uuid.UUID) ([]*domain.ApplicantConversation, error) {
	if !actor.ActsForCompany(companyID) && actor.Role != domain.RoleAdmin {
		return nil, apperrors.ErrForbidden
	}

	applications, err := s.appRepo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	conversations, err := s.convRepo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	byUser := make(map[uuid.UUID]*domain.Conversation, len(conversations))
	for _, conv := range conversations {
		byUser[conv.UserID] = conv
	}

	// Один соискатель может откликнуться на несколько вакансий:
	// каждый отклик указывает на одну и ту же переписку
	result := make([]*domain.ApplicantConversation, 0, len(applications))
	for _, app := range applications {
		conv := byUser[app.UserID]
		result = append(result, &domain.ApplicantConversation{
			Application:     app,
			Conversation:    conv,
			HasConversation: conv != nil,
		})
	}

	return result, nil
}

// canActFor: actor является соискателем пары, представителем компании пары или администратором
func canActFor(actor *domain.User, userID, companyID uuid.UUID) bool {
	if actor == nil {
		return false
	}
	return actor.ID == userID || actor.ActsForCompany(companyID) || actor.Role == domain.RoleAdmin
}
