package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"job_board/internal/domain"
	apperrors "job_board/pkg/errors"
	"job_board/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ConversationRepository interface {
	// GetOrCreate атомарно возвращает переписку пары (user, company), создавая ее при отсутствии.
	// created == true, если строка была вставлена этим вызовом.
	GetOrCreate(ctx context.Context, userID, companyID uuid.UUID) (conv *domain.Conversation, created bool, err error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Conversation, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*domain.Conversation, error)
}

type conversationRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewConversationRepository(db *pgxpool.Pool, log logger.Logger) ConversationRepository {
	return &conversationRepository{db: db, log: log}
}

func (r *conversationRepository) GetOrCreate(ctx context.Context, userID, companyID uuid.UUID) (*domain.Conversation, bool, error) {
	conv := &domain.Conversation{
		ID:        uuid.New(),
		UserID:    userID,
		CompanyID: companyID,
		CreatedAt: time.Now(),
	}

	// Уникальность пары гарантирует ограничение UNIQUE(user_id, company_id):
	// при одновременном первом контакте с обеих сторон вставка пройдет только у одного
	err := r.db.QueryRow(ctx, `
		INSERT INTO conversations (id, user_id, company_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, company_id) DO NOTHING
		RETURNING created_at
	`, conv.ID, conv.UserID, conv.CompanyID, conv.CreatedAt).Scan(&conv.CreatedAt)
	if err == nil {
		return conv, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.log.Error("Failed to create conversation", "error", err, "user_id", userID, "company_id", companyID)
		return nil, false, fmt.Errorf("failed to create conversation: %w", err)
	}

	existing := &domain.Conversation{}
	err = r.db.QueryRow(ctx, `
		SELECT id, user_id, company_id, created_at
		FROM conversations
		WHERE user_id = $1 AND company_id = $2
	`, userID, companyID).Scan(&existing.ID, &existing.UserID, &existing.CompanyID, &existing.CreatedAt)
	if err != nil {
		r.log.Error("Failed to load existing conversation", "error", err, "user_id", userID, "company_id", companyID)
		return nil, false, fmt.Errorf("failed to load conversation: %w", err)
	}

	return existing, false, nil
}

func (r *conversationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	conv := &domain.Conversation{}
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, company_id, created_at
		FROM conversations
		WHERE id = $1
	`, id).Scan(&conv.ID, &conv.UserID, &conv.CompanyID, &conv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrConversationNotFound
		}
		r.log.Error("Failed to get conversation", "error", err, "conversation_id", id)
		return nil, err
	}
	return conv, nil
}

// listQuery выбирает переписки вместе с собеседниками и последним сообщением
const listConversationsQuery = `
	SELECT cv.id, cv.user_id, cv.company_id, cv.created_at,
	       u.name, u.email, c.name,
	       lm.id, lm.sender_id, lm.content, lm.created_at
	FROM conversations cv
	JOIN users u ON u.id = cv.user_id
	JOIN companies c ON c.id = cv.company_id
	LEFT JOIN LATERAL (
		SELECT m.id, m.sender_id, m.content, m.created_at
		FROM messages m
		WHERE m.conversation_id = cv.id
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT 1
	) lm ON TRUE
`

func (r *conversationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Conversation, error) {
	return r.list(ctx, listConversationsQuery+` WHERE cv.user_id = $1 ORDER BY cv.created_at DESC`, userID)
}

func (r *conversationRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*domain.Conversation, error) {
	return r.list(ctx, listConversationsQuery+` WHERE cv.company_id = $1 ORDER BY cv.created_at DESC`, companyID)
}

func (r *conversationRepository) list(ctx context.Context, query string, arg uuid.UUID) ([]*domain.Conversation, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		r.log.Error("Failed to list conversations", "error", err)
		return nil, err
	}
	defer rows.Close()

	conversations := make([]*domain.Conversation, 0)
	for rows.Next() {
		conv := &domain.Conversation{User: &domain.UserRef{}, Company: &domain.CompanyRef{}}
		var (
			lastID        *uuid.UUID
			lastSenderID  *uuid.UUID
			lastContent   *string
			lastCreatedAt *time.Time
		)
		err := rows.Scan(
			&conv.ID, &conv.UserID, &conv.CompanyID, &conv.CreatedAt,
			&conv.User.Name, &conv.User.Email, &conv.Company.Name,
			&lastID, &lastSenderID, &lastContent, &lastCreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan conversation", "error", err)
			return nil, err
		}
		conv.User.ID = conv.UserID
		conv.Company.ID = conv.CompanyID

		if lastID != nil {
			conv.LastMessage = &domain.Message{
				ID:             *lastID,
				ConversationID: conv.ID,
				SenderID:       *lastSenderID,
				Content:        *lastContent,
				CreatedAt:      *lastCreatedAt,
			}
		}
		conversations = append(conversations, conv)
	}

	return conversations, rows.Err()
}
