package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"job_board/internal/domain"
	apperrors "job_board/pkg/errors"
	"job_board/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository interface {
	// Create сохраняет пользователя; если передана company, она создается в той же транзакции
	Create(ctx context.Context, user *domain.User, company *domain.Company) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type userRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewUserRepository(db *pgxpool.Pool, log logger.Logger) UserRepository {
	return &userRepository{db: db, log: log}
}

const selectUserColumns = `
	SELECT u.id, u.email, u.password_hash, u.name, u.role, u.company_id, u.created_at, u.updated_at,
	       c.id, c.name, c.profile, c.created_at
	FROM users u
	LEFT JOIN companies c ON c.id = u.company_id
`

func (r *userRepository) Create(ctx context.Context, user *domain.User, company *domain.Company) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.log.Error("Failed to begin transaction", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if company != nil {
		err = tx.QueryRow(ctx, `
			INSERT INTO companies (id, name, profile, created_at)
			VALUES ($1, $2, $3, $4)
			RETURNING created_at
		`, company.ID, company.Name, company.Profile, company.CreatedAt).Scan(&company.CreatedAt)
		if err != nil {
			r.log.Error("Failed to create company", "error", err, "name", company.Name)
			return fmt.Errorf("failed to create company: %w", err)
		}
		user.CompanyID = &company.ID
		user.Company = company
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, name, role, company_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`,
		user.ID, user.Email, user.PasswordHash, user.Name, user.Role, user.CompanyID,
		user.CreatedAt, user.UpdatedAt,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		// Код 23505 = unique_violation
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.log.Warn("User already exists (unique violation)", "email", user.Email, "constraint", pgErr.ConstraintName)
			return apperrors.ErrUserAlreadyExists
		}
		r.log.Error("Failed to create user", "error", err, "email", user.Email)
		return fmt.Errorf("failed to create user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		r.log.Error("Failed to commit user creation", "error", err)
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, selectUserColumns+` WHERE u.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		r.log.Error("Failed to get user by ID", "error", err)
		return nil, err
	}
	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	// Нормализация email (lowercase, trim)
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := scanUser(r.db.QueryRow(ctx, selectUserColumns+` WHERE u.email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		r.log.Error("Failed to get user by email", "error", err)
		return nil, err
	}
	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	user := &domain.User{}
	var (
		companyID        *uuid.UUID
		companyName      *string
		companyProfile   *string
		companyCreatedAt *time.Time
	)

	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.Role, &user.CompanyID,
		&user.CreatedAt, &user.UpdatedAt,
		&companyID, &companyName, &companyProfile, &companyCreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if companyID != nil && companyName != nil {
		user.Company = &domain.Company{
			ID:      *companyID,
			Name:    *companyName,
			Profile: companyProfile,
		}
		if companyCreatedAt != nil {
			user.Company.CreatedAt = *companyCreatedAt
		}
	}
	return user, nil
}
