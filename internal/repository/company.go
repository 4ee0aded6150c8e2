package repository

import (
	"context"
	"errors"

	"job_board/internal/domain"
	apperrors "job_board/pkg/errors"
	"job_board/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CompanyRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Company, error)
}

type companyRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewCompanyRepository(db *pgxpool.Pool, log logger.Logger) CompanyRepository {
	return &companyRepository{db: db, log: log}
}

func (r *companyRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	company := &domain.Company{}
	err := r.db.QueryRow(ctx, `
		SELECT id, name, profile, created_at
		FROM companies
		WHERE id = $1
	`, id).Scan(&company.ID, &company.Name, &company.Profile, &company.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCompanyNotFound
		}
		r.log.Error("Failed to get company", "error", err, "company_id", id)
		return nil, err
	}
	return company, nil
}
