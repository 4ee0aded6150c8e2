package repository

import (
	"context"

	"job_board/internal/domain"
	"job_board/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ApplicationRepository только читает: отклики создаются вне подсистемы сообщений
type ApplicationRepository interface {
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*domain.Application, error)
}

type applicationRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewApplicationRepository(db *pgxpool.Pool, log logger.Logger) ApplicationRepository {
	return &applicationRepository{db: db, log: log}
}

func (r *applicationRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*domain.Application, error) {
	query := `
		SELECT a.id, a.job_id, a.user_id, a.status, a.created_at,
		       j.title, u.name, u.email
		FROM applications a
		JOIN jobs j ON j.id = a.job_id
		JOIN users u ON u.id = a.user_id
		WHERE j.company_id = $1
		ORDER BY a.created_at DESC
	`

	rows, err := r.db.Query(ctx, query, companyID)
	if err != nil {
		r.log.Error("Failed to list applications", "error", err, "company_id", companyID)
		return nil, err
	}
	defer rows.Close()

	applications := make([]*domain.Application, 0)
	for rows.Next() {
		app := &domain.Application{Job: &domain.JobRef{}, User: &domain.UserRef{}}
		err := rows.Scan(
			&app.ID, &app.JobID, &app.UserID, &app.Status, &app.CreatedAt,
			&app.Job.Title, &app.User.Name, &app.User.Email,
		)
		if err != nil {
			r.log.Error("Failed to scan application", "error", err)
			return nil, err
		}
		app.Job.ID = app.JobID
		app.User.ID = app.UserID
		applications = append(applications, app)
	}

	return applications, rows.Err()
}
