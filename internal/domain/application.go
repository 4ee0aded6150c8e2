package domain

import (
	"time"

	"github.com/google/uuid"
)

type Application struct {
	ID        uuid.UUID `json:"id"`
	JobID     uuid.UUID `json:"jobId"`
	UserID    uuid.UUID `json:"userId"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	Job       *JobRef   `json:"job,omitempty"`
	User      *UserRef  `json:"user,omitempty"`
}

// JobRef: краткое представление вакансии
type JobRef struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}
