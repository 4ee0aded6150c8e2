package domain

import (
	"time"

	"github.com/google/uuid"
)

type Company struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Profile   *string   `json:"profile,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// CompanyRef: краткое представление компании во вложенных ответах
type CompanyRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}
