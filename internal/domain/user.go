package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	Role         string     `json:"role"`
	CompanyID    *uuid.UUID `json:"companyId,omitempty"`
	Company      *Company   `json:"company,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// UserRef: краткое представление пользователя во вложенных ответах
type UserRef struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email,omitempty"`
	Role  string    `json:"role,omitempty"`
}

const (
	RoleSeeker  = "SEEKER"
	RoleCompany = "COMPANY"
	RoleAdmin   = "ADMIN"
)

func IsValidRole(role string) bool {
	switch role {
	case RoleSeeker, RoleCompany, RoleAdmin:
		return true
	}
	return false
}

// ActsForCompany: может ли пользователь писать от имени компании
func (u *User) ActsForCompany(companyID uuid.UUID) bool {
	return u.Role == RoleCompany && u.CompanyID != nil && *u.CompanyID == companyID
}
