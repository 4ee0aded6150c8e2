package domain

import (
	"time"

	"github.com/google/uuid"
)

// Conversation: пара соискатель/компания. Не более одной на пару,
// уникальность обеспечивается ограничением UNIQUE(user_id, company_id).
type Conversation struct {
	ID        uuid.UUID   `json:"id"`
	UserID    uuid.UUID   `json:"userId"`
	CompanyID uuid.UUID   `json:"companyId"`
	CreatedAt time.Time   `json:"createdAt"`
	User      *UserRef    `json:"user,omitempty"`
	Company   *CompanyRef `json:"company,omitempty"`
	// LastMessage заполняется только в списках
	LastMessage *Message `json:"lastMessage,omitempty"`
}

// IsParticipant: является ли пользователь участником переписки
func (c *Conversation) IsParticipant(u *User) bool {
	if u == nil {
		return false
	}
	return u.ID == c.UserID || u.ActsForCompany(c.CompanyID)
}

// ApplicantConversation: отклик на вакансию компании и связанная с ним переписка (если есть)
type ApplicantConversation struct {
	Application     *Application  `json:"application"`
	Conversation    *Conversation `json:"conversation"`
	HasConversation bool          `json:"hasConversation"`
}
