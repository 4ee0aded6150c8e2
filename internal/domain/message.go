package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message неизменяемо после создания
type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversationId"`
	SenderID       uuid.UUID `json:"senderId"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
	Sender         *UserRef  `json:"sender,omitempty"`
}

// MessageEvent: полезная нагрузка события new-message и тела POST /emit-message
type MessageEvent struct {
	ConversationID string   `json:"conversationId"`
	Message        *Message `json:"message"`
}
