package domain

import (
	"time"

	"github.com/google/uuid"
)

// Типы событий журнала аудита
const (
	AuditUserRegistered      = "user_registered"
	AuditLoginFailed         = "login_failed"
	AuditConversationCreated = "conversation_created"
)

type AuditLog struct {
	ID             int64                  `json:"id"`
	EventTime      time.Time              `json:"eventTime"`
	ActorUserID    *uuid.UUID             `json:"actorUserId,omitempty"`
	ActorRole      string                 `json:"actorRole,omitempty"`
	ConversationID *uuid.UUID             `json:"conversationId,omitempty"`
	EventType      string                 `json:"eventType"`
	Payload        map[string]interface{} `json:"payload"`
}
