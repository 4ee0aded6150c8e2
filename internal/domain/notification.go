package domain

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// NotificationPreviewLength: сколько символов сообщения попадает в уведомление
const NotificationPreviewLength = 50

type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Content   string    `json:"content"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewMessageNotificationContent формирует текст уведомления о сообщении от компании
func NewMessageNotificationContent(companyName, content string) string {
	preview := content
	if utf8.RuneCountInString(content) > NotificationPreviewLength {
		preview = string([]rune(content)[:NotificationPreviewLength]) + "..."
	}
	return fmt.Sprintf("New message from %s: %s", companyName, preview)
}
