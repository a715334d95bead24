package chat

import (
	"time"

	"github.com/suPer8Hu/estate-chat/internal/property"
	"gorm.io/datatypes"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session is a conversation. UserID is zero for anonymous sessions.
type Session struct {
	ID        string    `json:"session_id"`
	UserID    uint64    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Message struct {
	ID          string              `json:"id"`
	Role        string              `json:"role"`
	Content     string              `json:"content"`
	Properties  []property.Property `json:"properties,omitempty"`
	Suggestions []string            `json:"suggestions,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// sessionRow and messageRow back CloudHistory.
type sessionRow struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	SessionID string    `gorm:"type:varchar(36);uniqueIndex;not null"`
	UserID    uint64    `gorm:"index;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (sessionRow) TableName() string { return "chat_sessions" }

type messageRow struct {
	ID          string                                 `gorm:"primaryKey;size:26"` // ULID
	SessionID   string                                 `gorm:"type:varchar(36);not null;index:idx_chat_msg_session_created,priority:1"`
	UserID      uint64                                 `gorm:"index;not null"`
	Role        string                                 `gorm:"type:varchar(16);not null"`
	Content     string                                 `gorm:"type:text;not null"`
	Properties  datatypes.JSONSlice[property.Property] `gorm:"type:json"`
	Suggestions datatypes.JSONSlice[string]            `gorm:"type:json"`
	CreatedAt   time.Time                              `gorm:"index:idx_chat_msg_session_created,priority:2"`
}

func (messageRow) TableName() string { return "chat_messages" }

func (r messageRow) message() Message {
	return Message{
		ID:          r.ID,
		Role:        r.Role,
		Content:     r.Content,
		Properties:  []property.Property(r.Properties),
		Suggestions: []string(r.Suggestions),
		CreatedAt:   r.CreatedAt,
	}
}
