package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Session is a chat conversation with the sequence assistant.
type Session struct {
	ID                string            `gorm:"primaryKey;size:36" json:"id"`
	Title             string            `json:"title"`
	IsActive          bool              `gorm:"default:true" json:"is_active"`
	Context           datatypes.JSONMap `gorm:"type:jsonb" json:"context"`
	CurrentSequenceID *string           `gorm:"size:36" json:"current_sequence_id,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`

	Messages []Message `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

// Message is an append-only entry in a session.
type Message struct {
	ID        string            `gorm:"primaryKey;size:36" json:"id"`
	SessionID string            `gorm:"size:36;not null;index" json:"session_id"`
	Role      string            `gorm:"size:16;not null" json:"role"`
	Content   string            `gorm:"type:text" json:"content"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	CreatedAt time.Time         `gorm:"index" json:"created_at"`
}
