package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultChatTitle is the title of a conversation before one is derived
// from its first user message.
const DefaultChatTitle = "New Chat"

type Chat struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    int       `json:"user_id" gorm:"not null;index"`
	User      User      `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	Title     string    `json:"title" gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;autoCreateTime"`
}
