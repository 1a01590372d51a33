package dao

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"zanmisante/zanmisante/sources/psql/models"
)

// ErrNotFound is returned when a record the caller referenced does not
// exist in the store.
var ErrNotFound = errors.New("not found")

// ChatDAO is the persistence boundary for conversations and their
// messages: a direct pass-through to Postgres, no caching, no buffering.
type ChatDAO struct {
	DB *gorm.DB
}

func NewChatDAO(db *gorm.DB) *ChatDAO {
	return &ChatDAO{DB: db}
}

// ListChats returns the user's conversations, most recent first.
func (dao *ChatDAO) ListChats(ctx context.Context, userID int) ([]models.Chat, error) {
	var chats []models.Chat
	err := dao.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&chats).Error
	if err != nil {
		return nil, err
	}
	return chats, nil
}

func (dao *ChatDAO) CreateChat(ctx context.Context, userID int, title string) (*models.Chat, error) {
	if title == "" {
		title = models.DefaultChatTitle
	}
	chat := models.Chat{
		ID:     uuid.New(),
		UserID: userID,
		Title:  title,
	}
	if err := dao.DB.WithContext(ctx).Create(&chat).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

func (dao *ChatDAO) RenameChat(ctx context.Context, chatID uuid.UUID, title string) error {
	res := dao.DB.WithContext(ctx).
		Model(&models.Chat{}).
		Where("id = ?", chatID).
		Update("title", title)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListMessages returns a conversation's messages in creation order.
func (dao *ChatDAO) ListMessages(ctx context.Context, chatID uuid.UUID) ([]models.Message, error) {
	var msgs []models.Message
	err := dao.DB.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (dao *ChatDAO) AppendMessage(ctx context.Context, chatID uuid.UUID, role, content string) (*models.Message, error) {
	msg := models.Message{
		ID:      uuid.New(),
		ChatID:  chatID,
		Role:    role,
		Content: content,
	}
	if err := dao.DB.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}
