package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/nghiaht/iroha-companion/internal/model/chat"
)

// MessageRepository persists chat messages.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository returns a repository bound to db.
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts one message.
func (r *MessageRepository) Create(ctx context.Context, message *chat.Message) error {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return fmt.Errorf("create message failed: %w", err)
	}
	return nil
}

// ListBySession returns a session's messages oldest-first.
func (r *MessageRepository) ListBySession(ctx context.Context, sessionID uint) ([]chat.Message, error) {
	var messages []chat.Message
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list messages for session %d failed: %w", sessionID, err)
	}
	return messages, nil
}

// DeleteBySession removes every message belonging to one session.
func (r *MessageRepository) DeleteBySession(ctx context.Context, sessionID uint) error {
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&chat.Message{}).Error
	if err != nil {
		return fmt.Errorf("delete messages for session %d failed: %w", sessionID, err)
	}
	return nil
}

// CountBySession reports the number of messages in one session.
func (r *MessageRepository) CountBySession(ctx context.Context, sessionID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&chat.Message{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count messages for session %d failed: %w", sessionID, err)
	}
	return count, nil
}
