package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/nghiaht/iroha-companion/internal/model/chat"
)

// SessionRepository persists chat sessions.
type SessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository returns a repository bound to db.
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session and fills in its generated ID.
func (r *SessionRepository) Create(ctx context.Context, session *chat.Session) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("create session failed: %w", err)
	}
	return nil
}

// FindByID loads one session. Returns nil, nil when the ID does not exist.
func (r *SessionRepository) FindByID(ctx context.Context, id uint) (*chat.Session, error) {
	var session chat.Session
	err := r.db.WithContext(ctx).First(&session, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find session %d failed: %w", id, err)
	}
	return &session, nil
}

// List returns sessions newest-first. Archived sessions are included only
// when includeArchived is set.
func (r *SessionRepository) List(ctx context.Context, includeArchived bool) ([]chat.Session, error) {
	query := r.db.WithContext(ctx).Model(&chat.Session{})
	if !includeArchived {
		query = query.Where("is_archived = ?", false)
	}

	var sessions []chat.Session
	if err := query.Order("updated_at DESC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions failed: %w", err)
	}
	return sessions, nil
}

// Save writes back a modified session.
func (r *SessionRepository) Save(ctx context.Context, session *chat.Session) error {
	if err := r.db.WithContext(ctx).Save(session).Error; err != nil {
		return fmt.Errorf("save session %d failed: %w", session.ID, err)
	}
	return nil
}

// Archive flips the archived flag without touching other columns.
func (r *SessionRepository) Archive(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&chat.Session{}).
		Where("id = ?", id).
		Update("is_archived", true)
	if result.Error != nil {
		return fmt.Errorf("archive session %d failed: %w", id, result.Error)
	}
	return nil
}

// Delete removes a session and, through the foreign key, its messages.
func (r *SessionRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&chat.Session{}, id).Error; err != nil {
		return fmt.Errorf("delete session %d failed: %w", id, err)
	}
	return nil
}

// CountMessages reports how many messages each listed session holds.
func (r *SessionRepository) CountMessages(ctx context.Context, sessionIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return counts, nil
	}

	type row struct {
		SessionID uint
		Total     int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&chat.Message{}).
		Select("session_id, COUNT(*) AS total").
		Where("session_id IN ?", sessionIDs).
		Group("session_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count session messages failed: %w", err)
	}

	for _, row := range rows {
		counts[row.SessionID] = row.Total
	}
	return counts, nil
}
