package chat

import (
	"context"
	"errors"
	"fmt"
	"log"

	chatmodel "github.com/nghiaht/iroha-companion/internal/model/chat"
	"github.com/nghiaht/iroha-companion/internal/model/persona"
	"github.com/nghiaht/iroha-companion/internal/repository"
)

var (
	// ErrSessionNotFound reports a missing or deleted session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrPersonaRequired reports a create request without a known persona.
	ErrPersonaRequired = errors.New("persona is required")
)

const autoTitleLimit = 50

// TranscriptCache holds recent transcripts. Implementations may be nil-backed
// at call sites; the service tolerates a nil cache.
type TranscriptCache interface {
	GetHistory(ctx context.Context, sessionID uint) ([]chatmodel.Message, error)
	SetHistory(ctx context.Context, sessionID uint, messages []chatmodel.Message) error
	DeleteHistory(ctx context.Context, sessionID uint) error
}

// Service owns session and message persistence.
type Service struct {
	sessions *repository.SessionRepository
	messages *repository.MessageRepository
	personas persona.Store
	cache    TranscriptCache
}

// NewService wires the persistence layer. cache may be nil.
func NewService(sessions *repository.SessionRepository, messages *repository.MessageRepository, personas persona.Store, cache TranscriptCache) *Service {
	return &Service{
		sessions: sessions,
		messages: messages,
		personas: personas,
		cache:    cache,
	}
}

// CreateSession starts a new conversation for the given persona.
func (s *Service) CreateSession(ctx context.Context, personaID, title string) (*chatmodel.Session, error) {
	if personaID == "" {
		personaID = s.personas.Default().ID
	}
	if _, ok := s.personas.FindByID(personaID); !ok {
		return nil, fmt.Errorf("%w: unknown persona %q", ErrPersonaRequired, personaID)
	}

	if title == "" {
		title = chatmodel.DefaultTitle
	}

	session := &chatmodel.Session{Title: title, Persona: personaID}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	log.Printf("[chat] created session=%d persona=%s", session.ID, personaID)
	return session, nil
}

// GetSession loads one session with its message count.
func (s *Service) GetSession(ctx context.Context, id uint) (*chatmodel.Session, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	count, err := s.messages.CountBySession(ctx, id)
	if err != nil {
		return nil, err
	}
	session.MessageCount = count
	return session, nil
}

// ListSessions returns sessions newest-first with message counts attached.
func (s *Service) ListSessions(ctx context.Context, includeArchived bool) ([]chatmodel.Session, error) {
	sessions, err := s.sessions.List(ctx, includeArchived)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return sessions, nil
	}

	ids := make([]uint, len(sessions))
	for i, session := range sessions {
		ids[i] = session.ID
	}

	counts, err := s.sessions.CountMessages(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		sessions[i].MessageCount = counts[sessions[i].ID]
	}
	return sessions, nil
}

// RenameSession sets a user-chosen title, disabling further auto-titling.
func (s *Service) RenameSession(ctx context.Context, id uint, title string) (*chatmodel.Session, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	session.Title = title
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// DeleteSession archives the session, or removes it and its messages when
// permanent is set.
func (s *Service) DeleteSession(ctx context.Context, id uint, permanent bool) error {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}

	if permanent {
		if err := s.sessions.Delete(ctx, id); err != nil {
			return err
		}
	} else {
		if err := s.sessions.Archive(ctx, id); err != nil {
			return err
		}
	}

	s.invalidateCache(ctx, id)
	log.Printf("[chat] deleted session=%d permanent=%t", id, permanent)
	return nil
}

// ClearMessages wipes a session's transcript while keeping the session
// itself, so the conversation can restart from a clean slate.
func (s *Service) ClearMessages(ctx context.Context, id uint) error {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}

	if err := s.messages.DeleteBySession(ctx, id); err != nil {
		return err
	}

	s.invalidateCache(ctx, id)
	log.Printf("[chat] cleared messages for session=%d", id)
	return nil
}

// SaveMessage appends one turn to a session, touches the session's
// updated-at ordering and titles a fresh session after its first user
// message.
func (s *Service) SaveMessage(ctx context.Context, message *chatmodel.Message) error {
	session, err := s.sessions.FindByID(ctx, message.SessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}

	if err := s.messages.Create(ctx, message); err != nil {
		return err
	}

	if message.Role == chatmodel.RoleUser && session.Title == chatmodel.DefaultTitle {
		session.Title = autoTitle(message.Content)
	}
	// Save also refreshes UpdatedAt so the session list stays recency-ordered.
	if err := s.sessions.Save(ctx, session); err != nil {
		return err
	}

	s.invalidateCache(ctx, message.SessionID)
	return nil
}

// LoadTranscript returns a session's messages oldest-first, through the
// cache when one is configured.
func (s *Service) LoadTranscript(ctx context.Context, sessionID uint) ([]chatmodel.Message, error) {
	if s.cache != nil {
		cached, err := s.cache.GetHistory(ctx, sessionID)
		if err != nil {
			log.Printf("[chat] history cache read failed for session=%d: %v", sessionID, err)
		} else if cached != nil {
			return cached, nil
		}
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	messages, err := s.messages.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetHistory(ctx, sessionID, messages); err != nil {
			log.Printf("[chat] history cache write failed for session=%d: %v", sessionID, err)
		}
	}
	return messages, nil
}

func (s *Service) invalidateCache(ctx context.Context, sessionID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteHistory(ctx, sessionID); err != nil {
		log.Printf("[chat] history cache invalidation failed for session=%d: %v", sessionID, err)
	}
}

func autoTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= autoTitleLimit {
		return content
	}
	return string(runes[:autoTitleLimit]) + "..."
}
