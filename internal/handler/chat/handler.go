package chat

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/bytedance/sonic/decoder"
	"github.com/go-chi/chi/v5"

	"github.com/nghiaht/iroha-companion/internal/analysis/sentiment"
	chatmodel "github.com/nghiaht/iroha-companion/internal/model/chat"
	"github.com/nghiaht/iroha-companion/internal/model/persona"
	aiservice "github.com/nghiaht/iroha-companion/internal/service/ai"
	chatservice "github.com/nghiaht/iroha-companion/internal/service/chat"
	"github.com/nghiaht/iroha-companion/pkg/utils"
)

// AIService is the completion surface the relay endpoint needs.
type AIService interface {
	GenerateReply(ctx context.Context, sessionID uint, p *persona.Persona, history []chatmodel.Message, userMessage string) (*aiservice.Reply, error)
}

// Handler serves the chat relay endpoint.
type Handler struct {
	chatSvc  *chatservice.Service
	ai       AIService
	personas persona.Store
}

// New creates a chat handler.
func New(chatSvc *chatservice.Service, ai AIService, personas persona.Store) *Handler {
	return &Handler{chatSvc: chatSvc, ai: ai, personas: personas}
}

// RegisterRoutes registers the relay route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/session", h.handleChat)
}

type chatRequest struct {
	SessionID uint   `json:"sessionId"`
	Message   string `json:"message"`
	PersonaID string `json:"personaId"`
}

type personaInfo struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

type replyMetadata struct {
	Model          string  `json:"model"`
	FinishReason   string  `json:"finishReason,omitempty"`
	DurationMS     int64   `json:"durationMs"`
	Sentiment      string  `json:"sentiment"`
	SuggestedSpeed float32 `json:"suggestedSpeed"`
	Voice          string  `json:"voice,omitempty"`
}

type chatResponse struct {
	Response  string        `json:"response"`
	SessionID uint          `json:"sessionId"`
	Title     string        `json:"title"`
	Persona   personaInfo   `json:"persona"`
	Metadata  replyMetadata `json:"metadata"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload chatRequest
	if err := decoder.NewStreamDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message is required")
		return
	}

	ctx := r.Context()

	session, err := h.resolveSession(ctx, payload)
	if err != nil {
		h.respondSessionError(w, err)
		return
	}

	p, ok := h.personas.FindByID(session.Persona)
	if !ok {
		p = h.personas.Default()
	}

	history, err := h.chatSvc.LoadTranscript(ctx, session.ID)
	if err != nil {
		h.respondSessionError(w, err)
		return
	}

	reply, err := h.ai.GenerateReply(ctx, session.ID, &p, history, payload.Message)
	if err != nil {
		log.Printf("[chat] upstream completion failed for session=%d: %v", session.ID, err)
		// Upstream details stay out of client responses.
		utils.RespondError(w, http.StatusBadGateway, "AI service is temporarily unavailable")
		return
	}

	userMsg := &chatmodel.Message{
		SessionID: session.ID,
		Role:      chatmodel.RoleUser,
		Content:   payload.Message,
	}
	if err := h.chatSvc.SaveMessage(ctx, userMsg); err != nil {
		log.Printf("[chat] failed to save user message for session=%d: %v", session.ID, err)
	}

	assistantMsg := &chatmodel.Message{
		SessionID:  session.ID,
		Role:       chatmodel.RoleAssistant,
		Content:    reply.Content,
		VoiceUsed:  p.VoiceID,
		ResponseMS: reply.Duration.Milliseconds(),
	}
	if err := h.chatSvc.SaveMessage(ctx, assistantMsg); err != nil {
		log.Printf("[chat] failed to save assistant message for session=%d: %v", session.ID, err)
	}

	mood := sentiment.Analyze(payload.Message, reply.Content)

	refreshed, err := h.chatSvc.GetSession(ctx, session.ID)
	if err == nil {
		session = refreshed
	}

	utils.RespondJSON(w, http.StatusOK, chatResponse{
		Response:  reply.Content,
		SessionID: session.ID,
		Title:     session.Title,
		Persona: personaInfo{
			Key:    p.ID,
			Name:   p.Name,
			Avatar: p.Avatar,
		},
		Metadata: replyMetadata{
			Model:          reply.Model,
			FinishReason:   reply.FinishReason,
			DurationMS:     reply.Duration.Milliseconds(),
			Sentiment:      string(mood.Sentiment),
			SuggestedSpeed: mood.Speed,
			Voice:          p.VoiceID,
		},
	})
}

func (h *Handler) resolveSession(ctx context.Context, payload chatRequest) (*chatmodel.Session, error) {
	if payload.SessionID == 0 {
		return h.chatSvc.CreateSession(ctx, payload.PersonaID, "")
	}
	return h.chatSvc.GetSession(ctx, payload.SessionID)
}

func (h *Handler) respondSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatservice.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, chatservice.ErrPersonaRequired):
		utils.RespondError(w, http.StatusBadRequest, "persona not found")
	default:
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
