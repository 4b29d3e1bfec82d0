package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/nghiaht/iroha-companion/internal/analysis/sentiment"
	chatmodel "github.com/nghiaht/iroha-companion/internal/model/chat"
	"github.com/nghiaht/iroha-companion/internal/model/persona"
	aiservice "github.com/nghiaht/iroha-companion/internal/service/ai"
	chatservice "github.com/nghiaht/iroha-companion/internal/service/chat"
	"github.com/nghiaht/iroha-companion/pkg/utils"
)

// AIService is the completion surface the SSE endpoint needs.
type AIService interface {
	StreamingEnabled() bool
	GenerateReply(ctx context.Context, sessionID uint, p *persona.Persona, history []chatmodel.Message, userMessage string) (*aiservice.Reply, error)
	StreamReply(ctx context.Context, p *persona.Persona, history []chatmodel.Message, userMessage string) (*openai.ChatCompletionStream, error)
}

// Handler streams chat replies over Server-Sent Events.
type Handler struct {
	ai       AIService
	chatSvc  *chatservice.Service
	personas persona.Store
}

// New creates a stream handler.
func New(ai AIService, chatSvc *chatservice.Service, personas persona.Store) *Handler {
	return &Handler{ai: ai, chatSvc: chatSvc, personas: personas}
}

// StreamResponse is one SSE frame.
type StreamResponse struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	SessionID uint   `json:"sessionId,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HandleStreamRequest runs one relay turn over SSE.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID uint, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	utils.SetupSSEHeaders(w)

	session, err := h.chatSvc.GetSession(ctx, sessionID)
	if err != nil {
		h.sendError(w, flusher, "session not found")
		return err
	}

	p, ok := h.personas.FindByID(session.Persona)
	if !ok {
		p = h.personas.Default()
	}

	history, err := h.chatSvc.LoadTranscript(ctx, session.ID)
	if err != nil {
		h.sendError(w, flusher, "failed to load conversation")
		return err
	}

	// Clients may have already persisted the user turn over REST.
	if !hasMatchingUserMessage(history, userMessage) {
		userMsg := &chatmodel.Message{
			SessionID: session.ID,
			Role:      chatmodel.RoleUser,
			Content:   userMessage,
		}
		if err := h.chatSvc.SaveMessage(ctx, userMsg); err != nil {
			log.Printf("[stream] failed to save user message: %v", err)
		}
	}

	h.send(w, flusher, StreamResponse{
		Event:     "start",
		SessionID: session.ID,
		Content:   p.Name,
	})

	start := time.Now()
	replyText, err := h.dispatchReply(ctx, w, flusher, session.ID, &p, history, userMessage)
	if err != nil {
		h.sendError(w, flusher, "reply generation failed")
		return err
	}

	mood := sentiment.Analyze(userMessage, replyText)

	assistantMsg := &chatmodel.Message{
		SessionID:  session.ID,
		Role:       chatmodel.RoleAssistant,
		Content:    replyText,
		VoiceUsed:  p.VoiceID,
		ResponseMS: time.Since(start).Milliseconds(),
	}
	if err := h.chatSvc.SaveMessage(ctx, assistantMsg); err != nil {
		log.Printf("[stream] failed to save assistant message: %v", err)
	}

	utils.SendSSEEvent(w, flusher, "sentiment", map[string]any{
		"sentiment":      mood.Sentiment,
		"suggestedSpeed": mood.Speed,
	})

	h.send(w, flusher, StreamResponse{
		Event:     "end",
		SessionID: session.ID,
		Finished:  true,
	})

	log.Printf("[stream] completed reply for session=%d, persona=%s", session.ID, p.ID)
	return nil
}

func (h *Handler) dispatchReply(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, sessionID uint, p *persona.Persona, history []chatmodel.Message, userMessage string) (string, error) {
	if !h.ai.StreamingEnabled() {
		reply, err := h.ai.GenerateReply(ctx, sessionID, p, history, userMessage)
		if err != nil {
			return "", err
		}
		h.send(w, flusher, StreamResponse{
			Event:     "message",
			SessionID: sessionID,
			Content:   reply.Content,
		})
		return reply.Content, nil
	}

	stream, err := h.ai.StreamReply(ctx, p, history, userMessage)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var builder strings.Builder
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", recvErr
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		builder.WriteString(delta)
		h.send(w, flusher, StreamResponse{
			Event:     "delta",
			SessionID: sessionID,
			Content:   delta,
		})
	}

	text := builder.String()
	h.send(w, flusher, StreamResponse{
		Event:     "message",
		SessionID: sessionID,
		Content:   text,
	})
	return text, nil
}

func hasMatchingUserMessage(messages []chatmodel.Message, content string) bool {
	if len(messages) == 0 {
		return false
	}

	last := messages[len(messages)-1]
	return last.Role == chatmodel.RoleUser && last.Content == content
}

func (h *Handler) send(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	utils.SendSSEChunk(w, flusher, response)
}

func (h *Handler) sendError(w http.ResponseWriter, flusher http.Flusher, message string) {
	h.send(w, flusher, StreamResponse{Event: "error", Error: message})
}
