package ai

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/nghiaht/iroha-companion/internal/config"
	"github.com/nghiaht/iroha-companion/internal/model/chat"
	"github.com/nghiaht/iroha-companion/internal/model/persona"
)

// Service relays persona conversations to the Groq chat-completion API.
type Service struct {
	client      *openai.Client
	personas    persona.Store
	cfg         config.AIConfig
	countTokens func(string) int
}

// Reply is a completed model response.
type Reply struct {
	Content      string
	Model        string
	FinishReason string
	Duration     time.Duration
}

// NewService creates the relay service around a shared API client.
func NewService(client *openai.Client, personas persona.Store, cfg config.AIConfig) *Service {
	return &Service{
		client:      client,
		personas:    personas,
		cfg:         cfg,
		countTokens: newTokenCounter(),
	}
}

// StreamingEnabled reports whether responses should be streamed to clients.
func (s *Service) StreamingEnabled() bool {
	return s.cfg.StreamResponse
}

// Client returns the underlying API client so the voice relay can share it.
func (s *Service) Client() *openai.Client {
	return s.client
}

// GenerateReply runs one completion for the session. When the primary model
// is unavailable the request is retried once on the fallback model.
func (s *Service) GenerateReply(ctx context.Context, sessionID uint, p *persona.Persona, history []chat.Message, userMessage string) (*Reply, error) {
	request := s.buildRequest(p, history, userMessage, false)

	start := time.Now()
	response, err := s.client.CreateChatCompletion(ctx, request)
	if err != nil && s.cfg.FallbackModel != "" && s.cfg.FallbackModel != request.Model {
		log.Printf("[ai] model %s failed for session=%d, retrying with %s: %v",
			request.Model, sessionID, s.cfg.FallbackModel, err)
		request.Model = s.cfg.FallbackModel
		response, err = s.client.CreateChatCompletion(ctx, request)
	}
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	choice := response.Choices[0]
	reply := &Reply{
		Content:      choice.Message.Content,
		Model:        response.Model,
		FinishReason: string(choice.FinishReason),
		Duration:     time.Since(start),
	}

	log.Printf("[ai] generated reply for session=%d, persona=%s, model=%s, length=%d",
		sessionID, p.ID, reply.Model, len(reply.Content))
	return reply, nil
}

// StreamReply opens a streaming completion. The caller owns the stream and
// must close it.
func (s *Service) StreamReply(ctx context.Context, p *persona.Persona, history []chat.Message, userMessage string) (*openai.ChatCompletionStream, error) {
	if !s.StreamingEnabled() {
		return nil, fmt.Errorf("streaming disabled in configuration")
	}

	request := s.buildRequest(p, history, userMessage, true)
	stream, err := s.client.CreateChatCompletionStream(ctx, request)
	if err != nil && s.cfg.FallbackModel != "" && s.cfg.FallbackModel != request.Model {
		log.Printf("[ai] streaming model %s failed, retrying with %s: %v",
			request.Model, s.cfg.FallbackModel, err)
		request.Model = s.cfg.FallbackModel
		stream, err = s.client.CreateChatCompletionStream(ctx, request)
	}
	if err != nil {
		return nil, fmt.Errorf("chat completion stream failed: %w", err)
	}
	return stream, nil
}

func (s *Service) buildRequest(p *persona.Persona, history []chat.Message, userMessage string, stream bool) openai.ChatCompletionRequest {
	systemPrompt := BuildSystemPrompt(p)

	budget := s.cfg.MaxContextTokens - s.countTokens(systemPrompt) - s.countTokens(userMessage)
	trimmed := trimHistory(history, budget, s.countTokens)

	messages := make([]openai.ChatCompletionMessage, 0, len(trimmed)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, msg := range trimmed {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMessage,
	})

	request := openai.ChatCompletionRequest{
		Model:       s.cfg.Model,
		Messages:    messages,
		Temperature: 0.8,
		TopP:        0.9,
		MaxTokens:   800,
		Stream:      stream,
	}

	if s.cfg.Temperature != nil {
		request.Temperature = float32(*s.cfg.Temperature)
	}
	if s.cfg.TopP != nil {
		request.TopP = float32(*s.cfg.TopP)
	}
	if s.cfg.MaxTokens != nil {
		request.MaxTokens = *s.cfg.MaxTokens
	}

	// Persona tuning wins over global configuration.
	if p.Temperature != nil {
		request.Temperature = *p.Temperature
	}
	if p.MaxTokens != nil {
		request.MaxTokens = *p.MaxTokens
	}

	return request
}
