package voice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sashabaranov/go-openai"

	"github.com/nghiaht/iroha-companion/internal/analysis/sentiment"
	chatmodel "github.com/nghiaht/iroha-companion/internal/model/chat"
	"github.com/nghiaht/iroha-companion/internal/model/persona"
	voicemodel "github.com/nghiaht/iroha-companion/internal/model/voice"
	aiservice "github.com/nghiaht/iroha-companion/internal/service/ai"
	chatservice "github.com/nghiaht/iroha-companion/internal/service/chat"
)

// AIService is the completion surface the realtime voice loop needs.
type AIService interface {
	StreamingEnabled() bool
	GenerateReply(ctx context.Context, sessionID uint, p *persona.Persona, history []chatmodel.Message, userMessage string) (*aiservice.Reply, error)
	StreamReply(ctx context.Context, p *persona.Persona, history []chatmodel.Message, userMessage string) (*openai.ChatCompletionStream, error)
}

// WebSocketHandler drives the realtime voice conversation loop: audio in,
// transcript and synthesized reply out.
type WebSocketHandler struct {
	voiceSvc     VoiceService
	ai           AIService
	chatSvc      *chatservice.Service
	personaStore persona.Store
	upgrader     websocket.Upgrader
	pingInterval time.Duration
}

// NewWebSocketHandler creates the websocket handler.
func NewWebSocketHandler(voiceSvc VoiceService, ai AIService, chatSvc *chatservice.Service, personaStore persona.Store) *WebSocketHandler {
	return &WebSocketHandler{
		voiceSvc:     voiceSvc,
		ai:           ai,
		chatSvc:      chatSvc,
		personaStore: personaStore,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		pingInterval: 54 * time.Second,
	}
}

// RegisterWebSocketRoutes registers the websocket route.
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// AudioMessage carries one uploaded audio chunk.
type AudioMessage struct {
	AudioData  []byte `json:"audioData"`
	Format     string `json:"format"`
	Language   string `json:"language"`
	IsFinal    bool   `json:"isFinal"`
	ChunkIndex int    `json:"chunkIndex"`
}

// TextMessage carries a typed user message.
type TextMessage struct {
	Text string `json:"text"`
}

// ConfigMessage adjusts per-connection settings.
type ConfigMessage struct {
	Language   string   `json:"language"`
	Voice      string   `json:"voice"`
	Speed      *float32 `json:"speed,omitempty"`
	TTSEnabled *bool    `json:"ttsEnabled,omitempty"`
	StreamMode *bool    `json:"streamMode,omitempty"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type connectionState struct {
	sessionID   uint
	persona     *persona.Persona
	language    string
	voice       string
	speed       float32
	ttsEnabled  bool
	streamMode  bool
	audioFormat string
	buffer      bytes.Buffer
}

func newConnectionState(sessionID uint, p *persona.Persona) *connectionState {
	return &connectionState{
		sessionID:  sessionID,
		persona:    p,
		language:   "en",
		voice:      p.VoiceID,
		ttsEnabled: true,
		streamMode: true,
	}
}

func (s *connectionState) sessionIDString() string {
	return strconv.FormatUint(uint64(s.sessionID), 10)
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "sessionID")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	session, err := h.chatSvc.GetSession(r.Context(), uint(id))
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	p, ok := h.personaStore.FindByID(session.Persona)
	if !ok {
		p = h.personaStore.Default()
	}

	state := newConnectionState(session.ID, &p)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[websocket] new connection for session=%d", session.ID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	go h.pingLoop(ctx, conn)

	h.sendInfo(conn, state, map[string]any{
		"type":     "connected",
		"persona":  p.ID,
		"voice":    state.voice,
		"language": state.language,
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, payload, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("[websocket] read error: %v", err)
				}
				return
			}

			conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			var msg inboundMessage
			if err := sonic.Unmarshal(payload, &msg); err != nil {
				h.sendError(conn, "invalid message frame")
				continue
			}

			if msg.SessionID != "" && msg.SessionID != state.sessionIDString() {
				h.sendError(conn, "session mismatch")
				continue
			}

			h.handleMessage(ctx, conn, state, &msg)
		}
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, msg *inboundMessage) {
	switch msg.Type {
	case "audio":
		h.handleAudioMessage(ctx, conn, state, msg.Data)
	case "text":
		h.handleTextMessage(ctx, conn, state, msg.Data)
	case "config":
		h.handleConfigMessage(conn, state, msg.Data)
	default:
		h.sendError(conn, "unsupported message type: "+msg.Type)
	}
}

func (h *WebSocketHandler) handleAudioMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, raw []byte) {
	var audio AudioMessage
	if err := sonic.Unmarshal(raw, &audio); err != nil {
		h.sendError(conn, "invalid audio payload")
		return
	}

	if len(audio.AudioData) > 0 {
		state.buffer.Write(audio.AudioData)
	}
	if audio.Format != "" {
		state.audioFormat = audio.Format
	}
	if audio.Language != "" {
		state.language = audio.Language
	}

	if audio.IsFinal || !state.streamMode {
		h.processBufferedAudio(ctx, conn, state)
	}
}

func (h *WebSocketHandler) processBufferedAudio(ctx context.Context, conn *websocket.Conn, state *connectionState) {
	audioBytes := state.buffer.Bytes()
	state.buffer.Reset()

	if len(audioBytes) == 0 {
		return
	}

	format := state.audioFormat
	if format == "" {
		format = "wav"
	}

	log.Printf("[websocket] transcribing session=%d format=%s bytes=%d", state.sessionID, format, len(audioBytes))

	resp, err := h.voiceSvc.Transcribe(ctx, voicemodel.STTRequest{
		SessionID: state.sessionIDString(),
		AudioData: bytes.NewReader(audioBytes),
		Format:    format,
		Language:  state.language,
	})
	if err != nil {
		h.sendError(conn, "speech recognition failed")
		return
	}

	h.sendInfo(conn, state, map[string]any{
		"type":    "stt",
		"text":    resp.Text,
		"isFinal": true,
	})

	if strings.TrimSpace(resp.Text) == "" {
		return
	}

	if err := h.processUserText(ctx, conn, state, resp.Text); err != nil {
		h.sendError(conn, err.Error())
	}
}

func (h *WebSocketHandler) handleTextMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, raw []byte) {
	var text TextMessage
	if err := sonic.Unmarshal(raw, &text); err != nil {
		h.sendError(conn, "invalid text payload")
		return
	}
	if text.Text == "" {
		return
	}

	if err := h.processUserText(ctx, conn, state, text.Text); err != nil {
		h.sendError(conn, err.Error())
	}
}

func (h *WebSocketHandler) processUserText(ctx context.Context, conn *websocket.Conn, state *connectionState, userText string) error {
	history, err := h.chatSvc.LoadTranscript(ctx, state.sessionID)
	if err != nil {
		return fmt.Errorf("load transcript failed: %w", err)
	}

	userMsg := &chatmodel.Message{
		SessionID: state.sessionID,
		Role:      chatmodel.RoleUser,
		Content:   userText,
	}
	if err := h.chatSvc.SaveMessage(ctx, userMsg); err != nil {
		return fmt.Errorf("save user message failed: %w", err)
	}

	h.sendInfo(conn, state, map[string]any{
		"type": "user",
		"text": userText,
	})

	start := time.Now()
	replyText, err := h.generateReply(ctx, conn, state, history, userText)
	if err != nil {
		return err
	}

	mood := sentiment.Analyze(userText, replyText)

	assistantMsg := &chatmodel.Message{
		SessionID:  state.sessionID,
		Role:       chatmodel.RoleAssistant,
		Content:    replyText,
		VoiceUsed:  state.voice,
		ResponseMS: time.Since(start).Milliseconds(),
	}
	if err := h.chatSvc.SaveMessage(ctx, assistantMsg); err != nil {
		log.Printf("[websocket] save assistant message failed: %v", err)
	}

	if state.ttsEnabled && replyText != "" {
		h.sendTTS(ctx, conn, state, replyText, mood.Speed)
	}

	return nil
}

func (h *WebSocketHandler) generateReply(ctx context.Context, conn *websocket.Conn, state *connectionState, history []chatmodel.Message, userText string) (string, error) {
	if !h.ai.StreamingEnabled() {
		reply, err := h.ai.GenerateReply(ctx, state.sessionID, state.persona, history, userText)
		if err != nil {
			return "", fmt.Errorf("reply generation failed: %w", err)
		}
		h.sendInfo(conn, state, map[string]any{
			"type":    "ai",
			"text":    reply.Content,
			"isFinal": true,
		})
		return reply.Content, nil
	}

	stream, err := h.ai.StreamReply(ctx, state.persona, history, userText)
	if err != nil {
		return "", fmt.Errorf("reply streaming failed: %w", err)
	}
	defer stream.Close()

	var builder strings.Builder
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", fmt.Errorf("reply stream recv failed: %w", recvErr)
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		builder.WriteString(delta)
		h.sendInfo(conn, state, map[string]any{
			"type": "ai_delta",
			"text": delta,
		})
	}

	text := builder.String()
	h.sendInfo(conn, state, map[string]any{
		"type":    "ai",
		"text":    text,
		"isFinal": true,
	})
	return text, nil
}

func (h *WebSocketHandler) sendTTS(ctx context.Context, conn *websocket.Conn, state *connectionState, text string, speed float32) {
	if state.speed != 0 {
		speed = state.speed
	}

	resp, err := h.voiceSvc.Synthesize(ctx, voicemodel.TTSRequest{
		SessionID: state.sessionIDString(),
		Text:      text,
		Voice:     state.voice,
		Speed:     speed,
	})
	if err != nil {
		log.Printf("[websocket] TTS failed: %v", err)
		h.sendInfo(conn, state, map[string]any{
			"type":  "tts",
			"error": "synthesis failed",
		})
		return
	}

	if len(resp.AudioData) == 0 {
		log.Printf("[websocket] TTS returned empty audio session=%d", state.sessionID)
		return
	}

	h.sendInfo(conn, state, map[string]any{
		"type":      "tts",
		"audioData": base64.StdEncoding.EncodeToString(resp.AudioData),
		"format":    resp.Format,
		"voice":     resp.Voice,
		"speed":     resp.Speed,
		"isFinal":   true,
	})
}

func (h *WebSocketHandler) handleConfigMessage(conn *websocket.Conn, state *connectionState, raw []byte) {
	var cfg ConfigMessage
	if err := sonic.Unmarshal(raw, &cfg); err != nil {
		h.sendError(conn, "invalid config payload")
		return
	}

	if cfg.Language != "" {
		state.language = cfg.Language
	}
	if cfg.Voice != "" {
		state.voice = cfg.Voice
	}
	if cfg.Speed != nil {
		state.speed = *cfg.Speed
	}
	if cfg.TTSEnabled != nil {
		state.ttsEnabled = *cfg.TTSEnabled
	}
	if cfg.StreamMode != nil {
		state.streamMode = *cfg.StreamMode
	}

	h.sendInfo(conn, state, map[string]any{
		"type":       "config",
		"voice":      state.voice,
		"language":   state.language,
		"tts":        state.ttsEnabled,
		"streamMode": state.streamMode,
	})
}

func (h *WebSocketHandler) sendInfo(conn *websocket.Conn, state *connectionState, data map[string]any) {
	h.write(conn, outgoingMessage{
		Type:      "result",
		SessionID: state.sessionIDString(),
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

func (h *WebSocketHandler) sendError(conn *websocket.Conn, message string) {
	h.write(conn, outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	})
}

func (h *WebSocketHandler) write(conn *websocket.Conn, msg outgoingMessage) {
	payload, err := sonic.Marshal(msg)
	if err != nil {
		log.Printf("[websocket] marshal frame failed: %v", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.Printf("[websocket] write failed: %v", err)
	}
}

// pingLoop keeps idle connections alive. WriteControl is safe to call
// concurrently with the data writes issued from the read loop; WriteMessage
// is not.
func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(10 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}
