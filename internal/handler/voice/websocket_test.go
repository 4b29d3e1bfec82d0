package voice

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sashabaranov/go-openai"

	chatmodel "github.com/nghiaht/iroha-companion/internal/model/chat"
	"github.com/nghiaht/iroha-companion/internal/model/persona"
	aiservice "github.com/nghiaht/iroha-companion/internal/service/ai"
)

type stubAI struct{}

func (stubAI) StreamingEnabled() bool { return false }

func (stubAI) GenerateReply(ctx context.Context, sessionID uint, p *persona.Persona, history []chatmodel.Message, userMessage string) (*aiservice.Reply, error) {
	return &aiservice.Reply{
		Content:  "noted: " + userMessage,
		Model:    "llama-3.3-70b-versatile",
		Duration: time.Millisecond,
	}, nil
}

func (stubAI) StreamReply(ctx context.Context, p *persona.Persona, history []chatmodel.Message, userMessage string) (*openai.ChatCompletionStream, error) {
	return nil, errors.New("streaming disabled")
}

func dialTestSocket(t *testing.T, h *WebSocketHandler, sessionID uint) *websocket.Conn {
	t.Helper()

	r := chi.NewRouter()
	h.RegisterWebSocketRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + fmt.Sprintf("/ws/%d", sessionID)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) outgoingMessage {
	t.Helper()

	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var frame outgoingMessage
	if err := sonic.Unmarshal(payload, &frame); err != nil {
		t.Fatalf("corrupt frame %q: %v", payload, err)
	}
	return frame
}

func TestWebSocketFramesSurviveConcurrentPings(t *testing.T) {
	chatSvc, store := newChatService(t)
	session, err := chatSvc.CreateSession(context.Background(), "iroha", "")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	h := NewWebSocketHandler(&fakeVoiceService{}, stubAI{}, chatSvc, store)
	h.pingInterval = time.Millisecond

	conn := dialTestSocket(t, h, session.ID)
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	greeting := readFrame(t, conn)
	if greeting.Type != "result" {
		t.Fatalf("expected connected frame, got %+v", greeting)
	}

	const rounds = 5
	for i := 0; i < rounds; i++ {
		payload := fmt.Sprintf(`{"type":"text","data":{"text":"hello %d"}}`, i)
		if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
			t.Fatalf("write text frame %d: %v", i, err)
		}
	}

	replies := 0
	for replies < rounds {
		frame := readFrame(t, conn)
		if frame.Type == "error" {
			t.Fatalf("unexpected error frame: %+v", frame.Data)
		}
		data, ok := frame.Data.(map[string]any)
		if ok && data["type"] == "ai" {
			replies++
		}
	}
}
