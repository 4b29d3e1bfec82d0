package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"

	chatmodel "github.com/nghiaht/iroha-companion/internal/model/chat"
	"github.com/nghiaht/iroha-companion/internal/model/persona"
	"github.com/nghiaht/iroha-companion/internal/platform/sqlite"
	"github.com/nghiaht/iroha-companion/internal/repository"
	chatservice "github.com/nghiaht/iroha-companion/internal/service/chat"
)

func newTestRouter(t *testing.T) (*chi.Mux, *chatservice.Service) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := db.AutoMigrate(&chatmodel.Session{}, &chatmodel.Message{}); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	chatSvc := chatservice.NewService(
		repository.NewSessionRepository(db),
		repository.NewMessageRepository(db),
		persona.NewMemoryStore(persona.Seed()),
		nil,
	)

	r := chi.NewRouter()
	New(chatSvc).RegisterRoutes(r)
	return r, chatSvc
}

func do(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, router http.Handler, body string) uint {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/session", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var session chatmodel.Session
	if err := sonic.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return session.ID
}

func TestCreateThenFetchSession(t *testing.T) {
	router, _ := newTestRouter(t)

	id := createSession(t, router, `{"personaId":"iroha","title":"Homework help"}`)

	rec := do(t, router, http.MethodGet, fmt.Sprintf("/sessions/%d", id), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var response struct {
		Session  chatmodel.Session   `json:"session"`
		Messages []chatmodel.Message `json:"messages"`
	}
	if err := sonic.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response.Session.Title != "Homework help" {
		t.Fatalf("expected stored title, got %q", response.Session.Title)
	}
	if len(response.Messages) != 0 {
		t.Fatalf("expected empty transcript, got %d messages", len(response.Messages))
	}
}

func TestCreateSessionUnknownPersona(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/session", `{"personaId":"nobody"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRenameSession(t *testing.T) {
	router, _ := newTestRouter(t)
	id := createSession(t, router, `{"personaId":"iroha"}`)

	rec := do(t, router, http.MethodPut, fmt.Sprintf("/sessions/%d/title", id), `{"title":"Renamed"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var session chatmodel.Session
	if err := sonic.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.Title != "Renamed" {
		t.Fatalf("expected renamed title, got %q", session.Title)
	}
}

func TestDeleteRemovesFromList(t *testing.T) {
	router, _ := newTestRouter(t)
	keep := createSession(t, router, `{"personaId":"iroha"}`)
	drop := createSession(t, router, `{"personaId":"iroha"}`)

	rec := do(t, router, http.MethodDelete, fmt.Sprintf("/sessions/%d?permanent=true", drop), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodGet, "/sessions?includeArchived=true", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var response struct {
		Sessions []chatmodel.Session `json:"sessions"`
	}
	if err := sonic.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(response.Sessions) != 1 || response.Sessions[0].ID != keep {
		t.Fatalf("expected only session %d to remain, got %+v", keep, response.Sessions)
	}
}

func TestClearMessagesEmptiesTranscript(t *testing.T) {
	router, chatSvc := newTestRouter(t)
	id := createSession(t, router, `{"personaId":"iroha","title":"Keep me"}`)

	for _, turn := range []struct{ role, content string }{
		{chatmodel.RoleUser, "hello"},
		{chatmodel.RoleAssistant, "hi senpai"},
	} {
		err := chatSvc.SaveMessage(context.Background(), &chatmodel.Message{
			SessionID: id,
			Role:      turn.role,
			Content:   turn.content,
		})
		if err != nil {
			t.Fatalf("save message %q: %v", turn.content, err)
		}
	}

	rec := do(t, router, http.MethodDelete, fmt.Sprintf("/sessions/%d/messages", id), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, router, http.MethodGet, fmt.Sprintf("/sessions/%d", id), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var response struct {
		Session  chatmodel.Session   `json:"session"`
		Messages []chatmodel.Message `json:"messages"`
	}
	if err := sonic.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(response.Messages) != 0 {
		t.Fatalf("expected cleared transcript, got %d messages", len(response.Messages))
	}
	if response.Session.Title != "Keep me" {
		t.Fatalf("session must survive a clear, got title %q", response.Session.Title)
	}
}

func TestClearMessagesUnknownSession(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodDelete, "/sessions/999/messages", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDeleteUnknownSession(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodDelete, "/sessions/999", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestInvalidSessionID(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/sessions/abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
