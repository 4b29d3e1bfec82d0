package session

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic/decoder"
	"github.com/go-chi/chi/v5"

	chatservice "github.com/nghiaht/iroha-companion/internal/service/chat"
	"github.com/nghiaht/iroha-companion/pkg/utils"
)

// Handler serves session management routes.
type Handler struct {
	chatSvc *chatservice.Service
}

// New creates a session handler.
func New(chatSvc *chatservice.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes registers session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreate)
	r.Get("/sessions", h.handleList)
	r.Get("/sessions/{sessionID}", h.handleGet)
	r.Put("/sessions/{sessionID}/title", h.handleRename)
	r.Delete("/sessions/{sessionID}", h.handleDelete)
	r.Delete("/sessions/{sessionID}/messages", h.handleClearMessages)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PersonaID string `json:"personaId"`
		Title     string `json:"title"`
	}
	if err := decoder.NewStreamDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.chatSvc.CreateSession(r.Context(), payload.PersonaID, payload.Title)
	if err != nil {
		h.respondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	includeArchived, _ := strconv.ParseBool(r.URL.Query().Get("includeArchived"))

	sessions, err := h.chatSvc.ListSessions(r.Context(), includeArchived)
	if err != nil {
		h.respondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(w, r)
	if !ok {
		return
	}

	session, err := h.chatSvc.GetSession(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	messages, err := h.chatSvc.LoadTranscript(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"session":  session,
		"messages": messages,
	})
}

func (h *Handler) handleRename(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(w, r)
	if !ok {
		return
	}

	var payload struct {
		Title string `json:"title"`
	}
	if err := decoder.NewStreamDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Title == "" {
		utils.RespondError(w, http.StatusBadRequest, "title is required")
		return
	}

	session, err := h.chatSvc.RenameSession(r.Context(), id, payload.Title)
	if err != nil {
		h.respondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(w, r)
	if !ok {
		return
	}

	permanent, _ := strconv.ParseBool(r.URL.Query().Get("permanent"))
	if err := h.chatSvc.DeleteSession(r.Context(), id, permanent); err != nil {
		h.respondError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"deleted":   id,
		"permanent": permanent,
	})
}

func (h *Handler) handleClearMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(w, r)
	if !ok {
		return
	}

	if err := h.chatSvc.ClearMessages(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"sessionId": id,
		"cleared":   true,
	})
}

func parseSessionID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "sessionID")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		utils.RespondError(w, http.StatusBadRequest, "invalid session id")
		return 0, false
	}
	return uint(id), true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatservice.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, chatservice.ErrPersonaRequired):
		utils.RespondError(w, http.StatusBadRequest, "persona not found")
	default:
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
