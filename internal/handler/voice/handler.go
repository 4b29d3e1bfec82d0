package voice

import (
	"context"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bytedance/sonic/decoder"
	"github.com/go-chi/chi/v5"

	"github.com/nghiaht/iroha-companion/internal/model/persona"
	voicemodel "github.com/nghiaht/iroha-companion/internal/model/voice"
	chatservice "github.com/nghiaht/iroha-companion/internal/service/chat"
	"github.com/nghiaht/iroha-companion/pkg/utils"
)

// VoiceService abstracts the audio relay for testing.
type VoiceService interface {
	Synthesize(ctx context.Context, req voicemodel.TTSRequest) (*voicemodel.TTSResponse, error)
	Transcribe(ctx context.Context, req voicemodel.STTRequest) (*voicemodel.STTResponse, error)
	Config() voicemodel.Config
}

// Handler serves the voice relay routes.
type Handler struct {
	voiceSvc     VoiceService
	chatSvc      *chatservice.Service
	personaStore persona.Store
}

// New creates a voice handler.
func New(voiceSvc VoiceService, chatSvc *chatservice.Service, personaStore persona.Store) *Handler {
	return &Handler{
		voiceSvc:     voiceSvc,
		chatSvc:      chatSvc,
		personaStore: personaStore,
	}
}

// RegisterRoutes registers voice routes. The realtime websocket endpoint is
// served only when the full voice pipeline is available.
func (h *Handler) RegisterRoutes(r chi.Router, ai AIService) {
	r.Route("/voice", func(voiceRouter chi.Router) {
		voiceRouter.Get("/groq/config", h.handleConfig)
		voiceRouter.Post("/groq/stream", h.handleSynthesize)

		voiceRouter.Post("/transcribe", h.handleTranscribe)
		voiceRouter.Post("/transcribe/{sessionID}", h.handleTranscribeWithSession)

		voiceRouter.Get("/health", h.handleHealth)

		if h.websocketAvailable(ai) {
			NewWebSocketHandler(h.voiceSvc, ai, h.chatSvc, h.personaStore).RegisterWebSocketRoutes(voiceRouter)
		} else {
			voiceRouter.Get("/ws/{sessionID}", func(w http.ResponseWriter, _ *http.Request) {
				utils.RespondError(w, http.StatusNotImplemented, "voice websocket not available")
			})
		}
	})
}

func (h *Handler) websocketAvailable(ai AIService) bool {
	return h.voiceSvc != nil && ai != nil && h.chatSvc != nil && h.personaStore != nil
}

func (h *Handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.voiceSvc.Config())
}

func (h *Handler) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var req voicemodel.TTSRequest
	if err := decoder.NewStreamDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	if strings.TrimSpace(req.Voice) == "" {
		if resolved := h.resolveVoiceFromContext(r.Context(), req.SessionID); resolved != "" {
			req.Voice = resolved
		}
	}

	resp, err := h.voiceSvc.Synthesize(r.Context(), req)
	if err != nil {
		log.Printf("[voice] TTS error: %v", err)
		utils.RespondError(w, http.StatusBadGateway, "speech synthesis failed")
		return
	}

	writeAudio(w, resp)
}

func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	h.processTranscribe(w, r, "")
}

func (h *Handler) handleTranscribeWithSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionID is required")
		return
	}
	h.processTranscribe(w, r, sessionID)
}

func (h *Handler) processTranscribe(w http.ResponseWriter, r *http.Request, overrideSessionID string) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	sessionID := overrideSessionID
	if sessionID == "" {
		sessionID = r.FormValue("sessionId")
	}
	if sessionID == "" {
		sessionID = "default"
	}

	req := voicemodel.STTRequest{
		SessionID: sessionID,
		AudioData: file,
		Format:    inferAudioFormat(header.Filename),
		Language:  r.FormValue("language"),
	}

	resp, err := h.voiceSvc.Transcribe(r.Context(), req)
	if err != nil {
		log.Printf("[voice] STT error: %v", err)
		utils.RespondError(w, http.StatusBadGateway, "speech recognition failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "voice",
	})
}

// resolveVoiceFromContext picks the persona voice of the session, so TTS
// requests without an explicit voice sound like the session's companion.
func (h *Handler) resolveVoiceFromContext(ctx context.Context, sessionID string) string {
	if h.chatSvc == nil || h.personaStore == nil {
		return ""
	}

	id, err := strconv.ParseUint(strings.TrimSpace(sessionID), 10, 32)
	if err != nil || id == 0 {
		return ""
	}

	session, err := h.chatSvc.GetSession(ctx, uint(id))
	if err != nil {
		return ""
	}

	p, ok := h.personaStore.FindByID(session.Persona)
	if !ok {
		return ""
	}
	return p.VoiceID
}

func writeAudio(w http.ResponseWriter, resp *voicemodel.TTSResponse) {
	if len(resp.AudioData) == 0 {
		utils.RespondJSON(w, http.StatusOK, resp)
		return
	}

	format := resp.Format
	if format == "" {
		format = "octet-stream"
	}
	w.Header().Set("Content-Type", "audio/"+format)
	w.Header().Set("Content-Length", strconv.Itoa(len(resp.AudioData)))
	w.Header().Set("Content-Disposition", "attachment; filename=speech."+format)
	w.Header().Set("X-Voice-Used", resp.Voice)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(resp.AudioData); err != nil {
		log.Printf("failed to write audio response: %v", err)
	}
}

func inferAudioFormat(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mp3":
		return "mp3"
	case ".wav":
		return "wav"
	case ".webm":
		return "webm"
	case ".m4a":
		return "m4a"
	case ".flac":
		return "flac"
	default:
		return "wav"
	}
}
