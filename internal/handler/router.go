package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chathandler "github.com/nghiaht/iroha-companion/internal/handler/chat"
	personahandler "github.com/nghiaht/iroha-companion/internal/handler/persona"
	sessionhandler "github.com/nghiaht/iroha-companion/internal/handler/session"
	streamhandler "github.com/nghiaht/iroha-companion/internal/handler/stream"
	voicehandler "github.com/nghiaht/iroha-companion/internal/handler/voice"
	middlewarepkg "github.com/nghiaht/iroha-companion/internal/middleware"
	personamodel "github.com/nghiaht/iroha-companion/internal/model/persona"
	aiservice "github.com/nghiaht/iroha-companion/internal/service/ai"
	chatservice "github.com/nghiaht/iroha-companion/internal/service/chat"
	voiceservice "github.com/nghiaht/iroha-companion/internal/service/voice"
	"github.com/nghiaht/iroha-companion/pkg/utils"
)

// NewRouter wires HTTP routes to core services. aiSvc and voiceSvc may be
// nil when the Groq credentials are missing; the affected routes then
// answer with service-unavailable instead of failing at startup.
func NewRouter(personas personamodel.Store, chatSvc *chatservice.Service, aiSvc *aiservice.Service, voiceSvc *voiceservice.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarepkg.CORS)

	r.Get("/", handleStatus(aiSvc, voiceSvc))

	personahandler.New(personas).RegisterRoutes(r)
	sessionhandler.New(chatSvc).RegisterRoutes(r)

	if aiSvc != nil {
		chathandler.New(chatSvc, aiSvc, personas).RegisterRoutes(r)
	} else {
		r.Post("/chat/session", func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondError(w, http.StatusServiceUnavailable, "chat relay unavailable")
		})
	}

	var streamH *streamhandler.Handler
	if aiSvc != nil {
		streamH = streamhandler.New(aiSvc, chatSvc, personas)
	}
	r.Get("/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
		if streamH == nil {
			utils.RespondError(w, http.StatusServiceUnavailable, "ai streaming unavailable")
			return
		}

		id, err := strconv.ParseUint(chi.URLParam(r, "sessionID"), 10, 32)
		if err != nil || id == 0 {
			utils.RespondError(w, http.StatusBadRequest, "invalid session id")
			return
		}

		userMessage := r.URL.Query().Get("message")
		if userMessage == "" {
			utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
			return
		}

		if err := streamH.HandleStreamRequest(r.Context(), w, uint(id), userMessage); err != nil {
			log.Printf("[stream] error handling request: %v", err)
		}
	})

	if voiceSvc != nil {
		var ai voicehandler.AIService
		if aiSvc != nil {
			ai = aiSvc
		}
		voicehandler.New(voiceSvc, chatSvc, personas).RegisterRoutes(r, ai)
	} else {
		r.Route("/voice", func(voiceRouter chi.Router) {
			voiceRouter.HandleFunc("/*", func(w http.ResponseWriter, _ *http.Request) {
				utils.RespondError(w, http.StatusServiceUnavailable, "voice relay unavailable")
			})
		})
	}

	return r
}

func handleStatus(aiSvc *aiservice.Service, voiceSvc *voiceservice.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"service": "iroha-companion",
			"status":  "ok",
			"chat":    aiSvc != nil,
			"voice":   voiceSvc != nil,
		})
	}
}
