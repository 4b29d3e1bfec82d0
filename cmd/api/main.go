package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nghiaht/iroha-companion/internal/cache"
	"github.com/nghiaht/iroha-companion/internal/config"
	"github.com/nghiaht/iroha-companion/internal/handler"
	chatmodel "github.com/nghiaht/iroha-companion/internal/model/chat"
	"github.com/nghiaht/iroha-companion/internal/model/persona"
	"github.com/nghiaht/iroha-companion/internal/platform/redis"
	"github.com/nghiaht/iroha-companion/internal/platform/sqlite"
	"github.com/nghiaht/iroha-companion/internal/repository"
	"github.com/nghiaht/iroha-companion/internal/service/ai"
	"github.com/nghiaht/iroha-companion/internal/service/chat"
	"github.com/nghiaht/iroha-companion/internal/service/voice"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	personaStore := loadPersonas(cfg.Personas)

	db, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&chatmodel.Session{}, &chatmodel.Message{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var transcriptCache chat.TranscriptCache
	if cfg.Redis.Enabled() {
		client, err := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Printf("warning: redis unavailable, transcripts served from sqlite only: %v", err)
		} else {
			ttl := time.Duration(cfg.Redis.HistoryTTLSeconds) * time.Second
			transcriptCache = cache.NewHistoryCache(client, ttl)
			log.Println("transcript cache enabled")
		}
	}

	chatService := chat.NewService(
		repository.NewSessionRepository(db),
		repository.NewMessageRepository(db),
		personaStore,
		transcriptCache,
	)

	var aiService *ai.Service
	var voiceService *voice.Service
	if cfg.AI.Enabled() {
		client, err := cfg.AI.NewClient()
		if err != nil {
			log.Fatalf("failed to create Groq client: %v", err)
		}
		aiService = ai.NewService(client, personaStore, cfg.AI)
		log.Println("chat relay initialized")

		if cfg.Voice.Enabled {
			voiceService = voice.NewService(aiService.Client(), cfg.Voice)
			log.Println("voice relay initialized")
		} else {
			log.Println("voice relay disabled by configuration")
		}
	} else {
		log.Println("GROQ_API_KEY not configured, relay endpoints disabled")
	}

	router := handler.NewRouter(personaStore, chatService, aiService, voiceService)

	startServer(ctx, cfg.Server, router)
}

func loadPersonas(cfg config.PersonaConfig) persona.Store {
	if cfg.File == "" {
		return persona.NewMemoryStore(persona.Seed())
	}

	personas, err := persona.LoadFile(cfg.File)
	if err != nil {
		log.Printf("warning: failed to load persona file, using built-in personas: %v", err)
		return persona.NewMemoryStore(persona.Seed())
	}

	log.Printf("loaded %d personas from %s", len(personas), cfg.File)
	return persona.NewMemoryStore(personas)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("iroha companion backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
