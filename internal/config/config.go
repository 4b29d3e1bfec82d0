package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Config aggregates every section of the service configuration.
type Config struct {
	Server   ServerConfig
	AI       AIConfig
	Voice    VoiceConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Personas PersonaConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	voice, err := loadVoiceConfig(ai)
	if err != nil {
		return nil, err
	}

	redisCfg, err := loadRedisConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		AI:       ai,
		Voice:    voice,
		Database: DatabaseConfig{Path: getEnvOrDefault("DATABASE_PATH", "iroha_chat.db")},
		Redis:    redisCfg,
		Personas: PersonaConfig{File: strings.TrimSpace(os.Getenv("PERSONA_FILE"))},
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8000"
	}

	if strings.Contains(port, ":") {
		// Accept ":8000" or "127.0.0.1:8000" as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig describes the Groq chat-completion relay.
type AIConfig struct {
	APIKey           string
	BaseURL          string
	Model            string
	FallbackModel    string
	Temperature      *float64
	TopP             *float64
	MaxTokens        *int
	MaxContextTokens int
	StreamResponse   bool
}

// Enabled reports whether the required credentials are present.
func (c AIConfig) Enabled() bool {
	return c.APIKey != "" && c.Model != ""
}

// NewClient builds an API client against the configured OpenAI-compatible
// endpoint. Groq serves the same wire format at its own base URL.
func (c AIConfig) NewClient() (*openai.Client, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("GROQ_API_KEY or model configuration missing")
	}

	clientCfg := openai.DefaultConfig(c.APIKey)
	if c.BaseURL != "" {
		clientCfg.BaseURL = c.BaseURL
	}

	return openai.NewClientWithConfig(clientCfg), nil
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("GROQ_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("GROQ_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("GROQ_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	stream, err := parseBoolEnv("GROQ_STREAM", true)
	if err != nil {
		return AIConfig{}, err
	}

	contextTokens := 6000
	if override, err := parseOptionalIntEnv("GROQ_MAX_CONTEXT_TOKENS"); err != nil {
		return AIConfig{}, err
	} else if override != nil && *override > 0 {
		contextTokens = *override
	}

	return AIConfig{
		APIKey:           strings.TrimSpace(os.Getenv("GROQ_API_KEY")),
		BaseURL:          getEnvOrDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		Model:            getEnvOrDefault("GROQ_MODEL", "llama-3.3-70b-versatile"),
		FallbackModel:    getEnvOrDefault("GROQ_FALLBACK_MODEL", "llama-3.1-8b-instant"),
		Temperature:      temperature,
		TopP:             topP,
		MaxTokens:        maxTokens,
		MaxContextTokens: contextTokens,
		StreamResponse:   stream,
	}, nil
}

// VoiceConfig describes the TTS/STT relay. It shares the Groq API key with
// the chat relay.
type VoiceConfig struct {
	TTSModel        string
	STTModel        string
	DefaultVoice    string
	DefaultSpeed    float32
	DefaultLanguage string
	Timeout         int // seconds
	Enabled         bool
}

func loadVoiceConfig(ai AIConfig) (VoiceConfig, error) {
	enabled, err := parseBoolEnv("VOICE_ENABLED", true)
	if err != nil {
		return VoiceConfig{}, err
	}

	speed, err := parseOptionalFloat32Env("VOICE_TTS_SPEED")
	if err != nil {
		return VoiceConfig{}, err
	}
	ttsSpeed := float32(1.05)
	if speed != nil {
		ttsSpeed = *speed
	}

	timeout, err := parseOptionalIntEnv("VOICE_TIMEOUT")
	if err != nil {
		return VoiceConfig{}, err
	}
	timeoutSeconds := 45
	if timeout != nil {
		timeoutSeconds = *timeout
	}

	return VoiceConfig{
		TTSModel:        getEnvOrDefault("VOICE_TTS_MODEL", "playai-tts"),
		STTModel:        getEnvOrDefault("VOICE_STT_MODEL", "whisper-large-v3"),
		DefaultVoice:    getEnvOrDefault("VOICE_TTS_VOICE", "Arista-PlayAI"),
		DefaultSpeed:    ttsSpeed,
		DefaultLanguage: getEnvOrDefault("VOICE_STT_LANGUAGE", "en"),
		Timeout:         timeoutSeconds,
		Enabled:         enabled && ai.Enabled(),
	}, nil
}

// DatabaseConfig describes the sqlite store.
type DatabaseConfig struct {
	Path string
}

// RedisConfig describes the optional transcript cache.
type RedisConfig struct {
	Addr              string
	Password          string
	DB                int
	HistoryTTLSeconds int
}

// Enabled reports whether a cache address was configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

func loadRedisConfig() (RedisConfig, error) {
	db := 0
	if override, err := parseOptionalIntEnv("REDIS_DB"); err != nil {
		return RedisConfig{}, err
	} else if override != nil {
		db = *override
	}

	ttl := 60
	if override, err := parseOptionalIntEnv("REDIS_HISTORY_TTL_SECONDS"); err != nil {
		return RedisConfig{}, err
	} else if override != nil && *override > 0 {
		ttl = *override
	}

	return RedisConfig{
		Addr:              strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		Password:          os.Getenv("REDIS_PASSWORD"),
		DB:                db,
		HistoryTTLSeconds: ttl,
	}, nil
}

// PersonaConfig points at an optional persona definition file.
type PersonaConfig struct {
	File string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalFloat32Env(key string) (*float32, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	result := float32(val)
	return &result, nil
}
