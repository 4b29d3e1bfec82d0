package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Server.Addr != ":8000" {
		t.Fatalf("expected default addr :8000, got %q", cfg.Server.Addr)
	}
	if cfg.AI.Enabled() {
		t.Fatal("relay must be disabled without an API key")
	}
	if cfg.AI.Model != "llama-3.3-70b-versatile" {
		t.Fatalf("unexpected default model %q", cfg.AI.Model)
	}
	if cfg.AI.FallbackModel != "llama-3.1-8b-instant" {
		t.Fatalf("unexpected fallback model %q", cfg.AI.FallbackModel)
	}
	if cfg.AI.MaxContextTokens != 6000 {
		t.Fatalf("unexpected context budget %d", cfg.AI.MaxContextTokens)
	}
	if !cfg.AI.StreamResponse {
		t.Fatal("streaming must default to enabled")
	}
	if cfg.Voice.TTSModel != "playai-tts" || cfg.Voice.STTModel != "whisper-large-v3" {
		t.Fatalf("unexpected voice models %q/%q", cfg.Voice.TTSModel, cfg.Voice.STTModel)
	}
	if cfg.Voice.DefaultSpeed != 1.05 {
		t.Fatalf("unexpected default speed %f", cfg.Voice.DefaultSpeed)
	}
	if cfg.Database.Path != "iroha_chat.db" {
		t.Fatalf("unexpected database path %q", cfg.Database.Path)
	}
	if cfg.Redis.Enabled() {
		t.Fatal("redis must be disabled without an address")
	}
}

func TestLoadPortVariants(t *testing.T) {
	t.Setenv("PORT", "9090")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("expected :9090, got %q", cfg.Server.Addr)
	}

	t.Setenv("PORT", "127.0.0.1:7000")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:7000" {
		t.Fatalf("expected host:port preserved, got %q", cfg.Server.Addr)
	}
}

func TestVoiceEnabledRequiresCredentials(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk_test")
	t.Setenv("VOICE_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.Voice.Enabled {
		t.Fatal("voice must be enabled with credentials present")
	}

	t.Setenv("VOICE_ENABLED", "false")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Voice.Enabled {
		t.Fatal("VOICE_ENABLED=false must win")
	}
}

func TestInvalidNumericEnv(t *testing.T) {
	t.Setenv("GROQ_TEMPERATURE", "hot")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid GROQ_TEMPERATURE")
	}
}
