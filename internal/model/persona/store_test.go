package persona

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "personas.toml")

	content := `
[[personas]]
id = "sakura"
name = "Sakura"
title = "cheerful classmate"
tone = "warm"
system_prompt = "You are Sakura."
opening_line = "Ohayou!"
voice_id = "Celeste-PlayAI"
traits = ["cheerful", "curious"]
temperature = 0.7
max_tokens = 600

[[personas]]
id = "rin"
name = "Rin"
voice_id = "Quinn-PlayAI"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write persona file: %v", err)
	}

	personas, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load persona file: %v", err)
	}
	if len(personas) != 2 {
		t.Fatalf("expected 2 personas, got %d", len(personas))
	}

	sakura := personas[0]
	if sakura.ID != "sakura" || sakura.VoiceID != "Celeste-PlayAI" {
		t.Fatalf("unexpected first persona: %+v", sakura)
	}
	if sakura.Temperature == nil || *sakura.Temperature != 0.7 {
		t.Fatalf("expected temperature override, got %v", sakura.Temperature)
	}
	if sakura.MaxTokens == nil || *sakura.MaxTokens != 600 {
		t.Fatalf("expected max tokens override, got %v", sakura.MaxTokens)
	}
	if len(sakura.Traits) != 2 {
		t.Fatalf("expected 2 traits, got %d", len(sakura.Traits))
	}

	if personas[1].Temperature != nil {
		t.Fatal("absent temperature must stay nil")
	}
}

func TestLoadFileRejectsMissingID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "personas.toml")

	content := `
[[personas]]
name = "Nameless"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write persona file: %v", err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for persona without id")
	}
}

func TestMemoryStoreLookup(t *testing.T) {
	store := NewMemoryStore(Seed())

	if _, ok := store.FindByID("iroha"); !ok {
		t.Fatal("expected built-in iroha persona")
	}
	if _, ok := store.FindByID("missing"); ok {
		t.Fatal("unexpected persona hit")
	}
	if store.Default().ID != "iroha" {
		t.Fatalf("expected iroha as default, got %s", store.Default().ID)
	}
}
