package ai

import (
	"strings"
	"testing"

	"github.com/nghiaht/iroha-companion/internal/model/chat"
)

func wordCounter(text string) int {
	return len(strings.Fields(text))
}

func TestTrimHistoryKeepsRecentTurns(t *testing.T) {
	messages := []chat.Message{
		{Role: chat.RoleUser, Content: "one two three four five six seven eight"},
		{Role: chat.RoleAssistant, Content: "nine ten eleven twelve"},
		{Role: chat.RoleUser, Content: "thirteen fourteen"},
	}

	trimmed := trimHistory(messages, 12, wordCounter)
	if len(trimmed) != 2 {
		t.Fatalf("expected 2 surviving messages, got %d", len(trimmed))
	}
	if trimmed[0].Content != messages[1].Content {
		t.Fatalf("expected oldest surviving message to be the assistant turn, got %q", trimmed[0].Content)
	}
	if trimmed[1].Content != messages[2].Content {
		t.Fatalf("newest message must survive trimming, got %q", trimmed[1].Content)
	}
}

func TestTrimHistoryEmptyBudget(t *testing.T) {
	messages := []chat.Message{
		{Role: chat.RoleUser, Content: "hello"},
	}

	if trimmed := trimHistory(messages, 0, wordCounter); trimmed != nil {
		t.Fatalf("expected nil for zero budget, got %d messages", len(trimmed))
	}
}

func TestTrimHistoryFitsEverything(t *testing.T) {
	messages := []chat.Message{
		{Role: chat.RoleUser, Content: "hi"},
		{Role: chat.RoleAssistant, Content: "hello there"},
	}

	trimmed := trimHistory(messages, 100, wordCounter)
	if len(trimmed) != len(messages) {
		t.Fatalf("expected all messages to survive, got %d of %d", len(trimmed), len(messages))
	}
}
