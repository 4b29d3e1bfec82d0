package ai

import (
	"fmt"
	"strings"

	"github.com/nghiaht/iroha-companion/internal/model/persona"
)

// BuildSystemPrompt assembles the system message for a persona. The stored
// prompt carries the character voice, the generated tail pins the identity
// and conversation rules so the model stays in character across a long
// session.
func BuildSystemPrompt(p *persona.Persona) string {
	var builder strings.Builder

	if p.SystemPrompt != "" {
		builder.WriteString(strings.TrimSpace(p.SystemPrompt))
	} else {
		builder.WriteString(fmt.Sprintf("You are %s, %s.", p.Name, p.Title))
	}

	builder.WriteString("\n\nCharacter card:\n")
	builder.WriteString(fmt.Sprintf("- Name: %s\n", p.Name))
	if p.Title != "" {
		builder.WriteString(fmt.Sprintf("- Title: %s\n", p.Title))
	}
	if p.Tone != "" {
		builder.WriteString(fmt.Sprintf("- Tone: %s\n", p.Tone))
	}
	if len(p.Traits) > 0 {
		builder.WriteString(fmt.Sprintf("- Traits: %s\n", strings.Join(p.Traits, ", ")))
	}

	builder.WriteString("\nConversation rules:\n")
	builder.WriteString("- Stay in character at all times. Never mention being an AI or a language model.\n")
	builder.WriteString("- Keep replies conversational and short enough to read aloud, two to four sentences.\n")
	builder.WriteString("- Match the user's language. Answer Vietnamese in Vietnamese, English in English.\n")

	if p.OpeningLine != "" {
		builder.WriteString(fmt.Sprintf("\nOpening line reference: %s", p.OpeningLine))
	}

	return builder.String()
}
