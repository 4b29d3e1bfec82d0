package ai

import (
	"log"

	"github.com/pkoukk/tiktoken-go"

	"github.com/nghiaht/iroha-companion/internal/model/chat"
)

// trimHistory drops the oldest turns until the transcript fits the token
// budget. The most recent turns always survive, an empty budget keeps
// nothing.
func trimHistory(messages []chat.Message, budget int, countTokens func(string) int) []chat.Message {
	if len(messages) == 0 || budget <= 0 {
		return nil
	}

	total := 0
	start := len(messages)
	for i := len(messages) - 1; i >= 0; i-- {
		cost := countTokens(messages[i].Content) + 4 // per-message wrapping overhead
		if total+cost > budget {
			break
		}
		total += cost
		start = i
	}

	if start == len(messages) {
		return nil
	}
	return messages[start:]
}

// newTokenCounter returns a cl100k_base counter, falling back to a byte
// heuristic when the encoding tables are unavailable.
func newTokenCounter() func(string) int {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		log.Printf("[ai] tiktoken unavailable, using byte estimate: %v", err)
		return func(text string) int {
			return len(text)/4 + 1
		}
	}

	return func(text string) int {
		return len(encoding.Encode(text, nil, nil))
	}
}
