package sentiment

import "testing"

func TestAnalyzeSadUserFlatReply(t *testing.T) {
	decision := Analyze("hôm nay mình buồn quá", "kể cho mình nghe chuyện gì đã xảy ra nhé")
	if decision.Sentiment != Negative {
		t.Fatalf("expected negative sentiment, got %s", decision.Sentiment)
	}
	if decision.Speed >= 1.05 {
		t.Fatalf("expected slowed speech for a heavy exchange, got %f", decision.Speed)
	}
}

func TestAnalyzeUpbeatReply(t *testing.T) {
	decision := Analyze("guess what happened", "That's amazing!! I'm so happy for you!")
	if decision.Sentiment != Positive {
		t.Fatalf("expected positive sentiment, got %s", decision.Sentiment)
	}
	if decision.Speed <= 1.05 {
		t.Fatalf("expected faster speech for an upbeat reply, got %f", decision.Speed)
	}
}

func TestAnalyzeNeutralDefaults(t *testing.T) {
	decision := Analyze("what time is it", "it is almost noon")
	if decision.Sentiment != Neutral {
		t.Fatalf("expected neutral sentiment, got %s", decision.Sentiment)
	}
	if decision.Speed != 1.05 {
		t.Fatalf("expected default speed, got %f", decision.Speed)
	}
}
