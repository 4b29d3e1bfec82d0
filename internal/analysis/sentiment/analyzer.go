package sentiment

import (
	"strings"
)

// Label classifies the mood of a chat turn.
type Label string

const (
	Neutral  Label = "neutral"
	Positive Label = "positive"
	Negative Label = "negative"
)

// Decision carries the detected mood and a recommended speech rate for the
// voice relay. Upbeat replies are read slightly faster, heavy ones slower.
type Decision struct {
	Sentiment Label
	Speed     float32
	Score     int
}

var keywordBuckets = map[Label][]string{
	Positive: {
		"vui", "tuyệt", "thích", "yêu", "hay quá", "giỏi", "cảm ơn", "dễ thương",
		"happy", "great", "awesome", "amazing", "love", "thanks", "thank you",
		"haha", "lol", "yay", "wonderful", "excited", "cool", "nice",
	},
	Negative: {
		"buồn", "chán", "mệt", "khóc", "tệ", "ghét", "cô đơn", "thất vọng",
		"sad", "tired", "cry", "lonely", "upset", "hate", "depressed", "hurt",
		"angry", "annoyed", "terrible", "awful", "stressed", "worried",
	},
}

const exclamationBoost = 2

// Analyze infers the mood of an exchange from the user's message and the
// companion's reply. The reply wins ties; a flat reply falls back to the
// user's mood so the voice still matches the conversation.
func Analyze(userUtterance, replyUtterance string) Decision {
	replyScore := scoreText(replyUtterance)
	if replyScore.Score == 0 {
		if userScore := scoreText(userUtterance); userScore.Score > 0 {
			replyScore = userScore
		}
	}

	if replyScore.Score == 0 {
		return Decision{Sentiment: Neutral, Speed: 1.05}
	}

	speed := float32(1.05)
	switch replyScore.Sentiment {
	case Positive:
		speed = 1.1
		if replyScore.Score >= 9 {
			speed = 1.15
		}
	case Negative:
		speed = 0.95
	}

	return Decision{Sentiment: replyScore.Sentiment, Speed: speed, Score: replyScore.Score}
}

func scoreText(text string) Decision {
	normalized := strings.TrimSpace(strings.ToLower(text))
	if normalized == "" {
		return Decision{Sentiment: Neutral}
	}

	scores := make(map[Label]int)
	for label, keywords := range keywordBuckets {
		for _, word := range keywords {
			if strings.Contains(normalized, word) {
				scores[label] += 3
			}
		}
	}

	if exclamations := strings.Count(text, "!"); exclamations > 0 {
		scores[Positive] += exclamations * exclamationBoost
	}

	best := Neutral
	bestScore := 0
	for label, s := range scores {
		if s > bestScore {
			bestScore = s
			best = label
		}
	}

	if bestScore == 0 {
		return Decision{Sentiment: Neutral}
	}
	return Decision{Sentiment: best, Score: bestScore}
}
