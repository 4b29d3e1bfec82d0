package voice

import "time"

// STTResponse is the transcription result.
type STTResponse struct {
	SessionID string    `json:"sessionId"`
	Text      string    `json:"text"`
	Duration  int64     `json:"duration"` // upstream latency, milliseconds
	RequestID string    `json:"requestId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// TTSResponse carries synthesized audio back to the handler.
type TTSResponse struct {
	SessionID string    `json:"sessionId"`
	AudioData []byte    `json:"-"`
	Format    string    `json:"format"`
	Voice     string    `json:"voice"`
	Speed     float32   `json:"speed"`
	Duration  int64     `json:"duration"` // upstream latency, milliseconds
	RequestID string    `json:"requestId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
