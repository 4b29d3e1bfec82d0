package voice

import "io"

// TTSRequest asks the provider to render text as speech.
type TTSRequest struct {
	SessionID string  `json:"sessionId"`
	Text      string  `json:"text"`
	Voice     string  `json:"voice"`
	Speed     float32 `json:"speed"`  // 0.5-2.0, zero means default
	Format    string  `json:"format"` // wav, mp3
}

// STTRequest carries uploaded audio to the recognition endpoint.
type STTRequest struct {
	SessionID string    `json:"sessionId"`
	AudioData io.Reader `json:"-"`
	Format    string    `json:"format"`   // wav, mp3, webm, m4a
	Language  string    `json:"language"` // BCP-47 or ISO-639-1 tag
}
