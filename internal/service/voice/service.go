package voice

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	"github.com/nghiaht/iroha-companion/internal/config"
	voicemodel "github.com/nghiaht/iroha-companion/internal/model/voice"
)

// Service relays synthesis and transcription requests to Groq's audio
// endpoints. It shares the chat relay's API client.
type Service struct {
	client *openai.Client
	cfg    config.VoiceConfig
}

// NewService wraps an API client for audio relaying.
func NewService(client *openai.Client, cfg config.VoiceConfig) *Service {
	return &Service{client: client, cfg: cfg}
}

// Config reports the relay capabilities served to clients.
func (s *Service) Config() voicemodel.Config {
	return voicemodel.Config{
		Model:             s.cfg.TTSModel,
		Voices:            Voices,
		DefaultVoice:      s.cfg.DefaultVoice,
		DefaultSpeed:      s.cfg.DefaultSpeed,
		SpeedMin:          SpeedMin,
		SpeedMax:          SpeedMax,
		SampleRates:       SampleRates,
		DefaultSampleRate: DefaultSampleRate,
	}
}

// Synthesize renders text to speech and returns the full audio payload.
func (s *Service) Synthesize(ctx context.Context, req voicemodel.TTSRequest) (*voicemodel.TTSResponse, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("synthesis text is empty")
	}

	voice := NormalizeVoice(req.Voice, s.cfg.DefaultVoice)
	speed := ClampSpeed(req.Speed, s.cfg.DefaultSpeed)
	requestID := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Timeout)*time.Second)
	defer cancel()

	start := time.Now()
	raw, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.cfg.TTSModel),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatWav,
		Speed:          float64(speed),
	})
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}
	defer raw.Close()

	audio, err := io.ReadAll(raw)
	if err != nil {
		return nil, fmt.Errorf("read synthesized audio failed: %w", err)
	}

	elapsed := time.Since(start)
	log.Printf("[voice] synthesized request=%s voice=%s bytes=%d in %s",
		requestID, voice, len(audio), elapsed)

	return &voicemodel.TTSResponse{
		SessionID: req.SessionID,
		AudioData: audio,
		Format:    "wav",
		Voice:     voice,
		Speed:     speed,
		Duration:  elapsed.Milliseconds(),
		RequestID: requestID,
		CreatedAt: time.Now(),
	}, nil
}

// Transcribe converts uploaded audio to text.
func (s *Service) Transcribe(ctx context.Context, req voicemodel.STTRequest) (*voicemodel.STTResponse, error) {
	if req.AudioData == nil {
		return nil, fmt.Errorf("transcription audio is empty")
	}

	format := req.Format
	if format == "" {
		format = "wav"
	}
	requestID := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Timeout)*time.Second)
	defer cancel()

	start := time.Now()
	response, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.cfg.STTModel,
		Reader:   req.AudioData,
		FilePath: "audio." + format,
		Language: normalizeLanguage(req.Language, s.cfg.DefaultLanguage),
	})
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	elapsed := time.Since(start)
	log.Printf("[voice] transcribed request=%s chars=%d in %s",
		requestID, len(response.Text), elapsed)

	return &voicemodel.STTResponse{
		SessionID: req.SessionID,
		Text:      response.Text,
		Duration:  elapsed.Milliseconds(),
		RequestID: requestID,
		CreatedAt: time.Now(),
	}, nil
}

// normalizeLanguage reduces BCP-47 tags to the ISO-639-1 codes the
// transcription endpoint expects, "ja-JP" becomes "ja".
func normalizeLanguage(language, fallback string) string {
	language = strings.TrimSpace(language)
	if language == "" {
		return fallback
	}
	if idx := strings.IndexAny(language, "-_"); idx > 0 {
		language = language[:idx]
	}
	return strings.ToLower(language)
}
