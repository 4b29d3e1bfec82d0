package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/nghiaht/iroha-companion/internal/config"
	voicemodel "github.com/nghiaht/iroha-companion/internal/model/voice"
	"github.com/nghiaht/iroha-companion/internal/service/voice"
)

// voicetester exercises the Groq audio relay from the command line without
// starting the full HTTP server.
func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env, using system environment: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if !cfg.AI.Enabled() {
		log.Fatal("GROQ_API_KEY is required for the voice relay")
	}

	mode := flag.String("mode", "", "test mode: stt or tts")
	audioPath := flag.String("audio", "", "STT input audio file path")
	text := flag.String("text", "", "TTS input text")
	outputPath := flag.String("out", "", "TTS output file path (default speech.wav)")
	language := flag.String("lang", "", "STT language code, defaults to configuration")
	voiceID := flag.String("voice", "", "TTS voice, defaults to configuration")
	speed := flag.Float64("speed", 0, "TTS speed, defaults to configuration")
	timeout := flag.Duration("timeout", 45*time.Second, "request timeout")

	flag.Parse()

	if *mode != "stt" && *mode != "tts" {
		flag.Usage()
		log.Fatal("specify -mode=stt or -mode=tts")
	}

	client, err := cfg.AI.NewClient()
	if err != nil {
		log.Fatalf("failed to create Groq client: %v", err)
	}
	svc := voice.NewService(client, cfg.Voice)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "stt":
		runSTT(ctx, svc, *audioPath, *language)
	case "tts":
		runTTS(ctx, svc, *text, *voiceID, float32(*speed), *outputPath)
	}
}

func runSTT(ctx context.Context, svc *voice.Service, audioPath, language string) {
	if audioPath == "" {
		log.Fatal("stt mode requires -audio")
	}

	file, err := os.Open(audioPath)
	if err != nil {
		log.Fatalf("failed to open audio file: %v", err)
	}
	defer file.Close()

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(audioPath)), ".")
	if format == "" {
		format = "wav"
	}

	log.Printf("transcribing %s format=%s", audioPath, format)

	resp, err := svc.Transcribe(ctx, voicemodel.STTRequest{
		SessionID: "voicetester",
		AudioData: file,
		Format:    format,
		Language:  language,
	})
	if err != nil {
		log.Fatalf("transcription failed: %v", err)
	}

	log.Printf("transcript (%dms): %s", resp.Duration, resp.Text)
}

func runTTS(ctx context.Context, svc *voice.Service, text, voiceID string, speed float32, outputPath string) {
	if text == "" {
		log.Fatal("tts mode requires -text")
	}

	resp, err := svc.Synthesize(ctx, voicemodel.TTSRequest{
		SessionID: "voicetester",
		Text:      text,
		Voice:     voiceID,
		Speed:     speed,
	})
	if err != nil {
		log.Fatalf("synthesis failed: %v", err)
	}

	if outputPath == "" {
		outputPath = "speech." + resp.Format
	}
	if err := os.WriteFile(outputPath, resp.AudioData, 0o644); err != nil {
		log.Fatalf("failed to write audio file: %v", err)
	}

	log.Printf("wrote %d bytes to %s (voice=%s speed=%.2f, %dms)",
		len(resp.AudioData), outputPath, resp.Voice, resp.Speed, resp.Duration)
}
