package server

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	texttospeech "google.golang.org/api/texttospeech/v1"

	"safesteps/backend/internal/config"
)

type TTSSynthesizer interface {
	Synthesize(ctx context.Context, text, voiceName string) ([]byte, error)
}

type GoogleTTSClient struct {
	service      *texttospeech.Service
	voiceName    string
	languageCode string
}

func NewGoogleTTSClient(ctx context.Context, cfg config.Config) (*GoogleTTSClient, error) {
	apiKey := strings.TrimSpace(cfg.TTSAPIKey)
	if apiKey == "" {
		return nil, errors.New("TTS_API_KEY is not configured")
	}
	service, err := texttospeech.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create texttospeech service: %w", err)
	}
	return &GoogleTTSClient{
		service:      service,
		voiceName:    strings.TrimSpace(cfg.TTSVoiceName),
		languageCode: strings.TrimSpace(cfg.TTSLanguageCode),
	}, nil
}

// Synthesize renders text as MP3 audio bytes.
func (c *GoogleTTSClient) Synthesize(ctx context.Context, text, voiceName string) ([]byte, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, errors.New("tts input text is empty")
	}
	voice := strings.TrimSpace(voiceName)
	if voice == "" {
		voice = c.voiceName
	}

	resp, err := c.service.Text.Synthesize(&texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: trimmed},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: c.languageCode,
			Name:         voice,
		},
		AudioConfig: &texttospeech.AudioConfig{AudioEncoding: "MP3"},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("texttospeech synthesize: %w", err)
	}
	if strings.TrimSpace(resp.AudioContent) == "" {
		return nil, errors.New("texttospeech response audio is empty")
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("decode texttospeech audio: %w", err)
	}
	return audio, nil
}

type MockTTSClient struct{}

func (MockTTSClient) Synthesize(_ context.Context, text, _ string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("tts input text is empty")
	}
	return []byte("mock-audio:" + strings.TrimSpace(text)), nil
}
