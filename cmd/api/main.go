package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"safesteps/backend/internal/config"
	"safesteps/backend/internal/db"
	"safesteps/backend/internal/server"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("database ping failed: %v", err)
	}
	if err := server.ValidateRuntimeSchema(ctx, pool); err != nil {
		log.Fatalf("database schema mismatch: %v", err)
	}

	var ai server.AIClient
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		log.Printf("GEMINI_API_KEY is empty; using mock AI client")
		ai = server.MockAIClient{}
	} else {
		geminiClient, err := server.NewGeminiClient(ctx, cfg)
		if err != nil {
			log.Fatalf("gemini client init failed: %v", err)
		}
		ai = geminiClient
	}

	var tts server.TTSSynthesizer
	if strings.TrimSpace(cfg.TTSAPIKey) == "" {
		log.Printf("TTS_API_KEY is empty; using mock speech client")
		tts = server.MockTTSClient{}
	} else {
		ttsClient, err := server.NewGoogleTTSClient(ctx, cfg)
		if err != nil {
			log.Fatalf("texttospeech client init failed: %v", err)
		}
		tts = ttsClient
	}

	var video server.VideoConversationProvider
	if strings.TrimSpace(cfg.VideoAPIKey) == "" {
		log.Printf("VIDEO_API_KEY is empty; using mock video client")
		video = server.MockVideoClient{}
	} else {
		video = server.NewVideoHTTPClient(cfg)
	}

	app := server.New(cfg, pool, ai, tts, video)
	httpServer := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("safesteps api listening on http://localhost:%s", cfg.AppPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
