package server

import (
	"encoding/base64"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const ttsMaxInputChars = 2000

func (a *App) synthesizeSpeech(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload ttsRequest
	if !mustJSON(c, &payload) {
		return
	}

	text := strings.TrimSpace(payload.Text)
	if text == "" {
		writeError(c, http.StatusBadRequest, "Text is required")
		return
	}
	if len([]rune(text)) > ttsMaxInputChars {
		writeError(c, http.StatusBadRequest, "Text is too long to synthesize")
		return
	}

	audio, err := a.tts.Synthesize(c.Request.Context(), text, payload.Voice)
	if err != nil {
		log.Printf("tts synthesis failed user_id=%s chars=%d err=%v", user.ID, len(text), err)
		a.writeTTSError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"audio_content": base64.StdEncoding.EncodeToString(audio),
		"encoding":      "MP3",
	})
}

func (a *App) writeTTSError(c *gin.Context, err error) {
	lowered := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(lowered, "tts_api_key is not configured"):
		writeError(c, http.StatusServiceUnavailable, "Speech synthesis is not configured")
	case strings.Contains(lowered, "tts input text is empty"):
		writeError(c, http.StatusBadRequest, "Text is required")
	case strings.Contains(lowered, "texttospeech"):
		writeError(c, http.StatusBadGateway, "Speech synthesis request failed")
	default:
		writeError(c, http.StatusInternalServerError, "Failed to synthesize speech")
	}
}
