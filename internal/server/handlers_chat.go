package server

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"safesteps/backend/internal/safechat"
)

type apiError struct {
	Status int
	Detail string
}

func (e *apiError) Error() string {
	return e.Detail
}

// chatQuery is the safety assistant entry point. The server keeps no chat
// state: the caller sends its full history and stores the extended history
// returned with the answer.
func (a *App) chatQuery(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload chatQueryRequest
	if !mustJSON(c, &payload) {
		return
	}

	age := payload.Age
	if age == 0 && user.AgeYears != nil {
		age = *user.AgeYears
	}

	result, err := a.dispatcher.Dispatch(c.Request.Context(), payload.Message, age, payload.History)
	if err != nil {
		log.Printf("chat dispatch failed user_id=%s age=%d message=%q err=%v",
			user.ID, age, truncateForLog(payload.Message, 80), err)
		a.writeAIError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"response": result.ResponseText,
		"history":  result.UpdatedHistory,
	})
}

func (a *App) writeAIError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	var httpErr *apiError
	if errors.As(err, &httpErr) {
		writeError(c, httpErr.Status, httpErr.Detail)
		return
	}

	var failure *safechat.GenerationFailure
	if errors.As(err, &failure) {
		err = failure.Err
	}
	lowered := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(lowered, "gemini_api_key is not configured"):
		writeError(c, http.StatusServiceUnavailable, "AI provider is not configured: set GEMINI_API_KEY")
		return
	case strings.Contains(lowered, "context deadline exceeded"):
		writeError(c, http.StatusBadGateway, "AI provider request timed out")
		return
	case strings.Contains(lowered, "gemini response is empty"),
		strings.Contains(lowered, "gemini response answer is empty"):
		writeError(c, http.StatusBadGateway, "AI provider returned empty answer")
		return
	case strings.Contains(lowered, "gemini generate content"):
		writeError(c, http.StatusBadGateway, "AI provider request failed")
		return
	}
	log.Printf("ai call failed unclassified err=%v", err)
	writeError(c, http.StatusInternalServerError, "Failed to execute AI request")
}
