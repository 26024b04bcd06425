package server

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (a *App) createVideoConversation(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload videoConversationRequest
	if !mustJSON(c, &payload) {
		return
	}

	conversationalContext := strings.TrimSpace(payload.Context)
	var lessonIDParam any
	if lessonID := strings.TrimSpace(payload.LessonID); lessonID != "" {
		lesson, err := a.loadLesson(c, lessonID)
		if err != nil {
			a.writeLessonLoadError(c, err)
			return
		}
		lessonIDParam = lesson.ID
		if conversationalContext == "" {
			conversationalContext = "Talk with the child about this safety lesson: " +
				lesson.Title + ". " + lesson.Summary
		}
	}
	if conversationalContext == "" {
		conversationalContext = "Talk with the child about staying safe in everyday situations. " +
			"Keep language simple, warm, and reassuring."
	}

	conversationName := "safesteps-" + truncate(user.ID, 8)
	conversation, err := a.video.CreateConversation(c.Request.Context(), conversationName, conversationalContext)
	if err != nil {
		log.Printf("video conversation create failed user_id=%s err=%v", user.ID, err)
		a.writeVideoProviderError(c, err)
		return
	}

	sessionID := uuid.NewString()
	if _, err := a.db.Exec(
		c.Request.Context(),
		`INSERT INTO "VideoSession" (id, "userId", "lessonId", "providerConversationId", url, status, "createdAt", "endedAt")
		 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NULL)`,
		sessionID,
		user.ID,
		lessonIDParam,
		conversation.ID,
		conversation.URL,
		conversation.Status,
	); err != nil {
		// Best effort: don't leave a live provider conversation dangling
		// when the row can't be stored.
		if endErr := a.video.EndConversation(c.Request.Context(), conversation.ID); endErr != nil {
			log.Printf("video conversation cleanup failed conversation_id=%s err=%v", conversation.ID, endErr)
		}
		writeError(c, http.StatusInternalServerError, "Failed to store video session")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":       sessionID,
		"conversation_id":  conversation.ID,
		"conversation_url": conversation.URL,
		"status":           conversation.Status,
	})
}

func (a *App) endVideoConversation(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	conversationID := strings.TrimSpace(c.Param("conversation_id"))
	if conversationID == "" {
		writeError(c, http.StatusBadRequest, "conversation_id is required")
		return
	}

	var (
		sessionID string
		status    string
	)
	err := a.db.QueryRow(
		c.Request.Context(),
		`SELECT id, status FROM "VideoSession"
		 WHERE "providerConversationId" = $1 AND "userId" = $2`,
		conversationID,
		user.ID,
	).Scan(&sessionID, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(c, http.StatusNotFound, "Video session not found")
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to load video session")
		return
	}

	if status != "ended" {
		if err := a.video.EndConversation(c.Request.Context(), conversationID); err != nil {
			log.Printf("video conversation end failed conversation_id=%s err=%v", conversationID, err)
			a.writeVideoProviderError(c, err)
			return
		}
	}

	var endedAt time.Time
	err = a.db.QueryRow(
		c.Request.Context(),
		`UPDATE "VideoSession"
		 SET status = 'ended', "endedAt" = COALESCE("endedAt", NOW())
		 WHERE id = $1
		 RETURNING "endedAt"`,
		sessionID,
	).Scan(&endedAt)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to update video session")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":      sessionID,
		"conversation_id": conversationID,
		"status":          "ended",
		"ended_at":        endedAt.UTC(),
	})
}

func (a *App) writeVideoProviderError(c *gin.Context, err error) {
	lowered := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(lowered, "video_api_key is not configured"),
		strings.Contains(lowered, "video_base_url is not configured"):
		writeError(c, http.StatusServiceUnavailable, "Video provider is not configured")
	case strings.Contains(lowered, "video provider error"):
		writeError(c, http.StatusBadGateway, "Video provider request failed")
	default:
		writeError(c, http.StatusInternalServerError, "Failed to reach video provider")
	}
}
