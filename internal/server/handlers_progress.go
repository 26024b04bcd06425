package server

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const lessonCompletionPoints = 20

func (a *App) getMyProgress(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	progress, badges, err := a.loadUserProgress(c.Request.Context(), user.ID)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to load progress")
		return
	}

	var lastActivity any
	if progress.LastActivityDate != nil {
		lastActivity = dayKey(*progress.LastActivityDate)
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":       user.ID,
		"points":        progress.Points,
		"streak_days":   progress.StreakDays,
		"last_activity": lastActivity,
		"badges":        badges,
	})
}

func (a *App) completeLesson(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	lessonID := strings.TrimSpace(c.Param("lesson_id"))
	lesson, err := a.loadLesson(c, lessonID)
	if err != nil {
		a.writeLessonLoadError(c, err)
		return
	}

	awarded, err := a.awardAchievement(c.Request.Context(), user.ID, achievementKindLesson, lesson.ID, lessonCompletionPoints)
	if err != nil {
		log.Printf("lesson completion award failed user_id=%s lesson_id=%s err=%v", user.ID, lesson.ID, err)
		writeError(c, http.StatusInternalServerError, "Failed to record lesson completion")
		return
	}

	progress, badges, err := a.loadUserProgress(c.Request.Context(), user.ID)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to load progress")
		return
	}

	pointsAwarded := 0
	if awarded {
		pointsAwarded = lessonCompletionPoints
	}
	c.JSON(http.StatusOK, gin.H{
		"lesson_id":      lesson.ID,
		"already_done":   !awarded,
		"points_awarded": pointsAwarded,
		"points":         progress.Points,
		"streak_days":    progress.StreakDays,
		"badges":         badges,
		"completed_at":   time.Now().UTC(),
	})
}
