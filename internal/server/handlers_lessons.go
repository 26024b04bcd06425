package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"safesteps/backend/internal/safechat"
)

type lessonRecord struct {
	ID          string
	AgeGroup    string
	Topic       string
	Title       string
	Summary     string
	Content     string
	IsGenerated bool
	CreatedAt   time.Time
}

func (a *App) listLessons(c *gin.Context) {
	if _, ok := authUserFromContext(c); !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var groupFilter any
	if raw := strings.TrimSpace(c.Query("age_group")); raw != "" {
		group, ok := normalizeAgeGroup(raw)
		if !ok {
			writeError(c, http.StatusBadRequest, "Invalid age_group; expected 5-10, 11-15, or 16-19")
			return
		}
		groupFilter = group
	}

	rows, err := a.db.Query(
		c.Request.Context(),
		`SELECT id, "ageGroup", topic, title, summary, "isGenerated", "createdAt"
		 FROM "Lesson"
		 WHERE ($1::text IS NULL OR "ageGroup" = $1)
		 ORDER BY "createdAt" DESC
		 LIMIT 100`,
		groupFilter,
	)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to load lessons")
		return
	}
	defer rows.Close()

	lessons := make([]gin.H, 0)
	for rows.Next() {
		var item lessonRecord
		if err := rows.Scan(
			&item.ID,
			&item.AgeGroup,
			&item.Topic,
			&item.Title,
			&item.Summary,
			&item.IsGenerated,
			&item.CreatedAt,
		); err != nil {
			writeError(c, http.StatusInternalServerError, "Failed to read lessons")
			return
		}
		lessons = append(lessons, gin.H{
			"lesson_id":    item.ID,
			"age_group":    item.AgeGroup,
			"topic":        item.Topic,
			"title":        item.Title,
			"summary":      item.Summary,
			"is_generated": item.IsGenerated,
			"created_at":   item.CreatedAt.UTC(),
		})
	}
	if rows.Err() != nil {
		writeError(c, http.StatusInternalServerError, "Failed to read lessons")
		return
	}

	c.JSON(http.StatusOK, gin.H{"lessons": lessons})
}

func (a *App) getLesson(c *gin.Context) {
	if _, ok := authUserFromContext(c); !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	lessonID := strings.TrimSpace(c.Param("lesson_id"))
	lesson, err := a.loadLesson(c, lessonID)
	if err != nil {
		a.writeLessonLoadError(c, err)
		return
	}

	c.JSON(http.StatusOK, lessonMap(lesson))
}

func (a *App) loadLesson(c *gin.Context, lessonID string) (lessonRecord, error) {
	if lessonID == "" {
		return lessonRecord{}, &apiError{Status: http.StatusBadRequest, Detail: "lesson_id is required"}
	}
	var lesson lessonRecord
	err := a.db.QueryRow(
		c.Request.Context(),
		`SELECT id, "ageGroup", topic, title, summary, content, "isGenerated", "createdAt"
		 FROM "Lesson" WHERE id = $1`,
		lessonID,
	).Scan(
		&lesson.ID,
		&lesson.AgeGroup,
		&lesson.Topic,
		&lesson.Title,
		&lesson.Summary,
		&lesson.Content,
		&lesson.IsGenerated,
		&lesson.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return lessonRecord{}, &apiError{Status: http.StatusNotFound, Detail: "Lesson not found"}
	}
	if err != nil {
		return lessonRecord{}, err
	}
	return lesson, nil
}

func (a *App) writeLessonLoadError(c *gin.Context, err error) {
	var httpErr *apiError
	if errors.As(err, &httpErr) {
		writeError(c, httpErr.Status, httpErr.Detail)
		return
	}
	writeError(c, http.StatusInternalServerError, "Failed to load lesson")
}

func lessonMap(lesson lessonRecord) gin.H {
	return gin.H{
		"lesson_id":    lesson.ID,
		"age_group":    lesson.AgeGroup,
		"topic":        lesson.Topic,
		"title":        lesson.Title,
		"summary":      lesson.Summary,
		"content":      lesson.Content,
		"is_generated": lesson.IsGenerated,
		"created_at":   lesson.CreatedAt.UTC(),
	}
}

func (a *App) generateLesson(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload lessonGenerateRequest
	if !mustJSON(c, &payload) {
		return
	}
	group, ok := normalizeAgeGroup(payload.AgeGroup)
	if !ok {
		writeError(c, http.StatusBadRequest, "Invalid age_group; expected 5-10, 11-15, or 16-19")
		return
	}
	topic := strings.TrimSpace(payload.Topic)

	resp, err := a.ai.Query(c.Request.Context(), AIModelRequest{
		SystemPrompt: buildLessonSystemPrompt(group),
		UserPrompt:   "Write a safety lesson about: " + topic,
	})
	if err != nil {
		log.Printf("lesson generation failed user_id=%s topic=%q err=%v", user.ID, topic, err)
		a.writeAIError(c, err)
		return
	}

	title, summary, content, parsed := parseLessonJSON(resp.Answer)
	if !parsed {
		title = topic
		summary = "A lesson about " + topic + "."
		content = safechat.Sanitize(strings.TrimSpace(resp.Answer))
	}

	lessonID := uuid.NewString()
	var createdAt time.Time
	err = a.db.QueryRow(
		c.Request.Context(),
		`INSERT INTO "Lesson" (id, "ageGroup", topic, title, summary, content, "isGenerated", "createdAt")
		 VALUES ($1, $2, $3, $4, $5, $6, TRUE, NOW())
		 RETURNING "createdAt"`,
		lessonID,
		group,
		topic,
		title,
		summary,
		content,
	).Scan(&createdAt)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to store generated lesson")
		return
	}

	c.JSON(http.StatusOK, lessonMap(lessonRecord{
		ID:          lessonID,
		AgeGroup:    group,
		Topic:       topic,
		Title:       title,
		Summary:     summary,
		Content:     content,
		IsGenerated: true,
		CreatedAt:   createdAt,
	}))
}

func buildLessonSystemPrompt(ageGroup string) string {
	lines := []string{
		"You are SafeSteps, writing short safety education lessons for children aged " + ageGroup + ".",
		"Use vocabulary and examples appropriate for that age range.",
		"Keep the lesson practical: what the risk looks like, what to do, who to tell.",
		"Never include frightening detail; focus on confidence and concrete steps.",
		"Return only a JSON object.",
		`JSON schema: {"title":"short title","summary":"one sentence","content":"the lesson body in plain text"}`,
		"No markdown, no code fences, no extra commentary.",
	}
	return strings.Join(lines, "\n")
}

// parseLessonJSON tolerates models that wrap JSON in prose or code fences.
func parseLessonJSON(answer string) (title, summary, content string, ok bool) {
	candidate := strings.TrimSpace(answer)
	if candidate == "" {
		return "", "", "", false
	}
	if !strings.HasPrefix(candidate, "{") {
		start := strings.Index(candidate, "{")
		end := strings.LastIndex(candidate, "}")
		if start >= 0 && end > start {
			candidate = strings.TrimSpace(candidate[start : end+1])
		}
	}
	if strings.HasPrefix(candidate, "```") {
		candidate = strings.TrimSpace(strings.TrimPrefix(candidate, "```json"))
		candidate = strings.TrimSpace(strings.TrimPrefix(candidate, "```"))
		candidate = strings.TrimSpace(strings.TrimSuffix(candidate, "```"))
	}

	var parsed struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return "", "", "", false
	}
	title = strings.TrimSpace(parsed.Title)
	content = strings.TrimSpace(parsed.Content)
	if title == "" || content == "" {
		return "", "", "", false
	}
	return title, strings.TrimSpace(parsed.Summary), safechat.Sanitize(content), true
}
