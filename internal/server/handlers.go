package server

import (
	"encoding/json"
	"strings"
	"time"

	"safesteps/backend/internal/safechat"
)

type profileUpdateRequest struct {
	Name string `json:"name"`
	Age  *int   `json:"age"`
}

type lessonGenerateRequest struct {
	Topic    string `json:"topic" binding:"required"`
	AgeGroup string `json:"age_group" binding:"required"`
}

type chatQueryRequest struct {
	Message string          `json:"message" binding:"required"`
	Age     int             `json:"age"`
	History []safechat.Turn `json:"history"`
}

type storyAnswerRequest struct {
	Choice int `json:"choice"`
}

type videoConversationRequest struct {
	LessonID string `json:"lesson_id"`
	Context  string `json:"context"`
}

type ttsRequest struct {
	Text  string `json:"text" binding:"required"`
	Voice string `json:"voice"`
}

// Content age groups are the catalog labels. The safety chat keeps its own
// finer age bands in safechat; the two partitions do not line up and are kept
// separate on purpose.
var validAgeGroups = map[string]struct{}{
	"5-10":  {},
	"11-15": {},
	"16-19": {},
}

func normalizeAgeGroup(input string) (string, bool) {
	group := strings.TrimSpace(input)
	if group == "" {
		return "", false
	}
	_, ok := validAgeGroups[group]
	return group, ok
}

func ageGroupForAge(age int) (string, bool) {
	switch {
	case age >= 5 && age <= 10:
		return "5-10", true
	case age >= 11 && age <= 15:
		return "11-15", true
	case age >= 16 && age <= 19:
		return "16-19", true
	default:
		return "", false
	}
}

func parseJSONStringSlice(input []byte) []string {
	if len(input) == 0 {
		return nil
	}
	var result []string
	if err := json.Unmarshal(input, &result); err != nil {
		return nil
	}
	return result
}

func startOfUTCDay(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func truncateForLog(value string, limit int) string {
	trimmed := strings.TrimSpace(value)
	if limit <= 0 || len(trimmed) <= limit {
		return trimmed
	}
	return trimmed[:limit] + "...(truncated)"
}
