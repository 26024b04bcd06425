package server

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

type storyRecord struct {
	ID            string
	AgeGroup      string
	Title         string
	Scenario      string
	Options       []string
	CorrectOption int
	Explanation   string
}

const storyAnswerPoints = 10

// getTodayStory returns one story per age group per UTC day. Selection is
// derived from the date, so every child in the same group sees the same story
// and repeated calls within a day are stable.
func (a *App) getTodayStory(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	group := strings.TrimSpace(c.Query("age_group"))
	if group == "" && user.AgeYears != nil {
		if derived, ok := ageGroupForAge(*user.AgeYears); ok {
			group = derived
		}
	}
	normalized, ok := normalizeAgeGroup(group)
	if !ok {
		writeError(c, http.StatusBadRequest, "age_group is required when no supported age is on the profile")
		return
	}

	story, err := a.selectDailyStory(c, normalized, time.Now())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "No stories available for this age group")
			return
		}
		writeError(c, http.StatusInternalServerError, "Failed to load today's story")
		return
	}

	// The correct option and explanation stay server side until the child
	// answers.
	c.JSON(http.StatusOK, gin.H{
		"story_id":  story.ID,
		"age_group": story.AgeGroup,
		"title":     story.Title,
		"scenario":  story.Scenario,
		"options":   story.Options,
		"day":       dayKey(time.Now()),
	})
}

func (a *App) selectDailyStory(c *gin.Context, ageGroup string, now time.Time) (storyRecord, error) {
	rows, err := a.db.Query(
		c.Request.Context(),
		`SELECT id, "ageGroup", title, scenario, options, "correctOption", explanation
		 FROM "Story"
		 WHERE "ageGroup" = $1
		 ORDER BY id`,
		ageGroup,
	)
	if err != nil {
		return storyRecord{}, err
	}
	defer rows.Close()

	stories := make([]storyRecord, 0)
	for rows.Next() {
		var (
			story      storyRecord
			optionsRaw []byte
		)
		if err := rows.Scan(
			&story.ID,
			&story.AgeGroup,
			&story.Title,
			&story.Scenario,
			&optionsRaw,
			&story.CorrectOption,
			&story.Explanation,
		); err != nil {
			return storyRecord{}, err
		}
		story.Options = parseJSONStringSlice(optionsRaw)
		stories = append(stories, story)
	}
	if rows.Err() != nil {
		return storyRecord{}, rows.Err()
	}
	if len(stories) == 0 {
		return storyRecord{}, pgx.ErrNoRows
	}

	daysSinceEpoch := int(startOfUTCDay(now).Unix() / 86400)
	return stories[daysSinceEpoch%len(stories)], nil
}

func (a *App) answerStory(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	storyID := strings.TrimSpace(c.Param("story_id"))
	if storyID == "" {
		writeError(c, http.StatusBadRequest, "story_id is required")
		return
	}

	var payload storyAnswerRequest
	if !mustJSON(c, &payload) {
		return
	}

	var story storyRecord
	var optionsRaw []byte
	err := a.db.QueryRow(
		c.Request.Context(),
		`SELECT id, "ageGroup", title, scenario, options, "correctOption", explanation
		 FROM "Story" WHERE id = $1`,
		storyID,
	).Scan(
		&story.ID,
		&story.AgeGroup,
		&story.Title,
		&story.Scenario,
		&optionsRaw,
		&story.CorrectOption,
		&story.Explanation,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(c, http.StatusNotFound, "Story not found")
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to load story")
		return
	}
	story.Options = parseJSONStringSlice(optionsRaw)

	if payload.Choice < 0 || payload.Choice >= len(story.Options) {
		writeError(c, http.StatusBadRequest, "Choice is out of range")
		return
	}

	correct := payload.Choice == story.CorrectOption
	pointsAwarded := 0
	if correct {
		// One award per story per day, so replaying the same answer does
		// not farm points.
		refID := story.ID + ":" + dayKey(time.Now())
		awarded, err := a.awardAchievement(c.Request.Context(), user.ID, achievementKindStory, refID, storyAnswerPoints)
		if err != nil {
			log.Printf("story award failed user_id=%s story_id=%s err=%v", user.ID, story.ID, err)
			writeError(c, http.StatusInternalServerError, "Failed to record story result")
			return
		}
		if awarded {
			pointsAwarded = storyAnswerPoints
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"story_id":       story.ID,
		"correct":        correct,
		"correct_option": story.CorrectOption,
		"explanation":    story.Explanation,
		"points_awarded": pointsAwarded,
	})
}
