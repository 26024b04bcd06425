package server

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	achievementKindLesson = "LESSON"
	achievementKindStory  = "STORY"
	achievementKindBadge  = "BADGE"
)

type badgeRule struct {
	Name        string
	MinPoints   int
	MinStreak   int
	Description string
}

var badgeRules = []badgeRule{
	{Name: "SAFETY_STARTER", MinPoints: 50, Description: "Earned 50 safety points"},
	{Name: "SAFETY_SCHOLAR", MinPoints: 200, Description: "Earned 200 safety points"},
	{Name: "WEEK_STREAK", MinStreak: 7, Description: "Practiced safety 7 days in a row"},
}

type userProgress struct {
	Points           int
	StreakDays       int
	LastActivityDate *time.Time
}

func (a *App) ensureUserProgress(ctx context.Context, q dbQuerier, userID string) error {
	_, err := q.Exec(
		ctx,
		`INSERT INTO "UserProgress" ("userId", points, "streakDays", "lastActivityDate", "createdAt", "updatedAt")
		 VALUES ($1, 0, 0, NULL, NOW(), NOW())
		 ON CONFLICT ("userId") DO NOTHING`,
		userID,
	)
	return err
}

// awardAchievement records one ledger row and applies its points and streak
// effect. The ledger is keyed on (userId, kind, refId), so awarding the same
// achievement twice is a no-op and returns false.
func (a *App) awardAchievement(ctx context.Context, userID, kind, refID string, points int) (bool, error) {
	now := time.Now()

	tx, err := a.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	if err := a.ensureUserProgress(ctx, tx, userID); err != nil {
		return false, err
	}

	var insertedID string
	insertErr := tx.QueryRow(
		ctx,
		`INSERT INTO "AchievementLedger" (id, "userId", kind, "refId", points, "createdAt")
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT ("userId", kind, "refId")
		 DO NOTHING
		 RETURNING id`,
		uuid.NewString(),
		userID,
		kind,
		refID,
		points,
	).Scan(&insertedID)
	if insertErr != nil && !errors.Is(insertErr, pgx.ErrNoRows) {
		return false, insertErr
	}
	if insertedID == "" {
		if err := tx.Commit(ctx); err != nil {
			return false, err
		}
		return false, nil
	}

	progress := userProgress{}
	err = tx.QueryRow(
		ctx,
		`SELECT points, "streakDays", "lastActivityDate" FROM "UserProgress" WHERE "userId" = $1 FOR UPDATE`,
		userID,
	).Scan(&progress.Points, &progress.StreakDays, &progress.LastActivityDate)
	if err != nil {
		return false, err
	}

	progress.Points += points
	progress.StreakDays = nextStreak(progress.StreakDays, progress.LastActivityDate, now)
	today := startOfUTCDay(now)

	if _, err := tx.Exec(
		ctx,
		`UPDATE "UserProgress"
		 SET points = $2,
		     "streakDays" = $3,
		     "lastActivityDate" = $4,
		     "updatedAt" = NOW()
		 WHERE "userId" = $1`,
		userID,
		progress.Points,
		progress.StreakDays,
		today,
	); err != nil {
		return false, err
	}

	if err := a.unlockEarnedBadges(ctx, tx, userID, progress.Points, progress.StreakDays); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// nextStreak extends the streak on consecutive UTC days, keeps it on the same
// day, and resets it after a gap.
func nextStreak(current int, lastActivity *time.Time, now time.Time) int {
	today := startOfUTCDay(now)
	if lastActivity == nil {
		return 1
	}
	last := startOfUTCDay(*lastActivity)
	switch {
	case last.Equal(today):
		if current <= 0 {
			return 1
		}
		return current
	case last.Equal(today.AddDate(0, 0, -1)):
		return current + 1
	default:
		return 1
	}
}

func (a *App) unlockEarnedBadges(ctx context.Context, q dbQuerier, userID string, points, streakDays int) error {
	for _, rule := range badgeRules {
		if points < rule.MinPoints || streakDays < rule.MinStreak {
			continue
		}
		var insertedID string
		err := q.QueryRow(
			ctx,
			`INSERT INTO "AchievementLedger" (id, "userId", kind, "refId", points, "createdAt")
			 VALUES ($1, $2, $3, $4, 0, NOW())
			 ON CONFLICT ("userId", kind, "refId")
			 DO NOTHING
			 RETURNING id`,
			uuid.NewString(),
			userID,
			achievementKindBadge,
			rule.Name,
		).Scan(&insertedID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
	}
	return nil
}

func (a *App) loadUserProgress(ctx context.Context, userID string) (userProgress, []string, error) {
	if err := a.ensureUserProgress(ctx, a.db, userID); err != nil {
		return userProgress{}, nil, err
	}

	progress := userProgress{}
	err := a.db.QueryRow(
		ctx,
		`SELECT points, "streakDays", "lastActivityDate" FROM "UserProgress" WHERE "userId" = $1`,
		userID,
	).Scan(&progress.Points, &progress.StreakDays, &progress.LastActivityDate)
	if err != nil {
		return userProgress{}, nil, err
	}

	rows, err := a.db.Query(
		ctx,
		`SELECT "refId" FROM "AchievementLedger"
		 WHERE "userId" = $1 AND kind = $2
		 ORDER BY "createdAt"`,
		userID,
		achievementKindBadge,
	)
	if err != nil {
		return userProgress{}, nil, err
	}
	defer rows.Close()

	badges := make([]string, 0)
	for rows.Next() {
		var badge string
		if err := rows.Scan(&badge); err != nil {
			return userProgress{}, nil, err
		}
		badges = append(badges, badge)
	}
	if rows.Err() != nil {
		return userProgress{}, nil, rows.Err()
	}
	return progress, badges, nil
}
