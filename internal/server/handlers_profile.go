package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

func (a *App) getMyProfile(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var (
		name      string
		ageYears  *int
		createdAt time.Time
	)
	err := a.db.QueryRow(
		c.Request.Context(),
		`SELECT name, "ageYears", "createdAt" FROM "User" WHERE id = $1`,
		user.ID,
	).Scan(&name, &ageYears, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(c, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to load profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":    user.ID,
		"provider":   user.Provider,
		"name":       name,
		"age_years":  ageYears,
		"age_group":  ageGroupLabel(ageYears),
		"created_at": createdAt.UTC(),
	})
}

func (a *App) updateMyProfile(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload profileUpdateRequest
	if !mustJSON(c, &payload) {
		return
	}

	name := strings.TrimSpace(payload.Name)
	if name == "" && payload.Age == nil {
		writeError(c, http.StatusBadRequest, "Nothing to update: provide name or age")
		return
	}
	if payload.Age != nil && (*payload.Age < 0 || *payload.Age > 120) {
		writeError(c, http.StatusBadRequest, "Age must be between 0 and 120")
		return
	}

	var nameParam any
	if name != "" {
		nameParam = truncate(name, 120)
	}
	var ageParam any
	if payload.Age != nil {
		ageParam = *payload.Age
	}

	var (
		updatedName string
		updatedAge  *int
	)
	err := a.db.QueryRow(
		c.Request.Context(),
		`UPDATE "User"
		 SET name = COALESCE($2, name),
		     "ageYears" = COALESCE($3, "ageYears")
		 WHERE id = $1
		 RETURNING name, "ageYears"`,
		user.ID,
		nameParam,
		ageParam,
	).Scan(&updatedName, &updatedAge)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(c, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":   user.ID,
		"name":      updatedName,
		"age_years": updatedAge,
		"age_group": ageGroupLabel(updatedAge),
	})
}

// ageGroupLabel maps a stored age to its content catalog group, nil when the
// age is unset or outside the supported range.
func ageGroupLabel(age *int) any {
	if age == nil {
		return nil
	}
	group, ok := ageGroupForAge(*age)
	if !ok {
		return nil
	}
	return group
}
