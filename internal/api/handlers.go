package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/in-nis/timetable-back/internal/config"
	"github.com/in-nis/timetable-back/internal/db"
	"github.com/in-nis/timetable-back/internal/excel"
	"github.com/in-nis/timetable-back/internal/grid"
	"github.com/in-nis/timetable-back/internal/models"
	"github.com/in-nis/timetable-back/internal/oracle"
	"github.com/in-nis/timetable-back/internal/timetable"
)

var (
	svc       *timetable.Service
	appConfig *config.Config
)

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid timetable id"})
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps the store's error taxonomy onto HTTP statuses. No-op
// signals are not failures and are answered 200 with an explanatory body.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, timetable.ErrNoOpEdit), errors.Is(err, timetable.ErrRestoreNoOp):
		c.JSON(http.StatusOK, gin.H{"message": "No changes to save"})
	case errors.Is(err, timetable.ErrVersionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, timetable.ErrTimetableArchived):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Timetable not found"})
	default:
		var verr *timetable.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": verr.Errors})
			return
		}
		log.Println("❌ Request failed:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

// CreateTimetableRequest is the request body for creating a timetable
type CreateTimetableRequest struct {
	Level   int       `json:"level" binding:"required,min=3,max=8"`
	Section string    `json:"section" binding:"required"`
	Grid    grid.Grid `json:"grid" binding:"required"`
}

// CreateTimetable godoc
// @Summary      Create a timetable
// @Description  Validates a candidate grid and creates the timetable as a draft with history version 1
// @Tags         timetables
// @Accept       json
// @Produce      json
// @Param        body  body  CreateTimetableRequest  true  "Level, section and candidate grid"
// @Success      201  {object} models.Timetable
// @Failure      400  {object} map[string]string
// @Failure      422  {object} map[string][]string
// @Security     BearerAuth
// @Router       /timetables [post]
func CreateTimetable(c *gin.Context) {
	var req CreateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	t, err := svc.Create(context.Background(), req.Level, req.Section, req.Grid, c.GetString("email"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// GenerateTimetableRequest is the request body for oracle generation
type GenerateTimetableRequest struct {
	Level   int    `json:"level" binding:"required,min=3,max=8"`
	Section string `json:"section" binding:"required"`
}

// GenerateTimetable godoc
// @Summary      Generate a timetable via the oracle
// @Description  Asks the generative model for a candidate grid, validates it and creates the timetable
// @Tags         timetables
// @Accept       json
// @Produce      json
// @Param        body  body  GenerateTimetableRequest  true  "Level and section"
// @Success      201  {object} models.Timetable
// @Failure      422  {object} map[string][]string
// @Failure      502  {object} map[string]string
// @Security     BearerAuth
// @Router       /timetables/generate [post]
func GenerateTimetable(c *gin.Context) {
	var req GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	ctx := context.Background()
	reqs, err := db.GetCourseRequirements(ctx, req.Level)
	if err != nil {
		writeError(c, err)
		return
	}
	fixed, err := db.GetFixedReservations(ctx, req.Level)
	if err != nil {
		writeError(c, err)
		return
	}

	candidate, err := oracle.ProposeGrid(ctx, appConfig.GeminiAPIKey, req.Level, reqs, fixed)
	if err != nil {
		log.Println("❌ Oracle generation failed:", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Generation failed"})
		return
	}

	t, err := svc.Create(ctx, req.Level, req.Section, candidate, c.GetString("email"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// ImportTimetable godoc
// @Summary      Import a timetable from a workbook
// @Description  Parses an uploaded xlsx into a candidate grid, validates it and creates the timetable
// @Tags         timetables
// @Accept       multipart/form-data
// @Produce      json
// @Param        level    formData  int     true  "Academic level"
// @Param        section  formData  string  true  "Section label"
// @Param        file     formData  file    true  "Timetable workbook"
// @Success      201  {object} models.Timetable
// @Failure      422  {object} map[string][]string
// @Security     BearerAuth
// @Router       /timetables/import [post]
func ImportTimetable(c *gin.Context) {
	level, err := strconv.Atoi(c.PostForm("level"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid level"})
		return
	}
	section := c.PostForm("section")
	if section == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing section"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable file"})
		return
	}
	defer file.Close()

	g, err := excel.ParseGrid(file)
	if err != nil {
		log.Println("❌ Failed to parse workbook:", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse workbook"})
		return
	}

	t, err := svc.Create(context.Background(), level, section, g, c.GetString("email"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// ValidateGridRequest is the request body for a dry-run validation
type ValidateGridRequest struct {
	Level int       `json:"level" binding:"required,min=3,max=8"`
	Grid  grid.Grid `json:"grid" binding:"required"`
}

// ValidateGrid godoc
// @Summary      Validate a candidate grid
// @Description  Runs the constraint validator without persisting anything
// @Tags         timetables
// @Accept       json
// @Produce      json
// @Param        body  body  ValidateGridRequest  true  "Level and candidate grid"
// @Success      200  {object} validate.Result
// @Security     BearerAuth
// @Router       /validate [post]
func ValidateGrid(c *gin.Context) {
	var req ValidateGridRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	res, err := svc.ValidateGrid(context.Background(), req.Level, req.Grid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetTimetable godoc
// @Summary      Get the current timetable state
// @Description  Viewers only see timetables published at least once; editors see drafts too
// @Tags         timetables
// @Produce      json
// @Param        id  path  string  true  "Timetable ID"
// @Success      200  {object} models.Timetable
// @Failure      404  {object} map[string]string
// @Security     BearerAuth
// @Router       /timetables/{id} [get]
func GetTimetable(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	t, err := svc.Get(context.Background(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	// Drafts are internal to the committee.
	if c.GetString("role") != models.RoleEditor && t.PublishCounter < 1 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Timetable not found"})
		return
	}
	c.JSON(http.StatusOK, t)
}

// ListTimetables godoc
// @Summary      List published timetables
// @Description  General audience listing; only timetables with publish counter >= 2 appear
// @Tags         timetables
// @Produce      json
// @Param        level    query  int     false  "Academic level"
// @Param        section  query  string  false  "Section label"
// @Success      200  {array} models.Timetable
// @Router       /timetables [get]
func ListTimetables(c *gin.Context) {
	level := 0
	if s := c.Query("level"); s != "" {
		var err error
		level, err = strconv.Atoi(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid level"})
			return
		}
	}

	// The general audience only sees once-reviewed output.
	out, err := svc.List(context.Background(), level, c.Query("section"), 2)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// EditTimetableGridRequest is the request body for a grid edit
type EditTimetableGridRequest struct {
	Grid    grid.Grid `json:"grid" binding:"required"`
	Summary string    `json:"summary"`
}

// EditTimetableGrid godoc
// @Summary      Edit the timetable grid
// @Description  Records the structural diff against the current grid as a new history version. Pass validate=true to run the constraint validator first.
// @Tags         timetables
// @Accept       json
// @Produce      json
// @Param        id        path   string  true   "Timetable ID"
// @Param        validate  query  bool    false  "Re-run constraint validation before saving"
// @Param        body      body   EditTimetableGridRequest  true  "New grid and summary"
// @Success      200  {object} models.TimetableHistory
// @Failure      409  {object} map[string]string
// @Failure      422  {object} map[string][]string
// @Security     BearerAuth
// @Router       /timetables/{id}/grid [put]
func EditTimetableGrid(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req EditTimetableGridRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	ctx := context.Background()

	// Manual edits are trusted by default; the committee opts into
	// re-validation per request.
	if c.Query("validate") == "true" {
		t, err := svc.Get(ctx, id)
		if err != nil {
			writeError(c, err)
			return
		}
		res, err := svc.ValidateGrid(ctx, t.Level, req.Grid)
		if err != nil {
			writeError(c, err)
			return
		}
		if !res.IsValid {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": res.Errors})
			return
		}
	}

	entry, err := svc.Edit(ctx, id, req.Grid, c.GetString("email"), req.Summary)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// GetTimetableHistory godoc
// @Summary      List the edit history
// @Description  Returns history entries newest first
// @Tags         timetables
// @Produce      json
// @Param        id      path   string  true   "Timetable ID"
// @Param        limit   query  int     false  "Page size"
// @Param        offset  query  int     false  "Page offset"
// @Success      200  {array} models.TimetableHistory
// @Security     BearerAuth
// @Router       /timetables/{id}/history [get]
func GetTimetableHistory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, err := svc.History(context.Background(), id, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// ReconstructVersion godoc
// @Summary      Reconstruct a historical grid
// @Description  Returns the grid exactly as it existed right after the given edit
// @Tags         timetables
// @Produce      json
// @Param        id       path  string  true  "Timetable ID"
// @Param        version  path  int     true  "History version"
// @Success      200  {object} grid.Grid
// @Failure      404  {object} map[string]string
// @Security     BearerAuth
// @Router       /timetables/{id}/versions/{version} [get]
func ReconstructVersion(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid version"})
		return
	}

	g, err := svc.Reconstruct(context.Background(), id, version)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// RestoreVersion godoc
// @Summary      Restore a historical version
// @Description  Makes the historical grid the new current state via a fresh forward history entry; nothing is rewritten
// @Tags         timetables
// @Produce      json
// @Param        id       path  string  true  "Timetable ID"
// @Param        version  path  int     true  "History version to restore"
// @Success      200  {object} models.TimetableHistory
// @Failure      404  {object} map[string]string
// @Failure      409  {object} map[string]string
// @Security     BearerAuth
// @Router       /timetables/{id}/restore/{version} [post]
func RestoreVersion(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid version"})
		return
	}

	entry, err := svc.Restore(context.Background(), id, version, c.GetString("email"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// PublishTimetable godoc
// @Summary      Publish the timetable
// @Description  Bumps the publish counter and marks the current edit state externally visible; the grid and ledger are untouched
// @Tags         timetables
// @Produce      json
// @Param        id  path  string  true  "Timetable ID"
// @Success      200  {object} models.Timetable
// @Failure      409  {object} map[string]string
// @Security     BearerAuth
// @Router       /timetables/{id}/publish [post]
func PublishTimetable(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	t, err := svc.Publish(context.Background(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// ArchiveTimetable godoc
// @Summary      Archive the timetable
// @Description  Terminal state; archived timetables reject edits, publishes and restores
// @Tags         timetables
// @Produce      json
// @Param        id  path  string  true  "Timetable ID"
// @Success      200  {object} models.Timetable
// @Security     BearerAuth
// @Router       /timetables/{id}/archive [patch]
func ArchiveTimetable(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	t, err := svc.Archive(context.Background(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// ExportTimetable godoc
// @Summary      Export the timetable as a workbook
// @Description  Streams the current grid as an xlsx download
// @Tags         timetables
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        id  path  string  true  "Timetable ID"
// @Success      200  {file} file
// @Security     BearerAuth
// @Router       /timetables/{id}/export [get]
func ExportTimetable(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	t, err := svc.Get(context.Background(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if c.GetString("role") != models.RoleEditor && t.PublishCounter < 1 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Timetable not found"})
		return
	}

	f, err := excel.WriteGrid(t.Grid, fmt.Sprintf("Level %d%s", t.Level, t.Section))
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=timetable-%d%s.xlsx", t.Level, t.Section))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		log.Println("❌ Failed to stream workbook:", err)
	}
}
