package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/in-nis/timetable-back/internal/config"
	"github.com/in-nis/timetable-back/internal/db"
	"github.com/in-nis/timetable-back/internal/grid"
	"github.com/in-nis/timetable-back/internal/models"
)

func setupAPI(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = gdb.AutoMigrate(
		&models.Timetable{},
		&models.TimetableHistory{},
		&models.CourseRequirement{},
		&models.FixedReservation{},
		&models.User{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db.DB = gdb

	reqs := []models.CourseRequirement{
		{Level: 4, CourseCode: "CSC111", DisplayName: "Intro CS", Duration: 3},
		{Level: 4, CourseCode: "MAT101", DisplayName: "Math", Duration: 2},
	}
	if err := gdb.Create(&reqs).Error; err != nil {
		t.Fatalf("seed requirements: %v", err)
	}

	sqlDB, _ := gdb.DB()
	t.Cleanup(func() {
		gdb.Exec("DELETE FROM timetable_histories")
		gdb.Exec("DELETE FROM timetables")
		gdb.Exec("DELETE FROM course_requirements")
		sqlDB.Close()
	})

	return SetupRouter(&config.Config{JWT_SECRET: "test-secret"})
}

func bearerToken(t *testing.T, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"email": "committee@school",
		"role":  role,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + signed
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func course(code string) grid.Cell {
	return grid.Cell{Courses: []grid.CourseAssignment{{CourseCode: code, DisplayName: code}}}
}

func validGrid() grid.Grid {
	return grid.New().
		Set(grid.Sunday, "08:00", course("CSC111")).
		Set(grid.Monday, "08:00", course("CSC111")).
		Set(grid.Tuesday, "08:00", course("CSC111")).
		Set(grid.Wednesday, "08:00", course("MAT101")).
		Set(grid.Thursday, "08:00", course("MAT101"))
}

func createTimetable(t *testing.T, r *gin.Engine, token string) models.Timetable {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/timetables", token, gin.H{
		"level": 4, "section": "A", "grid": validGrid(),
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	var tt models.Timetable
	if err := json.Unmarshal(w.Body.Bytes(), &tt); err != nil {
		t.Fatalf("decode timetable: %v", err)
	}
	return tt
}

func TestCreateEditRestoreFlow(t *testing.T) {
	r := setupAPI(t)
	editor := bearerToken(t, models.RoleEditor)

	tt := createTimetable(t, r, editor)
	if tt.EditCounter != 1 {
		t.Fatalf("edit counter = %d, want 1", tt.EditCounter)
	}

	// Edit: move CSC111.
	edited := validGrid().
		Set(grid.Sunday, "08:00", grid.Cell{}).
		Set(grid.Monday, "09:40", course("CSC111"))
	w := doJSON(t, r, http.MethodPut, "/timetables/"+tt.ID.String()+"/grid", editor, gin.H{
		"grid": edited, "summary": "Moved CSC111",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("edit status = %d, body %s", w.Code, w.Body.String())
	}
	var entry models.TimetableHistory
	if err := json.Unmarshal(w.Body.Bytes(), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry.HistoryVersion != 2 || entry.Summary != "Moved CSC111" {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	// History lists both versions, newest first.
	w = doJSON(t, r, http.MethodGet, "/timetables/"+tt.ID.String()+"/history", editor, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("history status = %d", w.Code)
	}
	var entries []models.TimetableHistory
	if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(entries) != 2 || entries[0].HistoryVersion != 2 {
		t.Fatalf("unexpected history: %+v", entries)
	}

	// Reconstruct version 1.
	w = doJSON(t, r, http.MethodGet, "/timetables/"+tt.ID.String()+"/versions/1", editor, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reconstruct status = %d", w.Code)
	}
	var g grid.Grid
	if err := json.Unmarshal(w.Body.Bytes(), &g); err != nil {
		t.Fatalf("decode grid: %v", err)
	}
	if !g.Equal(validGrid()) {
		t.Fatal("reconstructed version 1 does not match the initial grid")
	}

	// Restore version 1 appends version 3.
	w = doJSON(t, r, http.MethodPost, "/timetables/"+tt.ID.String()+"/restore/1", editor, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("restore status = %d, body %s", w.Code, w.Body.String())
	}
	if err := json.Unmarshal(w.Body.Bytes(), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry.HistoryVersion != 3 || entry.Summary != "Restored to version 1" {
		t.Fatalf("unexpected restore entry: %+v", entry)
	}
}

func TestCreateRejectsInvalidGrid(t *testing.T) {
	r := setupAPI(t)
	editor := bearerToken(t, models.RoleEditor)

	bad := validGrid().Set(grid.Tuesday, "08:00", grid.Cell{})
	w := doJSON(t, r, http.MethodPost, "/timetables", editor, gin.H{
		"level": 4, "section": "A", "grid": bad,
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422; body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Errors) == 0 {
		t.Fatal("422 body must carry the constraint error list")
	}
}

func TestNoOpEditIsBenign(t *testing.T) {
	r := setupAPI(t)
	editor := bearerToken(t, models.RoleEditor)
	tt := createTimetable(t, r, editor)

	w := doJSON(t, r, http.MethodPut, "/timetables/"+tt.ID.String()+"/grid", editor, gin.H{
		"grid": validGrid(),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("No changes")) {
		t.Fatalf("body = %s, want a no-changes message", w.Body.String())
	}
}

func TestReconstructUnknownVersionIs404(t *testing.T) {
	r := setupAPI(t)
	editor := bearerToken(t, models.RoleEditor)
	tt := createTimetable(t, r, editor)

	w := doJSON(t, r, http.MethodGet, "/timetables/"+tt.ID.String()+"/versions/9", editor, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestViewerCannotMutate(t *testing.T) {
	r := setupAPI(t)
	viewer := bearerToken(t, models.RoleViewer)

	w := doJSON(t, r, http.MethodPost, "/timetables", viewer, gin.H{
		"level": 4, "section": "A", "grid": validGrid(),
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestDraftHiddenFromViewers(t *testing.T) {
	r := setupAPI(t)
	editor := bearerToken(t, models.RoleEditor)
	viewer := bearerToken(t, models.RoleViewer)
	tt := createTimetable(t, r, editor)

	w := doJSON(t, r, http.MethodGet, "/timetables/"+tt.ID.String(), viewer, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("draft visible to viewer: status = %d", w.Code)
	}

	if w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/timetables/%s/publish", tt.ID), editor, nil); w.Code != http.StatusOK {
		t.Fatalf("publish status = %d", w.Code)
	}
	if w = doJSON(t, r, http.MethodGet, "/timetables/"+tt.ID.String(), viewer, nil); w.Code != http.StatusOK {
		t.Fatalf("published timetable hidden from viewer: status = %d", w.Code)
	}

	// The public listing needs a second publish.
	w = doJSON(t, r, http.MethodGet, "/timetables?level=4", "", nil)
	var list []models.Timetable
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 0 {
		t.Fatal("once-published timetable should not appear in the public listing")
	}

	if w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/timetables/%s/publish", tt.ID), editor, nil); w.Code != http.StatusOK {
		t.Fatalf("second publish status = %d", w.Code)
	}
	w = doJSON(t, r, http.MethodGet, "/timetables?level=4", "", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("twice-published timetable missing from public listing: %+v", list)
	}
}
