package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"skillbridge/internal/database"
)

func newCourseFixture(t *testing.T) (*CourseHandler, database.Course) {
	t.Helper()
	db := newTestDB(t)
	handler := NewCourseHandler(db, &Uploader{Storage: newFakeStorage()}, nil)

	course := database.Course{Title: "Go Fundamentals", Instructor: "R. Pike"}
	if err := db.Create(&course).Error; err != nil {
		t.Fatalf("seed course: %v", err)
	}
	return handler, course
}

func courseRouter(handler *CourseHandler, userID uint, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(asUser(userID, role))
	router.POST("/v1/courses/:id/enroll", handler.Enroll)
	router.POST("/v1/courses/:id/topics", handler.CreateCourseTopic)
	router.GET("/v1/courses/:id/topics", handler.ListCourseTopics)
	return router
}

func TestEnrollTwiceConflicts(t *testing.T) {
	handler, course := newCourseFixture(t)
	router := courseRouter(handler, 3, database.RoleUser)

	for attempt, want := range []int{http.StatusCreated, http.StatusConflict} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost,
			"/v1/courses/"+itoa(course.ID)+"/enroll", nil))
		if w.Code != want {
			t.Fatalf("attempt %d: status = %d, want %d, body=%s", attempt, w.Code, want, w.Body.String())
		}
	}

	var enrollments int64
	if err := handler.db.Model(&database.Enrollment{}).Count(&enrollments).Error; err != nil {
		t.Fatalf("count enrollments: %v", err)
	}
	if enrollments != 1 {
		t.Fatalf("enrollments = %d, want 1", enrollments)
	}
}

func TestEnrollDuplicateRaceConflicts(t *testing.T) {
	handler, course := newCourseFixture(t)
	router := courseRouter(handler, 3, database.RoleUser)

	// Slip the same enrollment in through a side session right before the
	// handler's insert, so the duplicate pre-check passes but the unique
	// index fires. Mirrors two concurrent enroll requests.
	raced := false
	err := handler.db.Callback().Create().Before("gorm:create").Register("enroll_race", func(tx *gorm.DB) {
		if raced || tx.Statement.Schema == nil || tx.Statement.Schema.Table != "enrollments" {
			return
		}
		raced = true
		if err := handler.db.Session(&gorm.Session{NewDB: true}).
			Exec("INSERT INTO enrollments (user_id, course_id) VALUES (?, ?)", 3, course.ID).Error; err != nil {
			t.Errorf("seed racing enrollment: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost,
		"/v1/courses/"+itoa(course.ID)+"/enroll", nil))
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409, body=%s", w.Code, w.Body.String())
	}
}

func TestEnrollMissingCourse(t *testing.T) {
	handler, _ := newCourseFixture(t)
	router := courseRouter(handler, 3, database.RoleUser)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/courses/999/enroll", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestCourseTopicsRoundTrip(t *testing.T) {
	handler, course := newCourseFixture(t)
	router := courseRouter(handler, 1, database.RoleAdmin)

	for _, title := range []string{"Basics", "Concurrency"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(t, http.MethodPost,
			"/v1/courses/"+itoa(course.ID)+"/topics", gin.H{"title": title}))
		if w.Code != http.StatusCreated {
			t.Fatalf("create topic %q: status = %d, body=%s", title, w.Code, w.Body.String())
		}
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/v1/courses/"+itoa(course.ID)+"/topics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("list topics: status = %d, body=%s", w.Code, w.Body.String())
	}

	body := decodeEnvelope(t, w)
	if total, _ := body["total"].(float64); total != 2 {
		t.Fatalf("total = %v, want 2", body["total"])
	}
	items, _ := body["data"].([]any)
	if len(items) != 2 {
		t.Fatalf("topics = %d, want 2", len(items))
	}
	first, _ := items[0].(map[string]any)
	if first["Title"] != "Basics" && first["title"] != "Basics" {
		t.Fatalf("first topic = %v, want Basics first", first)
	}
}
