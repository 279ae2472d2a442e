package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"skillbridge/internal/database"
)

func newApplicationFixture(t *testing.T) (*ApplicationHandler, *fakeStorage, database.JobPosting) {
	t.Helper()
	db := newTestDB(t)
	storage := newFakeStorage()
	handler := NewApplicationHandler(db, &Uploader{Storage: storage}, nil)

	company := database.Company{Name: "Acme"}
	if err := db.Create(&company).Error; err != nil {
		t.Fatalf("seed company: %v", err)
	}
	posting := database.JobPosting{Title: "Backend Engineer", CompanyID: company.ID}
	if err := db.Create(&posting).Error; err != nil {
		t.Fatalf("seed posting: %v", err)
	}
	if err := db.Create(&database.User{Email: "cand@example.com"}).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return handler, storage, posting
}

func applyRouter(handler *ApplicationHandler, userID uint) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(asUser(userID, database.RoleUser))
	router.POST("/v1/jobs/:id/apply", handler.Apply)
	router.DELETE("/v1/applications/:id", handler.Withdraw)
	return router
}

func TestApplyStoresResume(t *testing.T) {
	handler, storage, posting := newApplicationFixture(t)
	router := applyRouter(handler, 1)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartRequest(t, http.MethodPost,
		"/v1/jobs/"+itoa(posting.ID)+"/apply",
		map[string]string{"coverLetter": "hire me"},
		map[string][]byte{"resume": []byte("%PDF-1.4 fake resume")},
	))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", w.Code, w.Body.String())
	}
	if len(storage.uploaded) != 1 {
		t.Fatalf("uploaded objects = %d, want 1", len(storage.uploaded))
	}

	var application database.Application
	if err := handler.db.First(&application).Error; err != nil {
		t.Fatalf("load application: %v", err)
	}
	if application.Status != database.StatusApplied {
		t.Fatalf("status = %q, want %q", application.Status, database.StatusApplied)
	}
	if !strings.HasPrefix(application.ResumeURL, "https://storage.example.invalid/resumes/") {
		t.Fatalf("resume url = %q", application.ResumeURL)
	}
	if application.CoverLetter != "hire me" {
		t.Fatalf("cover letter = %q", application.CoverLetter)
	}
}

func TestApplyWithoutResume(t *testing.T) {
	handler, _, posting := newApplicationFixture(t)
	router := applyRouter(handler, 1)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartRequest(t, http.MethodPost,
		"/v1/jobs/"+itoa(posting.ID)+"/apply", nil, nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body=%s", w.Code, w.Body.String())
	}
}

func TestApplyTwiceConflicts(t *testing.T) {
	handler, _, posting := newApplicationFixture(t)
	router := applyRouter(handler, 1)

	for attempt, want := range []int{http.StatusCreated, http.StatusConflict} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, multipartRequest(t, http.MethodPost,
			"/v1/jobs/"+itoa(posting.ID)+"/apply", nil,
			map[string][]byte{"resume": []byte("resume")},
		))
		if w.Code != want {
			t.Fatalf("attempt %d: status = %d, want %d, body=%s", attempt, w.Code, want, w.Body.String())
		}
	}
}

func TestApplyDuplicateRaceConflicts(t *testing.T) {
	handler, storage, posting := newApplicationFixture(t)
	router := applyRouter(handler, 1)

	// A concurrent winner lands between the duplicate pre-check and the
	// handler's insert; the loser must answer 409 and drop its upload.
	raced := false
	err := handler.db.Callback().Create().Before("gorm:create").Register("apply_race", func(tx *gorm.DB) {
		if raced || tx.Statement.Schema == nil || tx.Statement.Schema.Table != "applications" {
			return
		}
		raced = true
		if err := handler.db.Session(&gorm.Session{NewDB: true}).
			Exec("INSERT INTO applications (user_id, job_posting_id) VALUES (?, ?)", 1, posting.ID).Error; err != nil {
			t.Errorf("seed racing application: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartRequest(t, http.MethodPost,
		"/v1/jobs/"+itoa(posting.ID)+"/apply", nil,
		map[string][]byte{"resume": []byte("resume")},
	))
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409, body=%s", w.Code, w.Body.String())
	}
	if len(storage.uploaded) != 0 {
		t.Fatalf("uploaded objects = %d, want 0 after the losing apply", len(storage.uploaded))
	}
}

func TestWithdrawDiscardsResumeObject(t *testing.T) {
	handler, storage, posting := newApplicationFixture(t)
	router := applyRouter(handler, 1)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartRequest(t, http.MethodPost,
		"/v1/jobs/"+itoa(posting.ID)+"/apply", nil,
		map[string][]byte{"resume": []byte("resume")},
	))
	if w.Code != http.StatusCreated {
		t.Fatalf("apply status = %d, body=%s", w.Code, w.Body.String())
	}

	var application database.Application
	if err := handler.db.First(&application).Error; err != nil {
		t.Fatalf("load application: %v", err)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete,
		"/v1/applications/"+itoa(application.ID), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("withdraw status = %d, body=%s", w.Code, w.Body.String())
	}

	if len(storage.uploaded) != 0 {
		t.Fatalf("uploaded objects after withdraw = %d, want 0", len(storage.uploaded))
	}
	if len(storage.deleted) != 1 {
		t.Fatalf("deleted objects = %d, want 1", len(storage.deleted))
	}
}

func TestResumeLinkRequiresMatchingCompany(t *testing.T) {
	handler, _, posting := newApplicationFixture(t)

	hr := database.User{Email: "hr@example.com", Role: database.RoleHR, CompanyID: &posting.CompanyID}
	if err := handler.db.Create(&hr).Error; err != nil {
		t.Fatalf("seed hr: %v", err)
	}
	application := database.Application{
		UserID:       1,
		JobPostingID: posting.ID,
		ResumeURL:    "https://storage.example.invalid/resumes/abc.pdf",
	}
	if err := handler.db.Create(&application).Error; err != nil {
		t.Fatalf("seed application: %v", err)
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(asUser(hr.ID, database.RoleHR))
	router.GET("/v1/applications/:id/resume-link", handler.ResumeLink)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/v1/applications/"+itoa(application.ID)+"/resume-link", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
	}
	data, _ := decodeEnvelope(t, w)["data"].(map[string]any)
	url, _ := data["url"].(string)
	if !strings.HasPrefix(url, "https://storage.example.invalid/presigned/resumes/") {
		t.Fatalf("presigned url = %q", url)
	}

	// HR from a different company must not reach the resume.
	other := database.Company{Name: "Globex"}
	if err := handler.db.Create(&other).Error; err != nil {
		t.Fatalf("seed company: %v", err)
	}
	outsider := database.User{Email: "hr2@example.com", Role: database.RoleHR, CompanyID: &other.ID}
	if err := handler.db.Create(&outsider).Error; err != nil {
		t.Fatalf("seed outsider: %v", err)
	}
	foreign := gin.New()
	foreign.Use(asUser(outsider.ID, database.RoleHR))
	foreign.GET("/v1/applications/:id/resume-link", handler.ResumeLink)

	w = httptest.NewRecorder()
	foreign.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/v1/applications/"+itoa(application.ID)+"/resume-link", nil))
	if w.Code != http.StatusForbidden {
		t.Fatalf("foreign status = %d, want 403, body=%s", w.Code, w.Body.String())
	}
}

func TestWithdrawForeignApplicationForbidden(t *testing.T) {
	handler, _, posting := newApplicationFixture(t)

	application := database.Application{UserID: 1, JobPostingID: posting.ID}
	if err := handler.db.Create(&application).Error; err != nil {
		t.Fatalf("seed application: %v", err)
	}

	router := applyRouter(handler, 2)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete,
		"/v1/applications/"+itoa(application.ID), nil))

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403, body=%s", w.Code, w.Body.String())
	}
}
