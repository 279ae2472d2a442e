package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"skillbridge/internal/auth"
	"skillbridge/internal/database"
)

// denyAllLimiter rejects every window check.
type denyAllLimiter struct{}

func (denyAllLimiter) Allow(context.Context, string) bool { return false }

func TestThrottledWriteRoutesReturn429(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)

	authService, err := auth.NewAuthService("routes-test-secret", time.Hour)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}

	company := database.Company{Name: "Acme"}
	if err := db.Create(&company).Error; err != nil {
		t.Fatalf("seed company: %v", err)
	}
	hr := database.User{Email: "hr@example.com", Role: database.RoleHR, CompanyID: &company.ID}
	if err := db.Create(&hr).Error; err != nil {
		t.Fatalf("seed hr: %v", err)
	}
	token, err := authService.GenerateToken(hr.ID, hr.Role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	router := gin.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	RegisterRoutes(router, db, &fakeEnqueuer{}, authService, denyAllLimiter{}, &Uploader{Storage: newFakeStorage()}, logger)

	req := jsonRequest(t, http.MethodPost, "/v1/jobs", map[string]any{"title": "Backend Engineer"})
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("POST /v1/jobs status = %d, want 429, body=%s", w.Code, w.Body.String())
	}

	// Reads stay unthrottled.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/jobs", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /v1/jobs status = %d, want 200, body=%s", w.Code, w.Body.String())
	}
}
