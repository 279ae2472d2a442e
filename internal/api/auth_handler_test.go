package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"skillbridge/internal/auth"
	"skillbridge/internal/database"
)

func setupAuthHandler(t *testing.T) (*gin.Engine, *AuthHandler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	service, err := auth.NewAuthService("handler-test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}

	handler := NewAuthHandler(db, service, nil)
	router := gin.New()
	router.POST("/v1/auth/register", handler.Register)
	router.POST("/v1/auth/login", handler.Login)
	return router, handler
}

func TestRegisterIssuesToken(t *testing.T) {
	router, _ := setupAuthHandler(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/v1/auth/register", gin.H{
		"email":    "ana@example.com",
		"name":     "Ana",
		"password": "hunter2-hunter2",
	}))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", w.Code, w.Body.String())
	}

	body := decodeEnvelope(t, w)
	data, _ := body["data"].(map[string]any)
	if data == nil {
		t.Fatalf("missing data in %s", w.Body.String())
	}
	if token, _ := data["token"].(string); token == "" {
		t.Fatal("expected a token in the registration response")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	router, _ := setupAuthHandler(t)

	payload := gin.H{"email": "dup@example.com", "name": "Dup", "password": "hunter2-hunter2"}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/v1/auth/register", payload))
	if w.Code != http.StatusCreated {
		t.Fatalf("first register: status = %d, want 201", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/v1/auth/register", payload))
	if w.Code != http.StatusConflict {
		t.Fatalf("second register: status = %d, want 409", w.Code)
	}
}

func TestLogin(t *testing.T) {
	router, handler := setupAuthHandler(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/v1/auth/register", gin.H{
		"email":    "bob@example.com",
		"name":     "Bob",
		"password": "correct-horse-battery",
	}))
	if w.Code != http.StatusCreated {
		t.Fatalf("register: status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/v1/auth/login", gin.H{
		"email":    "bob@example.com",
		"password": "correct-horse-battery",
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("login: status = %d, want 200, body=%s", w.Code, w.Body.String())
	}

	var stored database.User
	if err := handler.db.Where("email = ?", "bob@example.com").First(&stored).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if stored.Role != database.RoleUser {
		t.Fatalf("role = %q, want %q", stored.Role, database.RoleUser)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	router, _ := setupAuthHandler(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/v1/auth/register", gin.H{
		"email":    "eve@example.com",
		"name":     "Eve",
		"password": "correct-horse-battery",
	}))
	if w.Code != http.StatusCreated {
		t.Fatalf("register: status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/v1/auth/login", gin.H{
		"email":    "eve@example.com",
		"password": "wrong-password",
	}))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("login: status = %d, want 401", w.Code)
	}
}
