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

func newUserRouter(t *testing.T) (*gin.Engine, *UserHandler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	service, err := auth.NewAuthService("user-test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}

	handler := NewUserHandler(db, service, nil)
	router := gin.New()
	router.Use(asUser(1, database.RoleAdmin))
	router.PATCH("/v1/users/:id", handler.UpdateUser)
	router.DELETE("/v1/users/:id", handler.DeleteUser)
	return router, handler
}

func seedUser(t *testing.T, handler *UserHandler, email, name string) database.User {
	t.Helper()
	user := database.User{Email: email, Name: name, PasswordHash: "irrelevant", Role: database.RoleUser}
	if err := handler.db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestUpdateUserCompanyAttachAndDetach(t *testing.T) {
	router, handler := newUserRouter(t)
	user := seedUser(t, handler, "hr@example.com", "Hanna")

	company := database.Company{Name: "Acme"}
	if err := handler.db.Create(&company).Error; err != nil {
		t.Fatalf("seed company: %v", err)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPatch, "/v1/users/"+itoa(user.ID), gin.H{
		"companyId": company.ID,
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("attach status = %d, want 200, body=%s", w.Code, w.Body.String())
	}

	var attached database.User
	if err := handler.db.First(&attached, user.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if attached.CompanyID == nil || *attached.CompanyID != company.ID {
		t.Fatalf("companyID = %v, want %d", attached.CompanyID, company.ID)
	}

	// An explicit null detaches; an omitted field would keep the company.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPatch, "/v1/users/"+itoa(user.ID), gin.H{
		"companyId": nil,
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("detach status = %d, want 200, body=%s", w.Code, w.Body.String())
	}

	var detached database.User
	if err := handler.db.First(&detached, user.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if detached.CompanyID != nil {
		t.Fatalf("companyID = %v, want nil after explicit null", *detached.CompanyID)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPatch, "/v1/users/"+itoa(user.ID), gin.H{
		"companyId": "not-a-number",
	}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid companyId status = %d, want 400, body=%s", w.Code, w.Body.String())
	}
}

func TestUpdateUserPartialKeepsOmittedFields(t *testing.T) {
	router, handler := newUserRouter(t)
	user := seedUser(t, handler, "carol@example.com", "Carol")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPatch, "/v1/users/"+itoa(user.ID), gin.H{
		"name": "Caroline",
	}))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
	}

	var updated database.User
	if err := handler.db.First(&updated, user.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if updated.Name != "Caroline" {
		t.Fatalf("name = %q, want Caroline", updated.Name)
	}
	if updated.Email != "carol@example.com" {
		t.Fatalf("email changed unexpectedly: %q", updated.Email)
	}
	if updated.Role != database.RoleUser {
		t.Fatalf("role changed unexpectedly: %q", updated.Role)
	}
}

func TestUpdateUserNoFields(t *testing.T) {
	router, handler := newUserRouter(t)
	dave := seedUser(t, handler, "dave@example.com", "Dave")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPatch, "/v1/users/"+itoa(dave.ID), gin.H{}))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body=%s", w.Code, w.Body.String())
	}
}

func TestUpdateUserEmailConflict(t *testing.T) {
	router, handler := newUserRouter(t)
	seedUser(t, handler, "first@example.com", "First")
	second := seedUser(t, handler, "second@example.com", "Second")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPatch,
		"/v1/users/"+itoa(second.ID), gin.H{"email": "first@example.com"}))

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409, body=%s", w.Code, w.Body.String())
	}
}

func TestDeleteUserMissing(t *testing.T) {
	router, _ := newUserRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/v1/users/999", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
