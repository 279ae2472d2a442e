package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"skillbridge/internal/auth"
	"skillbridge/internal/database"
)

// UserHandler covers the admin-only user management surface.
type UserHandler struct {
	db          *gorm.DB
	authService *auth.AuthService
	logger      *slog.Logger
}

// NewUserHandler builds the handler.
func NewUserHandler(db *gorm.DB, authService *auth.AuthService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		db:          db,
		authService: authService,
		logger:      logger,
	}
}

// parseID reads a positive numeric id from the named path parameter.
func parseID(c *gin.Context, param string) (uint, bool) {
	raw := c.Param(param)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

type userDetail struct {
	ID        uint              `json:"id"`
	Email     string            `json:"email"`
	Name      string            `json:"name"`
	Role      string            `json:"role"`
	CompanyID *uint             `json:"companyId,omitempty"`
	Company   *database.Company `json:"company,omitempty"`
}

func newUserDetail(user database.User) userDetail {
	return userDetail{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		CompanyID: user.CompanyID,
		Company:   user.Company,
	}
}

// ListUsers returns every account without password hashes.
func (h *UserHandler) ListUsers(c *gin.Context) {
	var users []database.User
	if err := h.db.WithContext(c.Request.Context()).Find(&users).Error; err != nil {
		requestLogger(c, h.logger).Error("list users failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	out := make([]userDetail, 0, len(users))
	for _, u := range users {
		out = append(out, newUserDetail(u))
	}
	OKList(c, out, int64(len(out)))
}

// GetUser returns one account with its company, if any.
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid user id required")
		return
	}

	var user database.User
	err := h.db.WithContext(c.Request.Context()).Preload("Company").First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "user not found")
			return
		}
		requestLogger(c, h.logger).Error("get user failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OK(c, newUserDetail(user))
}

type createUserRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Name      string `json:"name" binding:"required"`
	Password  string `json:"password" binding:"required,min=8,max=72"`
	Role      string `json:"role" binding:"omitempty,oneof=user hr admin"`
	CompanyID *uint  `json:"companyId"`
}

// CreateUser lets an admin provision an account with an explicit role.
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := requestLogger(c, h.logger).With(slog.String("email", req.Email))

	var existing database.User
	if err := h.db.WithContext(ctx).Where("email = ?", req.Email).First(&existing).Error; err == nil {
		Conflict(c, "email already taken")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("create user lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	hashed, err := h.authService.HashPassword(req.Password)
	if err != nil {
		logger.Error("hash password failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	role := req.Role
	if role == "" {
		role = database.RoleUser
	}

	user := database.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hashed,
		Role:         role,
		CompanyID:    req.CompanyID,
	}
	if err := h.db.WithContext(ctx).Create(&user).Error; err != nil {
		logger.Error("create user failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	Created(c, "user created", newUserDetail(user))
}

// updateUserRequest carries only the fields present in the body; nil means
// "not provided", so omitted fields keep their prior values. companyId is
// raw JSON so an explicit null can detach the user from their company.
type updateUserRequest struct {
	Email     *string         `json:"email"`
	Name      *string         `json:"name"`
	Password  *string         `json:"password"`
	Role      *string         `json:"role"`
	CompanyID json.RawMessage `json:"companyId"`
}

// UpdateUser merges the provided fields into an existing account.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid user id required")
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := requestLogger(c, h.logger).With(slog.Uint64("user_id", uint64(id)))

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "user not found")
			return
		}
		logger.Error("update user lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	updates := map[string]any{}
	if req.Email != nil && *req.Email != user.Email {
		var other database.User
		err := h.db.WithContext(ctx).Where("email = ? AND id <> ?", *req.Email, id).First(&other).Error
		if err == nil {
			Conflict(c, "email already taken")
			return
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("email uniqueness check failed", slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
		updates["email"] = *req.Email
	}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Role != nil {
		switch *req.Role {
		case database.RoleUser, database.RoleHR, database.RoleAdmin:
			updates["role"] = *req.Role
		default:
			BadRequest(c, "invalid role")
			return
		}
	}
	if len(req.CompanyID) > 0 {
		if string(req.CompanyID) == "null" {
			updates["company_id"] = nil
		} else {
			var companyID uint
			if err := json.Unmarshal(req.CompanyID, &companyID); err != nil || companyID == 0 {
				BadRequest(c, "invalid companyId")
				return
			}
			updates["company_id"] = companyID
		}
	}
	if req.Password != nil {
		hashed, err := h.authService.HashPassword(*req.Password)
		if err != nil {
			logger.Error("hash password failed", slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
		updates["password_hash"] = hashed
	}

	if len(updates) == 0 {
		BadRequest(c, "no fields to update")
		return
	}

	if err := h.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		logger.Error("update user failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OK(c, newUserDetail(user))
}

// DeleteUser removes an account.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid user id required")
		return
	}

	ctx := c.Request.Context()
	var user database.User
	if err := h.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "user not found")
			return
		}
		requestLogger(c, h.logger).Error("delete user lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if err := h.db.WithContext(ctx).Delete(&user).Error; err != nil {
		requestLogger(c, h.logger).Error("delete user failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OKMessage(c, "user deleted", nil)
}

// GetUserApplications lists a user's job applications with posting titles.
func (h *UserHandler) GetUserApplications(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid user id required")
		return
	}

	var applications []database.Application
	err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", id).
		Preload("JobPosting").
		Preload("JobPosting.Company").
		Find(&applications).Error
	if err != nil {
		requestLogger(c, h.logger).Error("list user applications failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OKList(c, applications, int64(len(applications)))
}

// GetUserEnrollments lists a user's course enrollments.
func (h *UserHandler) GetUserEnrollments(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid user id required")
		return
	}

	var enrollments []database.Enrollment
	err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", id).
		Preload("Course").
		Find(&enrollments).Error
	if err != nil {
		requestLogger(c, h.logger).Error("list user enrollments failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OKList(c, enrollments, int64(len(enrollments)))
}
