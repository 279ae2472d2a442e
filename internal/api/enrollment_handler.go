package api

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"skillbridge/internal/database"
)

// EnrollmentHandler serves the caller's enrollments and admin removal.
type EnrollmentHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewEnrollmentHandler builds the handler.
func NewEnrollmentHandler(db *gorm.DB, logger *slog.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{db: db, logger: logger}
}

// ListMyEnrollments returns the caller's enrollments with their courses.
func (h *EnrollmentHandler) ListMyEnrollments(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var enrollments []database.Enrollment
	err := h.db.WithContext(c.Request.Context()).
		Preload("Course").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&enrollments).Error
	if err != nil {
		requestLogger(c, h.logger).Error("list my enrollments failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OKList(c, enrollments, int64(len(enrollments)))
}

// DeleteEnrollment removes an enrollment by id.
func (h *EnrollmentHandler) DeleteEnrollment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid enrollment id required")
		return
	}

	ctx := c.Request.Context()
	var enrollment database.Enrollment
	if err := h.db.WithContext(ctx).First(&enrollment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "enrollment not found")
			return
		}
		requestLogger(c, h.logger).Error("delete enrollment lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if err := h.db.WithContext(ctx).Delete(&enrollment).Error; err != nil {
		requestLogger(c, h.logger).Error("delete enrollment failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OKMessage(c, "enrollment removed", nil)
}
