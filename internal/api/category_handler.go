package api

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"skillbridge/internal/database"
)

// CategoryHandler manages course categories.
type CategoryHandler struct {
	db       *gorm.DB
	uploader *Uploader
	logger   *slog.Logger
}

// NewCategoryHandler builds the handler.
func NewCategoryHandler(db *gorm.DB, uploader *Uploader, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{db: db, uploader: uploader, logger: logger}
}

type categoryListItem struct {
	database.Category
	CourseCount        int64   `json:"courseCount"`
	TotalEnrolledUsers int64   `json:"totalEnrolledUsers"`
	TotalLessonCount   int64   `json:"totalLessonCount"`
	AverageRating      float64 `json:"averageRating"`
}

// ListCategories returns all categories with course and enrollment aggregates.
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	var items []categoryListItem
	err := h.db.WithContext(c.Request.Context()).
		Model(&database.Category{}).
		Select(`categories.*,
			(SELECT COUNT(*) FROM courses WHERE courses.category_id = categories.id AND courses.deleted_at IS NULL) AS course_count,
			(SELECT COUNT(*) FROM enrollments
				JOIN courses ON courses.id = enrollments.course_id
				WHERE courses.category_id = categories.id AND enrollments.deleted_at IS NULL AND courses.deleted_at IS NULL) AS total_enrolled_users,
			(SELECT COALESCE(SUM(lesson_count), 0) FROM courses WHERE courses.category_id = categories.id AND courses.deleted_at IS NULL) AS total_lesson_count,
			(SELECT COALESCE(AVG(rating), 0) FROM courses WHERE courses.category_id = categories.id AND courses.deleted_at IS NULL) AS average_rating`).
		Scan(&items).Error
	if err != nil {
		requestLogger(c, h.logger).Error("list categories failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OKList(c, items, int64(len(items)))
}

// GetCategory returns one category with its courses.
func (h *CategoryHandler) GetCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid category id required")
		return
	}

	var category database.Category
	err := h.db.WithContext(c.Request.Context()).
		Preload("Courses").
		First(&category, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "category not found")
			return
		}
		requestLogger(c, h.logger).Error("get category failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OK(c, category)
}

// CreateCategory accepts a multipart form with a name and optional thumbnail.
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	name := c.PostForm("name")
	if name == "" {
		BadRequest(c, "name is required")
		return
	}

	category := database.Category{Name: name}

	thumbnailURL, err := h.uploader.SaveUpload(c, "thumbnail", "category-thumbnails")
	switch {
	case err == nil:
		category.ThumbnailURL = thumbnailURL
	case errors.Is(err, ErrNoFile):
		// thumbnail is optional
	case errors.Is(err, ErrMaliciousFile):
		BadRequest(c, "thumbnail failed the malware scan")
		return
	default:
		requestLogger(c, h.logger).Error("thumbnail upload failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&category).Error; err != nil {
		requestLogger(c, h.logger).Error("create category failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	Created(c, "category created", category)
}

// UpdateCategory merges a new name and/or thumbnail into a category.
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid category id required")
		return
	}

	ctx := c.Request.Context()
	var category database.Category
	if err := h.db.WithContext(ctx).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "category not found")
			return
		}
		requestLogger(c, h.logger).Error("update category lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	updates := map[string]any{}
	if name, set := c.GetPostForm("name"); set {
		if name == "" {
			BadRequest(c, "name cannot be empty")
			return
		}
		updates["name"] = name
	}

	previousThumbnail := ""
	thumbnailURL, err := h.uploader.SaveUpload(c, "thumbnail", "category-thumbnails")
	switch {
	case err == nil:
		updates["thumbnail_url"] = thumbnailURL
		previousThumbnail = category.ThumbnailURL
	case errors.Is(err, ErrNoFile):
	case errors.Is(err, ErrMaliciousFile):
		BadRequest(c, "thumbnail failed the malware scan")
		return
	default:
		requestLogger(c, h.logger).Error("thumbnail upload failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if len(updates) == 0 {
		BadRequest(c, "no fields to update")
		return
	}

	if err := h.db.WithContext(ctx).Model(&category).Updates(updates).Error; err != nil {
		requestLogger(c, h.logger).Error("update category failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if err := h.uploader.Discard(ctx, previousThumbnail); err != nil {
		requestLogger(c, h.logger).Warn("discard replaced thumbnail failed", slog.Any("error", err))
	}

	OK(c, category)
}

// DeleteCategory removes a category. Its courses survive with the category
// reference cleared.
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid category id required")
		return
	}

	ctx := c.Request.Context()
	var category database.Category
	if err := h.db.WithContext(ctx).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "category not found")
			return
		}
		requestLogger(c, h.logger).Error("delete category lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&database.Course{}).
			Where("category_id = ?", id).
			Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&category).Error
	})
	if err != nil {
		requestLogger(c, h.logger).Error("delete category failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if err := h.uploader.Discard(ctx, category.ThumbnailURL); err != nil {
		requestLogger(c, h.logger).Warn("discard category thumbnail failed", slog.Any("error", err))
	}

	OKMessage(c, "category deleted", nil)
}
