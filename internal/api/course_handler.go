package api

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"skillbridge/internal/database"
)

// CourseHandler manages courses, enrollment and the topics nested under a course.
type CourseHandler struct {
	db       *gorm.DB
	uploader *Uploader
	logger   *slog.Logger
}

// NewCourseHandler builds the handler.
func NewCourseHandler(db *gorm.DB, uploader *Uploader, logger *slog.Logger) *CourseHandler {
	return &CourseHandler{db: db, uploader: uploader, logger: logger}
}

type courseListItem struct {
	database.Course
	EnrolledCount int64 `json:"enrolledCount"`
}

// ListCourses returns all courses with their enrollment counts.
func (h *CourseHandler) ListCourses(c *gin.Context) {
	var items []courseListItem
	err := h.db.WithContext(c.Request.Context()).
		Model(&database.Course{}).
		Select(`courses.*,
			(SELECT COUNT(*) FROM enrollments WHERE enrollments.course_id = courses.id AND enrollments.deleted_at IS NULL) AS enrolled_count`).
		Scan(&items).Error
	if err != nil {
		requestLogger(c, h.logger).Error("list courses failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OKList(c, items, int64(len(items)))
}

// GetCourse returns one course with its category and topics.
func (h *CourseHandler) GetCourse(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid course id required")
		return
	}

	var course database.Course
	err := h.db.WithContext(c.Request.Context()).
		Preload("Category").
		Preload("Topics").
		First(&course, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "course not found")
			return
		}
		requestLogger(c, h.logger).Error("get course failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OK(c, course)
}

// formInt parses an optional integer form field.
func formInt(c *gin.Context, field string) (int, bool, error) {
	raw, set := c.GetPostForm(field)
	if !set || raw == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// CreateCourse accepts a multipart form with the course fields and an
// optional thumbnail.
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	title := c.PostForm("title")
	description := c.PostForm("description")
	instructor := c.PostForm("instructor")
	if title == "" {
		BadRequest(c, "title is required")
		return
	}
	if description == "" {
		BadRequest(c, "description is required")
		return
	}
	if instructor == "" {
		BadRequest(c, "instructor is required")
		return
	}

	course := database.Course{
		Title:       title,
		Description: description,
		Instructor:  instructor,
	}

	if v, set, err := formInt(c, "duration"); err != nil {
		BadRequest(c, "duration must be a number")
		return
	} else if set {
		course.Duration = v
	}
	if v, set, err := formInt(c, "lessonCount"); err != nil {
		BadRequest(c, "lessonCount must be a number")
		return
	} else if set {
		course.LessonCount = v
	}

	ctx := c.Request.Context()
	if raw, set := c.GetPostForm("categoryId"); set && raw != "" {
		categoryID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			BadRequest(c, "categoryId must be a number")
			return
		}
		var category database.Category
		if err := h.db.WithContext(ctx).First(&category, categoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				NotFound(c, "category not found")
				return
			}
			requestLogger(c, h.logger).Error("category lookup failed", slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
		id := uint(categoryID)
		course.CategoryID = &id
	}

	thumbnailURL, err := h.uploader.SaveUpload(c, "thumbnail", "course-thumbnails")
	switch {
	case err == nil:
		course.ThumbnailURL = thumbnailURL
	case errors.Is(err, ErrNoFile):
	case errors.Is(err, ErrMaliciousFile):
		BadRequest(c, "thumbnail failed the malware scan")
		return
	default:
		requestLogger(c, h.logger).Error("thumbnail upload failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if err := h.db.WithContext(ctx).Create(&course).Error; err != nil {
		requestLogger(c, h.logger).Error("create course failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	Created(c, "course created", course)
}

// UpdateCourse merges submitted form fields into a course.
func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid course id required")
		return
	}

	ctx := c.Request.Context()
	var course database.Course
	if err := h.db.WithContext(ctx).First(&course, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "course not found")
			return
		}
		requestLogger(c, h.logger).Error("update course lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	updates := map[string]any{}
	for field, column := range map[string]string{
		"title":       "title",
		"description": "description",
		"instructor":  "instructor",
	} {
		if v, set := c.GetPostForm(field); set {
			if v == "" {
				BadRequest(c, field+" cannot be empty")
				return
			}
			updates[column] = v
		}
	}

	if v, set, err := formInt(c, "duration"); err != nil {
		BadRequest(c, "duration must be a number")
		return
	} else if set {
		updates["duration"] = v
	}
	if v, set, err := formInt(c, "lessonCount"); err != nil {
		BadRequest(c, "lessonCount must be a number")
		return
	} else if set {
		updates["lesson_count"] = v
	}

	if raw, set := c.GetPostForm("categoryId"); set {
		if raw == "" {
			updates["category_id"] = nil
		} else {
			categoryID, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				BadRequest(c, "categoryId must be a number")
				return
			}
			var category database.Category
			if err := h.db.WithContext(ctx).First(&category, categoryID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					NotFound(c, "category not found")
					return
				}
				requestLogger(c, h.logger).Error("category lookup failed", slog.Any("error", err))
				Internal(c, "internal error")
				return
			}
			updates["category_id"] = uint(categoryID)
		}
	}

	previousThumbnail := ""
	thumbnailURL, err := h.uploader.SaveUpload(c, "thumbnail", "course-thumbnails")
	switch {
	case err == nil:
		updates["thumbnail_url"] = thumbnailURL
		previousThumbnail = course.ThumbnailURL
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

	if err := h.db.WithContext(ctx).Model(&course).Updates(updates).Error; err != nil {
		requestLogger(c, h.logger).Error("update course failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if err := h.uploader.Discard(ctx, previousThumbnail); err != nil {
		requestLogger(c, h.logger).Warn("discard replaced thumbnail failed", slog.Any("error", err))
	}

	OK(c, course)
}

// DeleteCourse removes a course together with its topics and enrollments.
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid course id required")
		return
	}

	ctx := c.Request.Context()
	var course database.Course
	if err := h.db.WithContext(ctx).First(&course, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "course not found")
			return
		}
		requestLogger(c, h.logger).Error("delete course lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("course_id = ?", id).Delete(&database.Enrollment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&database.Topic{}).Error; err != nil {
			return err
		}
		return tx.Delete(&course).Error
	})
	if err != nil {
		requestLogger(c, h.logger).Error("delete course failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if err := h.uploader.Discard(ctx, course.ThumbnailURL); err != nil {
		requestLogger(c, h.logger).Warn("discard course thumbnail failed", slog.Any("error", err))
	}

	OKMessage(c, "course deleted", nil)
}

// Enroll registers the caller into a course, at most once.
func (h *CourseHandler) Enroll(c *gin.Context) {
	courseID, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid course id required")
		return
	}
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	var course database.Course
	if err := h.db.WithContext(ctx).First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "course not found")
			return
		}
		requestLogger(c, h.logger).Error("enroll lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	var existing int64
	if err := h.db.WithContext(ctx).Model(&database.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&existing).Error; err != nil {
		requestLogger(c, h.logger).Error("enroll duplicate check failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	if existing > 0 {
		Conflict(c, "you are already enrolled in this course")
		return
	}

	enrollment := database.Enrollment{UserID: userID, CourseID: courseID}
	if err := h.db.WithContext(ctx).Create(&enrollment).Error; err != nil {
		// Loser of a concurrent duplicate enroll hits the unique index.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			Conflict(c, "you are already enrolled in this course")
			return
		}
		requestLogger(c, h.logger).Error("create enrollment failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	Created(c, "enrolled", enrollment)
}

// ListCourseTopics returns a course's topics in creation order.
func (h *CourseHandler) ListCourseTopics(c *gin.Context) {
	courseID, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid course id required")
		return
	}

	ctx := c.Request.Context()
	var course database.Course
	if err := h.db.WithContext(ctx).First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "course not found")
			return
		}
		requestLogger(c, h.logger).Error("topics lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	var topics []database.Topic
	err := h.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at ASC").
		Find(&topics).Error
	if err != nil {
		requestLogger(c, h.logger).Error("list topics failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OKList(c, topics, int64(len(topics)))
}

type createTopicRequest struct {
	Title    string `json:"title" binding:"required"`
	Content  string `json:"content"`
	VideoURL string `json:"videoUrl"`
}

// CreateCourseTopic appends a topic to a course.
func (h *CourseHandler) CreateCourseTopic(c *gin.Context) {
	courseID, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid course id required")
		return
	}

	var req createTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	var course database.Course
	if err := h.db.WithContext(ctx).First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "course not found")
			return
		}
		requestLogger(c, h.logger).Error("create topic lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	topic := database.Topic{
		CourseID: courseID,
		Title:    req.Title,
		Content:  req.Content,
		VideoURL: req.VideoURL,
	}
	if err := h.db.WithContext(ctx).Create(&topic).Error; err != nil {
		requestLogger(c, h.logger).Error("create topic failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	Created(c, "topic created", topic)
}

// ListCourseEnrollments returns everyone enrolled in a course.
func (h *CourseHandler) ListCourseEnrollments(c *gin.Context) {
	courseID, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid course id required")
		return
	}

	var enrollments []database.Enrollment
	err := h.db.WithContext(c.Request.Context()).
		Preload("User").
		Where("course_id = ?", courseID).
		Find(&enrollments).Error
	if err != nil {
		requestLogger(c, h.logger).Error("list course enrollments failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OKList(c, enrollments, int64(len(enrollments)))
}
