package api

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"skillbridge/internal/database"
)

// ForumHandler serves the discussion threads and replies.
type ForumHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewForumHandler builds the handler.
func NewForumHandler(db *gorm.DB, logger *slog.Logger) *ForumHandler {
	return &ForumHandler{db: db, logger: logger}
}

type threadListItem struct {
	database.ForumThread
	ReplyCount int64 `json:"replyCount"`
}

// ListThreads returns all threads newest first with their reply counts.
func (h *ForumHandler) ListThreads(c *gin.Context) {
	var items []threadListItem
	err := h.db.WithContext(c.Request.Context()).
		Model(&database.ForumThread{}).
		Select(`forum_threads.*,
			(SELECT COUNT(*) FROM forum_posts WHERE forum_posts.thread_id = forum_threads.id AND forum_posts.deleted_at IS NULL) AS reply_count`).
		Order("forum_threads.created_at DESC").
		Scan(&items).Error
	if err != nil {
		requestLogger(c, h.logger).Error("list threads failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OKList(c, items, int64(len(items)))
}

type createThreadRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// CreateThread starts a new discussion authored by the caller.
func (h *ForumHandler) CreateThread(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req createThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	thread := database.ForumThread{
		Title:    req.Title,
		Content:  req.Content,
		AuthorID: userID,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&thread).Error; err != nil {
		requestLogger(c, h.logger).Error("create thread failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	Created(c, "thread created", thread)
}

// GetThread returns one thread with its author and posts oldest first.
func (h *ForumHandler) GetThread(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid thread id required")
		return
	}

	var thread database.ForumThread
	err := h.db.WithContext(c.Request.Context()).
		Preload("Author").
		Preload("Posts", func(db *gorm.DB) *gorm.DB {
			return db.Order("forum_posts.created_at ASC")
		}).
		Preload("Posts.Author").
		First(&thread, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "thread not found")
			return
		}
		requestLogger(c, h.logger).Error("get thread failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OK(c, thread)
}

type createReplyRequest struct {
	Content string `json:"content" binding:"required"`
}

// Reply appends a post to a thread.
func (h *ForumHandler) Reply(c *gin.Context) {
	threadID, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid thread id required")
		return
	}
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req createReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	var thread database.ForumThread
	if err := h.db.WithContext(ctx).First(&thread, threadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "thread not found")
			return
		}
		requestLogger(c, h.logger).Error("reply lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	post := database.ForumPost{
		ThreadID: threadID,
		AuthorID: userID,
		Content:  req.Content,
	}
	if err := h.db.WithContext(ctx).Create(&post).Error; err != nil {
		requestLogger(c, h.logger).Error("create reply failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	Created(c, "reply posted", post)
}
