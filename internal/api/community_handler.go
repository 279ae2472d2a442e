package api

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"skillbridge/internal/database"
)

// CommunityHandler manages the named community groups.
type CommunityHandler struct {
	db       *gorm.DB
	uploader *Uploader
	logger   *slog.Logger
}

// NewCommunityHandler builds the handler.
func NewCommunityHandler(db *gorm.DB, uploader *Uploader, logger *slog.Logger) *CommunityHandler {
	return &CommunityHandler{db: db, uploader: uploader, logger: logger}
}

// ListCommunities returns all communities.
func (h *CommunityHandler) ListCommunities(c *gin.Context) {
	var communities []database.Community
	if err := h.db.WithContext(c.Request.Context()).Find(&communities).Error; err != nil {
		requestLogger(c, h.logger).Error("list communities failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OKList(c, communities, int64(len(communities)))
}

// GetCommunity returns one community.
func (h *CommunityHandler) GetCommunity(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid community id required")
		return
	}

	var community database.Community
	if err := h.db.WithContext(c.Request.Context()).First(&community, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "community not found")
			return
		}
		requestLogger(c, h.logger).Error("get community failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OK(c, community)
}

// nameTaken reports whether another community already uses the name.
func (h *CommunityHandler) nameTaken(c *gin.Context, name string, excludeID uint) (bool, bool) {
	query := h.db.WithContext(c.Request.Context()).
		Model(&database.Community{}).
		Where("name = ?", name)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		requestLogger(c, h.logger).Error("community name check failed", slog.Any("error", err))
		Internal(c, "internal error")
		return false, false
	}
	return count > 0, true
}

// CreateCommunity accepts a multipart form with a unique name, description
// and optional cover image.
func (h *CommunityHandler) CreateCommunity(c *gin.Context) {
	name := c.PostForm("name")
	if name == "" {
		BadRequest(c, "name is required")
		return
	}

	taken, ok := h.nameTaken(c, name, 0)
	if !ok {
		return
	}
	if taken {
		Conflict(c, "community name already taken")
		return
	}

	community := database.Community{
		Name:        name,
		Description: c.PostForm("description"),
	}

	coverURL, err := h.uploader.SaveUpload(c, "cover", "community-covers")
	switch {
	case err == nil:
		community.CoverImageURL = coverURL
	case errors.Is(err, ErrNoFile):
	case errors.Is(err, ErrMaliciousFile):
		BadRequest(c, "cover image failed the malware scan")
		return
	default:
		requestLogger(c, h.logger).Error("cover upload failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&community).Error; err != nil {
		requestLogger(c, h.logger).Error("create community failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	Created(c, "community created", community)
}

// UpdateCommunity merges submitted form fields into a community.
func (h *CommunityHandler) UpdateCommunity(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid community id required")
		return
	}

	ctx := c.Request.Context()
	var community database.Community
	if err := h.db.WithContext(ctx).First(&community, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "community not found")
			return
		}
		requestLogger(c, h.logger).Error("update community lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	updates := map[string]any{}
	if name, set := c.GetPostForm("name"); set {
		if name == "" {
			BadRequest(c, "name cannot be empty")
			return
		}
		taken, ok := h.nameTaken(c, name, community.ID)
		if !ok {
			return
		}
		if taken {
			Conflict(c, "community name already taken")
			return
		}
		updates["name"] = name
	}
	if description, set := c.GetPostForm("description"); set {
		updates["description"] = description
	}

	previousCover := ""
	coverURL, err := h.uploader.SaveUpload(c, "cover", "community-covers")
	switch {
	case err == nil:
		updates["cover_image_url"] = coverURL
		previousCover = community.CoverImageURL
	case errors.Is(err, ErrNoFile):
	case errors.Is(err, ErrMaliciousFile):
		BadRequest(c, "cover image failed the malware scan")
		return
	default:
		requestLogger(c, h.logger).Error("cover upload failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if len(updates) == 0 {
		BadRequest(c, "no fields to update")
		return
	}

	if err := h.db.WithContext(ctx).Model(&community).Updates(updates).Error; err != nil {
		requestLogger(c, h.logger).Error("update community failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if err := h.uploader.Discard(ctx, previousCover); err != nil {
		requestLogger(c, h.logger).Warn("discard replaced cover failed", slog.Any("error", err))
	}

	OK(c, community)
}

// DeleteCommunity removes a community.
func (h *CommunityHandler) DeleteCommunity(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid community id required")
		return
	}

	ctx := c.Request.Context()
	var community database.Community
	if err := h.db.WithContext(ctx).First(&community, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "community not found")
			return
		}
		requestLogger(c, h.logger).Error("delete community lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if err := h.db.WithContext(ctx).Delete(&community).Error; err != nil {
		requestLogger(c, h.logger).Error("delete community failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if err := h.uploader.Discard(ctx, community.CoverImageURL); err != nil {
		requestLogger(c, h.logger).Warn("discard community cover failed", slog.Any("error", err))
	}

	OKMessage(c, "community deleted", nil)
}
