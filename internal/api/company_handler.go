package api

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"skillbridge/internal/database"
)

// CompanyHandler manages companies and their logo uploads.
type CompanyHandler struct {
	db       *gorm.DB
	uploader *Uploader
	logger   *slog.Logger
}

// NewCompanyHandler builds the handler.
func NewCompanyHandler(db *gorm.DB, uploader *Uploader, logger *slog.Logger) *CompanyHandler {
	return &CompanyHandler{
		db:       db,
		uploader: uploader,
		logger:   logger,
	}
}

type companyListItem struct {
	database.Company
	HRUserCount     int64 `json:"hrUserCount"`
	JobPostingCount int64 `json:"jobPostingCount"`
}

// ListCompanies returns all companies with HR-user and posting counts.
func (h *CompanyHandler) ListCompanies(c *gin.Context) {
	var items []companyListItem
	err := h.db.WithContext(c.Request.Context()).
		Model(&database.Company{}).
		Select(`companies.*,
			(SELECT COUNT(*) FROM users WHERE users.company_id = companies.id AND users.deleted_at IS NULL) AS hr_user_count,
			(SELECT COUNT(*) FROM job_postings WHERE job_postings.company_id = companies.id AND job_postings.deleted_at IS NULL) AS job_posting_count`).
		Scan(&items).Error
	if err != nil {
		requestLogger(c, h.logger).Error("list companies failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OKList(c, items, int64(len(items)))
}

// GetCompany returns one company.
func (h *CompanyHandler) GetCompany(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid company id required")
		return
	}

	var company database.Company
	if err := h.db.WithContext(c.Request.Context()).First(&company, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "company not found")
			return
		}
		requestLogger(c, h.logger).Error("get company failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OK(c, company)
}

// CreateCompany creates a company; the logo arrives as an optional multipart
// "logo" field and is stored in object storage.
func (h *CompanyHandler) CreateCompany(c *gin.Context) {
	name := c.PostForm("name")
	description := c.PostForm("description")
	website := c.PostForm("website")
	location := c.PostForm("location")

	switch {
	case name == "":
		BadRequest(c, "name is required")
		return
	case description == "":
		BadRequest(c, "description is required")
		return
	case location == "":
		BadRequest(c, "location is required")
		return
	}

	ctx := c.Request.Context()
	logger := requestLogger(c, h.logger).With(slog.String("company", name))

	var existing database.Company
	if err := h.db.WithContext(ctx).Where("name = ?", name).First(&existing).Error; err == nil {
		Conflict(c, "company name already taken")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("company lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logoURL, err := h.uploader.SaveUpload(c, "logo", "company-logos")
	if err != nil && !errors.Is(err, ErrNoFile) {
		if errors.Is(err, ErrMaliciousFile) {
			BadRequest(c, "malicious file detected")
			return
		}
		logger.Error("upload logo failed", slog.Any("error", err))
		Internal(c, "failed to upload logo")
		return
	}

	company := database.Company{
		Name:        name,
		Description: description,
		Website:     website,
		Location:    location,
		LogoURL:     logoURL,
	}
	if err := h.db.WithContext(ctx).Create(&company).Error; err != nil {
		logger.Error("create company failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	Created(c, "company created", company)
}

// UpdateCompany merges the provided form fields; a new logo replaces the URL.
func (h *CompanyHandler) UpdateCompany(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid company id required")
		return
	}

	ctx := c.Request.Context()
	logger := requestLogger(c, h.logger).With(slog.Uint64("company_id", uint64(id)))

	var company database.Company
	if err := h.db.WithContext(ctx).First(&company, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "company not found")
			return
		}
		logger.Error("update company lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	updates := map[string]any{}
	if name, ok := c.GetPostForm("name"); ok && name != company.Name {
		var other database.Company
		err := h.db.WithContext(ctx).Where("name = ? AND id <> ?", name, id).First(&other).Error
		if err == nil {
			Conflict(c, "company name already taken")
			return
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("company uniqueness check failed", slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
		updates["name"] = name
	}
	if description, ok := c.GetPostForm("description"); ok {
		updates["description"] = description
	}
	if website, ok := c.GetPostForm("website"); ok {
		updates["website"] = website
	}
	if location, ok := c.GetPostForm("location"); ok {
		updates["location"] = location
	}

	previousLogo := ""
	logoURL, err := h.uploader.SaveUpload(c, "logo", "company-logos")
	if err == nil {
		updates["logo_url"] = logoURL
		previousLogo = company.LogoURL
	} else if !errors.Is(err, ErrNoFile) {
		if errors.Is(err, ErrMaliciousFile) {
			BadRequest(c, "malicious file detected")
			return
		}
		logger.Error("upload logo failed", slog.Any("error", err))
		Internal(c, "failed to upload logo")
		return
	}

	if len(updates) == 0 {
		BadRequest(c, "no fields to update")
		return
	}

	if err := h.db.WithContext(ctx).Model(&company).Updates(updates).Error; err != nil {
		logger.Error("update company failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if err := h.uploader.Discard(ctx, previousLogo); err != nil {
		logger.Warn("discard replaced logo failed", slog.Any("error", err))
	}

	OK(c, company)
}

// DeleteCompany removes a company. Postings (and their applications) must be
// gone first; companies with live postings answer with a conflict.
func (h *CompanyHandler) DeleteCompany(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid company id required")
		return
	}

	ctx := c.Request.Context()
	var company database.Company
	if err := h.db.WithContext(ctx).First(&company, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "company not found")
			return
		}
		requestLogger(c, h.logger).Error("delete company lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	var postings int64
	if err := h.db.WithContext(ctx).Model(&database.JobPosting{}).Where("company_id = ?", id).Count(&postings).Error; err != nil {
		requestLogger(c, h.logger).Error("count postings failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	if postings > 0 {
		Conflict(c, "company still has job postings")
		return
	}

	if err := h.db.WithContext(ctx).Delete(&company).Error; err != nil {
		requestLogger(c, h.logger).Error("delete company failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if err := h.uploader.Discard(ctx, company.LogoURL); err != nil {
		requestLogger(c, h.logger).Warn("discard company logo failed", slog.Any("error", err))
	}

	OKMessage(c, "company deleted", nil)
}
