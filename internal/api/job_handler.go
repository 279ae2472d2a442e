package api

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"skillbridge/internal/database"
)

// JobHandler manages job postings (lowongan). Mutations are scoped to the
// HR user's own company.
type JobHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewJobHandler builds the handler.
func NewJobHandler(db *gorm.DB, logger *slog.Logger) *JobHandler {
	return &JobHandler{db: db, logger: logger}
}

type jobListItem struct {
	database.JobPosting
	CompanyName    string `json:"companyName"`
	CandidateCount int64  `json:"candidateCount"`
}

// ListJobs returns all postings with company names and candidate counts.
func (h *JobHandler) ListJobs(c *gin.Context) {
	var items []jobListItem
	err := h.db.WithContext(c.Request.Context()).
		Model(&database.JobPosting{}).
		Select(`job_postings.*,
			(SELECT name FROM companies WHERE companies.id = job_postings.company_id) AS company_name,
			(SELECT COUNT(*) FROM applications WHERE applications.job_posting_id = job_postings.id AND applications.deleted_at IS NULL) AS candidate_count`).
		Scan(&items).Error
	if err != nil {
		requestLogger(c, h.logger).Error("list jobs failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OKList(c, items, int64(len(items)))
}

// GetJob returns one posting.
func (h *JobHandler) GetJob(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid job id required")
		return
	}

	var posting database.JobPosting
	if err := h.db.WithContext(c.Request.Context()).First(&posting, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "job posting not found")
			return
		}
		requestLogger(c, h.logger).Error("get job failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OK(c, posting)
}

type createJobRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	Location    string `json:"location" binding:"required"`
	JobType     string `json:"jobType" binding:"required"`
	SalaryRange string `json:"salaryRange"`
}

// hrCompany resolves the caller to an HR user attached to a company.
// Admins without a company cannot post; a posting always has an owner.
func (h *JobHandler) hrCompany(c *gin.Context) (uint, bool) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return 0, false
	}

	var user database.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
		requestLogger(c, h.logger).Error("resolve caller failed", slog.Any("error", err))
		Internal(c, "internal error")
		return 0, false
	}

	if user.Role != database.RoleHR || user.CompanyID == nil {
		Forbidden(c, "caller is not an HR user attached to a company")
		return 0, false
	}
	return *user.CompanyID, true
}

// callerCompanyID returns the caller's company, if any.
func (h *JobHandler) callerCompanyID(c *gin.Context) (*uint, bool) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return nil, false
	}

	var user database.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
		requestLogger(c, h.logger).Error("resolve caller failed", slog.Any("error", err))
		Internal(c, "internal error")
		return nil, false
	}
	return user.CompanyID, true
}

// CreateJob publishes a posting under the HR caller's company.
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	companyID, ok := h.hrCompany(c)
	if !ok {
		return
	}

	posting := database.JobPosting{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		JobType:     req.JobType,
		SalaryRange: req.SalaryRange,
		CompanyID:   companyID,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&posting).Error; err != nil {
		requestLogger(c, h.logger).Error("create job failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	Created(c, "job posting created", posting)
}

type updateJobRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
	JobType     *string `json:"jobType"`
	SalaryRange *string `json:"salaryRange"`
}

// UpdateJob merges the provided fields into a posting owned by the caller's company.
func (h *JobHandler) UpdateJob(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid job id required")
		return
	}

	var req updateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	var posting database.JobPosting
	if err := h.db.WithContext(ctx).First(&posting, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "job posting not found")
			return
		}
		requestLogger(c, h.logger).Error("update job lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	callerCompany, ok := h.callerCompanyID(c)
	if !ok {
		return
	}
	if callerCompany == nil || *callerCompany != posting.CompanyID {
		Forbidden(c, "posting belongs to another company")
		return
	}

	updates := map[string]any{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Location != nil {
		updates["location"] = *req.Location
	}
	if req.JobType != nil {
		updates["job_type"] = *req.JobType
	}
	if req.SalaryRange != nil {
		updates["salary_range"] = *req.SalaryRange
	}
	if len(updates) == 0 {
		BadRequest(c, "no fields to update")
		return
	}

	if err := h.db.WithContext(ctx).Model(&posting).Updates(updates).Error; err != nil {
		requestLogger(c, h.logger).Error("update job failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OK(c, posting)
}

// DeleteJob removes a posting owned by the caller's company, dropping its
// applications first since the store may lack cascade support.
func (h *JobHandler) DeleteJob(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid job id required")
		return
	}

	ctx := c.Request.Context()
	var posting database.JobPosting
	if err := h.db.WithContext(ctx).First(&posting, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "job posting not found")
			return
		}
		requestLogger(c, h.logger).Error("delete job lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	callerCompany, ok := h.callerCompanyID(c)
	if !ok {
		return
	}
	if callerCompany == nil || *callerCompany != posting.CompanyID {
		Forbidden(c, "posting belongs to another company")
		return
	}

	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_posting_id = ?", id).Delete(&database.Application{}).Error; err != nil {
			return err
		}
		return tx.Delete(&posting).Error
	})
	if err != nil {
		requestLogger(c, h.logger).Error("delete job failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OKMessage(c, "job posting deleted", nil)
}
