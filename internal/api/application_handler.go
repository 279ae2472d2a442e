package api

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"skillbridge/internal/database"
)

// resumeLinkTTL bounds how long a presigned resume download stays valid.
const resumeLinkTTL = 15 * time.Minute

// ApplicationHandler manages candidate applications to job postings.
type ApplicationHandler struct {
	db       *gorm.DB
	uploader *Uploader
	logger   *slog.Logger
}

// NewApplicationHandler builds the handler.
func NewApplicationHandler(db *gorm.DB, uploader *Uploader, logger *slog.Logger) *ApplicationHandler {
	return &ApplicationHandler{db: db, uploader: uploader, logger: logger}
}

// Apply submits an application to a posting. The resume file is mandatory
// and a user may apply to a given posting at most once.
func (h *ApplicationHandler) Apply(c *gin.Context) {
	jobID, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid job id required")
		return
	}
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	var posting database.JobPosting
	if err := h.db.WithContext(ctx).First(&posting, jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "job posting not found")
			return
		}
		requestLogger(c, h.logger).Error("apply lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	var existing int64
	if err := h.db.WithContext(ctx).Model(&database.Application{}).
		Where("user_id = ? AND job_posting_id = ?", userID, jobID).
		Count(&existing).Error; err != nil {
		requestLogger(c, h.logger).Error("apply duplicate check failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	if existing > 0 {
		Conflict(c, "you have already applied to this job")
		return
	}

	resumeURL, err := h.uploader.SaveUpload(c, "resume", "resumes")
	if err != nil {
		switch {
		case errors.Is(err, ErrNoFile):
			BadRequest(c, "resume file is required")
		case errors.Is(err, ErrMaliciousFile):
			BadRequest(c, "resume failed the malware scan")
		default:
			requestLogger(c, h.logger).Error("resume upload failed", slog.Any("error", err))
			Internal(c, "internal error")
		}
		return
	}

	application := database.Application{
		UserID:       userID,
		JobPostingID: jobID,
		ResumeURL:    resumeURL,
		Status:       database.StatusApplied,
		CoverLetter:  c.PostForm("coverLetter"),
	}
	if err := h.db.WithContext(ctx).Create(&application).Error; err != nil {
		// Loser of a concurrent duplicate apply hits the unique index.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if derr := h.uploader.Discard(ctx, resumeURL); derr != nil {
				requestLogger(c, h.logger).Warn("discard resume failed", slog.Any("error", derr))
			}
			Conflict(c, "you have already applied to this job")
			return
		}
		requestLogger(c, h.logger).Error("create application failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	Created(c, "application submitted", application)
}

// ListMyApplications returns the caller's applications, postings included.
func (h *ApplicationHandler) ListMyApplications(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var applications []database.Application
	err := h.db.WithContext(c.Request.Context()).
		Preload("JobPosting").Preload("JobPosting.Company").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&applications).Error
	if err != nil {
		requestLogger(c, h.logger).Error("list my applications failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OKList(c, applications, int64(len(applications)))
}

// canManagePosting reports whether the caller may act on candidates of the
// posting. Admins always may; HR users only for their own company.
func (h *ApplicationHandler) canManagePosting(c *gin.Context, companyID uint) bool {
	if role, ok := roleFromContext(c); ok && role == database.RoleAdmin {
		return true
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return false
	}

	var user database.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
		requestLogger(c, h.logger).Error("resolve caller failed", slog.Any("error", err))
		Internal(c, "internal error")
		return false
	}

	if user.CompanyID == nil || *user.CompanyID != companyID {
		Forbidden(c, "posting belongs to another company")
		return false
	}
	return true
}

// ListCandidates returns the applications for one posting.
func (h *ApplicationHandler) ListCandidates(c *gin.Context) {
	jobID, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid job id required")
		return
	}

	ctx := c.Request.Context()
	var posting database.JobPosting
	if err := h.db.WithContext(ctx).First(&posting, jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "job posting not found")
			return
		}
		requestLogger(c, h.logger).Error("candidates lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if !h.canManagePosting(c, posting.CompanyID) {
		return
	}

	var applications []database.Application
	err := h.db.WithContext(ctx).
		Preload("User").
		Where("job_posting_id = ?", jobID).
		Order("created_at ASC").
		Find(&applications).Error
	if err != nil {
		requestLogger(c, h.logger).Error("list candidates failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OKList(c, applications, int64(len(applications)))
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=Applied Interviewing Accepted Rejected"`
}

// UpdateStatus moves a candidate through the hiring funnel.
func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid application id required")
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	var application database.Application
	if err := h.db.WithContext(ctx).Preload("JobPosting").First(&application, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "application not found")
			return
		}
		requestLogger(c, h.logger).Error("status lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if !h.canManagePosting(c, application.JobPosting.CompanyID) {
		return
	}

	if err := h.db.WithContext(ctx).Model(&application).Update("status", req.Status).Error; err != nil {
		requestLogger(c, h.logger).Error("update status failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OKMessage(c, "application status updated", application)
}

// ResumeLink issues a short-lived download URL for an application's resume.
// Only staff of the posting's company (or an admin) may fetch it.
func (h *ApplicationHandler) ResumeLink(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid application id required")
		return
	}

	ctx := c.Request.Context()
	var application database.Application
	if err := h.db.WithContext(ctx).Preload("JobPosting").First(&application, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "application not found")
			return
		}
		requestLogger(c, h.logger).Error("resume link lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if !h.canManagePosting(c, application.JobPosting.CompanyID) {
		return
	}

	url, err := h.uploader.PresignByURL(ctx, application.ResumeURL, resumeLinkTTL)
	if err != nil {
		requestLogger(c, h.logger).Error("presign resume failed", slog.Any("error", err))
		Internal(c, "failed to generate resume link")
		return
	}

	OK(c, gin.H{"url": url, "expiresInSeconds": int(resumeLinkTTL.Seconds())})
}

// Withdraw deletes the caller's own application.
func (h *ApplicationHandler) Withdraw(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid application id required")
		return
	}
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	var application database.Application
	if err := h.db.WithContext(ctx).First(&application, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "application not found")
			return
		}
		requestLogger(c, h.logger).Error("withdraw lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if application.UserID != userID {
		Forbidden(c, "application belongs to another user")
		return
	}

	if err := h.db.WithContext(ctx).Delete(&application).Error; err != nil {
		requestLogger(c, h.logger).Error("withdraw failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if err := h.uploader.Discard(ctx, application.ResumeURL); err != nil {
		requestLogger(c, h.logger).Warn("discard resume failed", slog.Any("error", err))
	}

	OKMessage(c, "application withdrawn", nil)
}
