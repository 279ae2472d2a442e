package api

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"skillbridge/internal/database"
)

// CertificateHandler serves earned certificates and their public
// verification view.
type CertificateHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewCertificateHandler builds the handler.
func NewCertificateHandler(db *gorm.DB, logger *slog.Logger) *CertificateHandler {
	return &CertificateHandler{db: db, logger: logger}
}

// ListMyCertificates returns the caller's certificates, newest first.
func (h *CertificateHandler) ListMyCertificates(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var certificates []database.Certificate
	err := h.db.WithContext(c.Request.Context()).
		Preload("Course").
		Where("user_id = ?", userID).
		Order("issued_at DESC").
		Find(&certificates).Error
	if err != nil {
		requestLogger(c, h.logger).Error("list my certificates failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OKList(c, certificates, int64(len(certificates)))
}

type certificateVerification struct {
	HolderName   string    `json:"holderName"`
	CourseTitle  string    `json:"courseTitle"`
	Instructor   string    `json:"instructor"`
	SerialNumber string    `json:"serialNumber"`
	IssuedAt     time.Time `json:"issuedAt"`
	FileURL      string    `json:"fileUrl,omitempty"`
}

// VerifyCertificate is the public view: enough to check authenticity,
// nothing else about the holder.
func (h *CertificateHandler) VerifyCertificate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid certificate id required")
		return
	}

	var certificate database.Certificate
	err := h.db.WithContext(c.Request.Context()).
		Preload("User").
		Preload("Course").
		First(&certificate, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "certificate not found")
			return
		}
		requestLogger(c, h.logger).Error("verify certificate failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OK(c, certificateVerification{
		HolderName:   certificate.User.Name,
		CourseTitle:  certificate.Course.Title,
		Instructor:   certificate.Course.Instructor,
		SerialNumber: certificate.SerialNumber,
		IssuedAt:     certificate.IssuedAt,
		FileURL:      certificate.FileURL,
	})
}
