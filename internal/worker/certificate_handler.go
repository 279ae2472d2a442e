package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"gorm.io/gorm"

	"skillbridge/internal/database"
	"skillbridge/internal/tasks"
)

// certificateStorage is the part of the object store the renderer uses.
type certificateStorage interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, objectSize int64, contentType string) (*minio.UploadInfo, error)
	PublicObjectURL(objectKey string) string
}

// CertificateTaskHandler consumes certificate render tasks.
type CertificateTaskHandler struct {
	db      *gorm.DB
	storage certificateStorage
	logger  *slog.Logger
}

// NewCertificateTaskHandler creates the task handler.
func NewCertificateTaskHandler(db *gorm.DB, storage certificateStorage, logger *slog.Logger) *CertificateTaskHandler {
	return &CertificateTaskHandler{db: db, storage: storage, logger: logger}
}

// ProcessTask implements asynq.Handler. It renders the certificate document,
// uploads it and records the public URL on the certificate row.
func (h *CertificateTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	log := h.logger

	var payload tasks.CertificateRenderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(slog.Uint64("certificate_id", uint64(payload.CertificateID)))
	log.Info("starting certificate render task")

	var certificate database.Certificate
	err := h.db.WithContext(ctx).
		Preload("User").
		Preload("Course").
		First(&certificate, payload.CertificateID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("certificate not found, skipping task")
			return nil
		}
		log.Error("query certificate failed", slog.Any("error", err))
		return err
	}

	document, err := renderCertificateHTML(&certificate)
	if err != nil {
		log.Error("render certificate failed", slog.Any("error", err))
		return err
	}

	objectName := fmt.Sprintf("certificates/%d/%s.html", certificate.UserID, certificate.SerialNumber)
	reader := bytes.NewReader(document)
	if _, err := h.storage.UploadFile(ctx, objectName, reader, int64(len(document)), "text/html; charset=utf-8"); err != nil {
		log.Error("upload certificate failed", slog.Any("error", err))
		return err
	}

	fileURL := h.storage.PublicObjectURL(objectName)
	if err := h.db.WithContext(ctx).Model(&certificate).Update("file_url", fileURL).Error; err != nil {
		log.Error("update certificate failed", slog.Any("error", err))
		return err
	}

	log.Info("certificate render task completed")
	return nil
}
