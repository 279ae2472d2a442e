package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// objectStorage is the slice of the storage client the handlers need;
// tests substitute a fake.
type objectStorage interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	PublicObjectURL(objectKey string) string
	ObjectKeyFromURL(raw string) (string, bool)
	DeleteObject(ctx context.Context, objectKey string) error
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
}

var (
	// ErrNoFile means the request carried no file under the given field.
	ErrNoFile = errors.New("no file in request")
	// ErrMaliciousFile means the clamd scan flagged the upload.
	ErrMaliciousFile = errors.New("malicious file detected")
)

// Uploader moves a single multipart file into object storage: buffer, scan
// through clamd when configured, upload, return the public URL. The binary
// itself is never persisted by this service.
type Uploader struct {
	Storage   objectStorage
	ClamdAddr string
}

// SaveUpload handles the file under field and stores it below folder/.
func (u *Uploader) SaveUpload(c *gin.Context, field, folder string) (string, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return "", ErrNoFile
	}

	if u.ClamdAddr != "" {
		if err := u.scan(file); err != nil {
			return "", err
		}
	}

	reader, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer reader.Close()

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext == "" {
		ext = ".bin"
	}
	objectKey := fmt.Sprintf("%s/%s%s", folder, uuid.NewString(), ext)

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if _, err := u.Storage.UploadFile(c.Request.Context(), objectKey, reader, file.Size, contentType); err != nil {
		return "", fmt.Errorf("upload %q: %w", objectKey, err)
	}

	return u.Storage.PublicObjectURL(objectKey), nil
}

// Discard removes the object behind a previously stored URL. URLs that were
// not minted for our bucket are left alone.
func (u *Uploader) Discard(ctx context.Context, fileURL string) error {
	if fileURL == "" {
		return nil
	}
	objectKey, ok := u.Storage.ObjectKeyFromURL(fileURL)
	if !ok {
		return nil
	}
	return u.Storage.DeleteObject(ctx, objectKey)
}

// PresignByURL turns a stored public URL into a time-limited download link.
func (u *Uploader) PresignByURL(ctx context.Context, fileURL string, duration time.Duration) (string, error) {
	objectKey, ok := u.Storage.ObjectKeyFromURL(fileURL)
	if !ok {
		return "", fmt.Errorf("url %q does not reference a stored object", fileURL)
	}
	return u.Storage.GeneratePresignedURL(ctx, objectKey, duration)
}

func (u *Uploader) scan(file *multipart.FileHeader) error {
	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("open upload for scan: %w", err)
	}

	clamdClient := clamd.NewClamd(u.ClamdAddr)
	abortChan := make(chan bool)
	scanChan, err := clamdClient.ScanStream(reader, abortChan)
	reader.Close()
	if err != nil {
		return fmt.Errorf("scan upload: %w", err)
	}
	defer close(abortChan)

	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			return ErrMaliciousFile
		}
	}
	return nil
}
