package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type constants shared by queue producers and consumers.
const (
	TypeCertificateRender = "certificate:render"
)

// CertificateRenderPayload carries the minimum needed to render one certificate.
type CertificateRenderPayload struct {
	CertificateID uint `json:"certificate_id"`
}

// NewCertificateRenderTask builds a render task for a freshly issued certificate.
func NewCertificateRenderTask(certificateID uint) (*asynq.Task, error) {
	payload, err := json.Marshal(CertificateRenderPayload{CertificateID: certificateID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCertificateRender, payload), nil
}
