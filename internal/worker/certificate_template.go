package worker

import (
	"bytes"
	"html/template"

	"skillbridge/internal/database"
)

const certificateTemplateHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Certificate of Completion</title>
<style>
  body { font-family: Georgia, serif; background: #f4f1ea; margin: 0; padding: 48px; }
  .certificate { background: #fff; border: 6px double #b89b5e; padding: 64px; text-align: center; }
  h1 { letter-spacing: 4px; text-transform: uppercase; color: #333; }
  .holder { font-size: 2em; margin: 24px 0; color: #1a1a1a; }
  .course { font-size: 1.4em; font-style: italic; margin-bottom: 24px; }
  .meta { margin-top: 48px; color: #666; font-size: 0.9em; }
</style>
</head>
<body>
<div class="certificate">
  <h1>Certificate of Completion</h1>
  <p>This certifies that</p>
  <div class="holder">{{.HolderName}}</div>
  <p>has successfully completed the course</p>
  <div class="course">{{.CourseTitle}}</div>
  <p>instructed by {{.Instructor}}</p>
  <div class="meta">
    <p>Issued on {{.IssuedAt}}</p>
    <p>Serial: {{.SerialNumber}}</p>
  </div>
</div>
</body>
</html>`

var certificateTemplate = template.Must(template.New("certificate").Parse(certificateTemplateHTML))

type certificateTemplateData struct {
	HolderName   string
	CourseTitle  string
	Instructor   string
	IssuedAt     string
	SerialNumber string
}

// renderCertificateHTML fills the certificate template with the holder and
// course details. The date renders without the time portion.
func renderCertificateHTML(certificate *database.Certificate) ([]byte, error) {
	data := certificateTemplateData{
		HolderName:   certificate.User.Name,
		CourseTitle:  certificate.Course.Title,
		Instructor:   certificate.Course.Instructor,
		IssuedAt:     certificate.IssuedAt.Format("January 2, 2006"),
		SerialNumber: certificate.SerialNumber,
	}

	var buf bytes.Buffer
	if err := certificateTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
