package mailer

import (
	"html/template"
	"strings"

	"github.com/classboard/notify-worker/internal/domain"
)

// DefaultSubject is used when a queued item carries a blank subject.
const DefaultSubject = "New message on ClassBoard"

// bodyTemplate renders the notification email. html/template escapes every
// interpolated field, so recipient-controlled subject, name, and preview text
// can never inject markup into the message body.
var bodyTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; color: #1f2937;">
    <h2>Hello {{.Name}},</h2>
    <p>You have received a new message: <strong>{{.Subject}}</strong></p>
{{- if .Preview}}
    <blockquote style="border-left: 3px solid #d1d5db; padding-left: 12px; color: #4b5563;">{{.Preview}}</blockquote>
{{- end}}
    <p><a href="{{.Link}}">Open your inbox</a> to read and reply.</p>
    <p style="color: #9ca3af; font-size: 12px;">You are receiving this email because message notifications are enabled for your account.</p>
  </body>
</html>
`))

type bodyData struct {
	Name    string
	Subject string
	Preview string
	Link    string
}

// BuildEmail renders the subject and HTML body for a queue item.
// The recipient display name falls back to the email address, and the
// preview block is omitted entirely when the item has no preview.
func BuildEmail(item *domain.QueueItem, appBaseURL string) (subject, html string, err error) {
	subject = item.Subject
	if strings.TrimSpace(subject) == "" {
		subject = DefaultSubject
	}

	name := item.RecipientEmail
	if item.RecipientName != nil && *item.RecipientName != "" {
		name = *item.RecipientName
	}

	preview := ""
	if item.ContentPreview != nil {
		preview = *item.ContentPreview
	}

	var b strings.Builder
	err = bodyTemplate.Execute(&b, bodyData{
		Name:    name,
		Subject: subject,
		Preview: preview,
		Link:    strings.TrimRight(appBaseURL, "/") + "/messages",
	})
	if err != nil {
		return "", "", err
	}
	return subject, b.String(), nil
}
