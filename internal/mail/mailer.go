package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"github.com/prperemyshlev/account-service/internal/queue"
)

//go:embed templates/*.html
var templateFS embed.FS

// Mailer sends rendered HTML email over SMTP
type Mailer struct {
	addr      string
	auth      smtp.Auth
	from      string
	fromName  string
	templates *template.Template
}

// NewMailer creates a new SMTP mailer with the embedded template set
func NewMailer(host, port, username, password, from, fromName string) (*Mailer, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse mail templates: %w", err)
	}

	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	return &Mailer{
		addr:      host + ":" + port,
		auth:      auth,
		from:      from,
		fromName:  fromName,
		templates: templates,
	}, nil
}

// Send renders the job's template and delivers the message.
// Any transport error is a delivery failure; the job runner handles retry.
func (m *Mailer) Send(ctx context.Context, job queue.EmailJob) error {
	body, err := m.render(job.Template, job.Context)
	if err != nil {
		return err
	}

	msg := strings.Join([]string{
		fmt.Sprintf("From: %s <%s>", m.fromName, m.from),
		fmt.Sprintf("To: %s", job.Recipient),
		fmt.Sprintf("Subject: %s", job.Subject),
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{job.Recipient}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", job.Recipient, err)
	}

	return nil
}

func (m *Mailer) render(name string, data map[string]string) (string, error) {
	var buf bytes.Buffer
	if err := m.templates.ExecuteTemplate(&buf, name+".html", data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return buf.String(), nil
}
