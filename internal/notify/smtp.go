package notify

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"

	"fileloader/internal/config"
)

// SMTPOwnerNotifier emails file owners through the configured SMTP relay,
// grounded in the original implementation's owner-notification emails
// (SPEC_FULL.md §4.11 notification supplement).
type SMTPOwnerNotifier struct {
	cfg config.NotificationConfig
}

// NewSMTPOwnerNotifier binds a notifier to cfg's SMTP settings.
func NewSMTPOwnerNotifier(cfg config.NotificationConfig) *SMTPOwnerNotifier {
	return &SMTPOwnerNotifier{cfg: cfg}
}

// NotifyOwner sends a plaintext-part multipart email describing one file
// failure to every declared recipient.
func (s *SMTPOwnerNotifier) NotifyOwner(ctx context.Context, recipients []string, n Notice) error {
	if len(recipients) == 0 || s.cfg.SMTPHost == "" {
		return nil
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	headers := textproto.MIMEHeader{}
	headers.Set("Content-Type", "text/plain; charset=utf-8")
	part, err := mw.CreatePart(headers)
	if err != nil {
		return fmt.Errorf("build owner notification for %s: %w", n.FileName, err)
	}
	fmt.Fprintf(part, "File %s (source %s) could not be processed.\n\nReason: %s\n\nDetail: %s\n",
		n.FileName, n.SourceName, n.Kind, n.Message)
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close owner notification multipart for %s: %w", n.FileName, err)
	}

	rcpts := recipients
	var cc []string
	if s.cfg.DataTeamEmail != "" {
		cc = []string{s.cfg.DataTeamEmail}
		rcpts = append(append([]string(nil), recipients...), s.cfg.DataTeamEmail)
	}
	msg := buildMessage(s.cfg.FromEmail, recipients, cc, fmt.Sprintf("FileLoader Failed: %s - %s", n.FileName, n.Kind), mw.Boundary(), body.String())

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}

	if err := smtp.SendMail(addr, auth, s.cfg.FromEmail, rcpts, []byte(msg)); err != nil {
		return fmt.Errorf("send owner notification for %s: %w", n.FileName, err)
	}
	return nil
}

func buildMessage(from string, to, cc []string, subject, boundary, multipartBody string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	if len(cc) > 0 {
		fmt.Fprintf(&b, "Cc: %s\r\n", strings.Join(cc, ", "))
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", boundary)
	b.WriteString(multipartBody)
	return b.String()
}
