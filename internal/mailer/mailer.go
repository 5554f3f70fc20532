package mailer

import (
	"fmt"
	"net/smtp"

	"course-manager/internal/config"
	"course-manager/internal/logger"
)

// Mailer sends plain-text mail over SMTP. Delivery is best-effort from
// the enrollment flow's perspective; failures are logged by the caller
// and never surfaced to the submitter.
type Mailer struct {
	cfg config.EmailConfig
	log *logger.Logger
}

func NewMailer(cfg config.EmailConfig, log *logger.Logger) *Mailer {
	return &Mailer{cfg: cfg, log: log}
}

func (m *Mailer) Send(to, subject, body string) error {
	message := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		m.cfg.From, to, subject, body)

	addr := m.cfg.SMTPHost + ":" + m.cfg.SMTPPort
	var auth smtp.Auth
	if m.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", m.cfg.SMTPUsername, m.cfg.SMTPPassword, m.cfg.SMTPHost)
	}

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	m.log.LogMail(to, subject, "sent")
	return nil
}
