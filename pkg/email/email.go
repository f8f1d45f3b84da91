package email

import (
	"fmt"
	"net/smtp"

	"github.com/Adilet2205/CRM_Reminders/internal/config"
)

// SMTPSender sends plain text email over SMTP. It satisfies the
// dispatch engine's EmailSender interface.
type SMTPSender struct {
	sender   string
	password string
	host     string
	port     string
}

// NewSMTPSender creates a sender from the service configuration.
func NewSMTPSender(cfg *config.Config) *SMTPSender {
	return &SMTPSender{
		sender:   cfg.SMTPSender,
		password: cfg.SMTPPassword,
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
	}
}

// Send sends a plain text email to a single recipient.
func (s *SMTPSender) Send(to, subject, body string) error {
	auth := smtp.PlainAuth("", s.sender, s.password, s.host)

	msg := []byte("To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" + body + "\r\n")

	address := s.host + ":" + s.port

	err := smtp.SendMail(address, auth, s.sender, []string{to}, msg)
	if err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}
	return nil
}
