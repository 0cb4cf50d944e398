package mailer

import (
	"fmt"

	gomail "gopkg.in/mail.v2"
)

// smtpClient sends through a plain SMTP relay; used in development where no
// Mailtrap key is configured.
type smtpClient struct {
	dialer    *gomail.Dialer
	fromEmail string
}

func NewSMTPClient(host string, port int, username, password, fromEmail string) Client {
	return &smtpClient{
		dialer:    gomail.NewDialer(host, port, username, password),
		fromEmail: fromEmail,
	}
}

func (s *smtpClient) Send(templateFile, username, email string, data any) (int, error) {
	subject, body, err := renderTemplate(templateFile, data)
	if err != nil {
		return -1, err
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", s.fromEmail, FromName)
	msg.SetAddressHeader("To", email, username)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if lastErr = s.dialer.DialAndSend(msg); lastErr == nil {
			return 200, nil
		}
	}

	return -1, fmt.Errorf("failed to send email after %d attempts: %w", maxRetries, lastErr)
}
