package providers

import (
	"fmt"
	"net/smtp"

	"github.com/bonecondor/space-weather/internal/config"
	"github.com/bonecondor/space-weather/internal/models"
)

// SendEmail delivers an alert over SMTP.
func SendEmail(alert models.Alert, cfg *config.Config) error {
	smtpServer := cfg.Email.SMTPServer
	smtpPort := cfg.Email.SMTPPort
	username := cfg.Email.Username
	password := cfg.Email.Password

	if smtpServer == "" || smtpPort == 0 || username == "" || password == "" {
		return fmt.Errorf("missing Email configuration: SMTPServer, SMTPPort, Username, or Password is empty")
	}
	if cfg.Email.To == "" {
		return fmt.Errorf("missing EMAIL_TO")
	}

	subject := fmt.Sprintf("[%s] %s", alert.Urgency, alert.Title)
	message := fmt.Sprintf("Subject: %s\n\n%s\n\nEmitted %s", subject, alert.Body, alert.Timestamp.Format("2006-01-02 15:04 MST"))

	auth := smtp.PlainAuth("", username, password, smtpServer)
	to := []string{cfg.Email.To}
	addr := fmt.Sprintf("%s:%d", smtpServer, smtpPort)

	if err := smtp.SendMail(addr, auth, username, to, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", cfg.Email.To, err)
	}
	return nil
}
