package email

import (
	"fmt"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// EmailService defines the interface for email operations
type EmailService interface {
	SendVerificationEmail(toEmail, verifyURL string) error
}

// SMTPConfig holds configuration for the SMTP server
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromName  string
	FromEmail string
}

// EmailServiceImpl implements EmailService
type EmailServiceImpl struct {
	config SMTPConfig
	logger zerolog.Logger
}

// NewEmailService creates a new EmailService
func NewEmailService(config SMTPConfig, logger zerolog.Logger) EmailService {
	return &EmailServiceImpl{
		config: config,
		logger: logger,
	}
}

// SendVerificationEmail sends the magic-link mail that completes identity
// verification. Without SMTP credentials the link is logged instead, so
// local development works without a mail server.
func (s *EmailServiceImpl) SendVerificationEmail(toEmail, verifyURL string) error {
	if s.config.Username == "" || s.config.Password == "" {
		s.logger.Warn().
			Str("toEmail", toEmail).
			Str("verificationURL", verifyURL).
			Msg("SMTP credentials not configured - verification email not sent. Use the URL above for testing.")
		return nil
	}

	subject := "Verify Your NUS Identity - UniPulse"

	body := fmt.Sprintf(`
		<html>
		<body>
			<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
				<h2 style="color: #333;">Verify your NUS identity</h2>
				<p>Someone (hopefully you) asked to link this email address to a UniPulse Telegram account.</p>

				<div style="text-align: center; margin: 30px 0;">
					<a href="%s" style="background-color: #4a86e8; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; font-weight: bold;">Verify Email</a>
				</div>

				<p>The link expires shortly. If you did not request this, ignore this email.</p>

				<p>Best regards,<br>The UniPulse Team</p>
			</div>
		</body>
		</html>
	`, verifyURL)

	return s.sendHTMLEmail(toEmail, subject, body)
}

// sendHTMLEmail sends an HTML email
func (s *EmailServiceImpl) sendHTMLEmail(toEmail, subject, htmlBody string) error {
	auth := smtp.PlainAuth(
		"",
		s.config.Username,
		s.config.Password,
		s.config.Host,
	)

	headers := map[string]string{
		"From":         fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromEmail),
		"To":           toEmail,
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": `text/html; charset="UTF-8"`,
	}

	var msg strings.Builder
	for k, v := range headers {
		msg.WriteString(k + ": " + v + "\r\n")
	}
	msg.WriteString("\r\n" + htmlBody)

	addr := s.config.Host + ":" + strconv.Itoa(s.config.Port)
	if err := smtp.SendMail(addr, auth, s.config.FromEmail, []string{toEmail}, []byte(msg.String())); err != nil {
		s.logger.Error().Err(err).Str("toEmail", toEmail).Msg("Failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info().Str("toEmail", toEmail).Msg("Email sent")
	return nil
}
