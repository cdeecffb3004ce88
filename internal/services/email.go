package services

import (
	"fmt"
	"net/smtp"

	"ranchops/internal/config"
	"ranchops/internal/domain"
)

// EmailService sends staff notification emails
type EmailService struct {
	cfg *config.EmailConfig
}

// NewEmailService creates a new email service
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return &EmailService{cfg: cfg}
}

// IsEnabled returns whether email sending is enabled
func (s *EmailService) IsEnabled() bool {
	return s.cfg.Enabled
}

// SendEnquiryNotification notifies the configured admin address about a new
// enquiry. When email is disabled the notification is only logged.
func (s *EmailService) SendEnquiryNotification(enquiry *domain.Enquiry) error {
	if !s.cfg.Enabled || s.cfg.AdminEmail == "" {
		fmt.Printf("[EMAIL] New enquiry from %s (%s)\n", enquiry.Name, enquiry.Email)
		return nil
	}

	subject := fmt.Sprintf("New Enquiry from %s", enquiry.Name)

	phoneInfo := "Not provided"
	if enquiry.Phone != nil && *enquiry.Phone != "" {
		phoneInfo = *enquiry.Phone
	}

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #334155;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #3D5A3D;">New Enquiry</h2>
        <div style="background: #F8FAFC; padding: 20px; border-radius: 8px; margin: 20px 0;">
            <p><strong>Name:</strong> %s</p>
            <p><strong>Email:</strong> <a href="mailto:%s">%s</a></p>
            <p><strong>Phone:</strong> %s</p>
            <p><strong>Category:</strong> %s</p>
            <p><strong>Submitted:</strong> %s</p>
        </div>
        <div style="background: #FFFFFF; padding: 20px; border-left: 4px solid #3D5A3D; border-radius: 4px; margin: 20px 0;">
            <h3 style="margin-top: 0;">Message:</h3>
            <p style="white-space: pre-wrap;">%s</p>
        </div>
        <p style="color: #64748B; font-size: 14px;">Enquiry ID: #%d</p>
    </div>
</body>
</html>`, enquiry.Name, enquiry.Email, enquiry.Email, phoneInfo, enquiry.Category,
		enquiry.CreatedAt.Format("January 2, 2006 at 3:04 PM"), enquiry.Message, enquiry.ID)

	textBody := fmt.Sprintf(`New Enquiry

Name: %s
Email: %s
Phone: %s
Category: %s
Submitted: %s

Message:
%s

Enquiry ID: #%d`, enquiry.Name, enquiry.Email, phoneInfo, enquiry.Category,
		enquiry.CreatedAt.Format("January 2, 2006 at 3:04 PM"), enquiry.Message, enquiry.ID)

	return s.SendHTMLEmail(s.cfg.AdminEmail, subject, htmlBody, textBody)
}

// SendHTMLEmail sends an HTML email with a plain text fallback
func (s *EmailService) SendHTMLEmail(to, subject, htmlBody, textBody string) error {
	if !s.cfg.Enabled {
		fmt.Printf("[EMAIL] Would send to %s: %s\n", to, subject)
		return nil
	}

	if s.cfg.SMTPHost == "" || s.cfg.Username == "" || s.cfg.Password == "" {
		return fmt.Errorf("email service not properly configured")
	}

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)

	from := s.cfg.FromEmail
	if s.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.FromEmail)
	}

	boundary := "----=_NextPart_1234567890"

	headers := fmt.Sprintf("From: %s\r\n", from) +
		fmt.Sprintf("To: %s\r\n", to) +
		fmt.Sprintf("Subject: %s\r\n", subject) +
		"MIME-Version: 1.0\r\n" +
		fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary) +
		"\r\n"

	message := headers +
		fmt.Sprintf("--%s\r\n", boundary) +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		textBody + "\r\n"

	if htmlBody != "" {
		message += fmt.Sprintf("--%s\r\n", boundary) +
			"Content-Type: text/html; charset=UTF-8\r\n" +
			"Content-Transfer-Encoding: quoted-printable\r\n" +
			"\r\n" +
			htmlBody + "\r\n"
	}

	message += fmt.Sprintf("--%s--\r\n", boundary)

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	if err := smtp.SendMail(addr, auth, s.cfg.FromEmail, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
