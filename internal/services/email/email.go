package email

import (
	"fmt"
	"net/smtp"

	"github.com/sirupsen/logrus"

	"github.com/loadedteafinder/backend/internal/config"
)

// EmailService handles sending emails
type EmailService struct {
	smtpHost     string
	smtpPort     string
	smtpUsername string
	smtpPassword string
	fromEmail    string
	frontendURL  string
}

// NewEmailService creates a new email service
func NewEmailService(cfg config.SMTPConfig, frontendURL string) *EmailService {
	return &EmailService{
		smtpHost:     cfg.Host,
		smtpPort:     cfg.Port,
		smtpUsername: cfg.Username,
		smtpPassword: cfg.Password,
		fromEmail:    cfg.FromEmail,
		frontendURL:  frontendURL,
	}
}

// SendClaimSubmitted confirms a claim submission to the claimant
func (s *EmailService) SendClaimSubmitted(toEmail, firstName, businessName string) error {
	subject := "We received your claim for " + businessName
	body := s.wrap(fmt.Sprintf(`
		<h2>Hello %s,</h2>
		<p>Thanks for claiming <strong>%s</strong> on Loaded Tea Finder!</p>
		<p>Our team will review your documents and verify your ownership. Most claims are reviewed within 3&ndash;5 business days.</p>
		<p>You can check your claim status any time from your account page.</p>
	`, firstName, businessName))
	return s.Send(toEmail, subject, body)
}

// SendClaimSubmittedAdmin notifies the review team of a new claim
func (s *EmailService) SendClaimSubmittedAdmin(toEmail, businessName, claimID string) error {
	subject := "New ownership claim: " + businessName
	body := s.wrap(fmt.Sprintf(`
		<h2>New claim submitted</h2>
		<p>A new ownership claim was submitted for <strong>%s</strong>.</p>
		<p>Claim ID: <code>%s</code></p>
		<p><a href="%s/admin/claims/%s" class="button">Review claim</a></p>
	`, businessName, claimID, s.frontendURL, claimID))
	return s.Send(toEmail, subject, body)
}

// SendClaimApproved tells the claimant their claim was approved
func (s *EmailService) SendClaimApproved(toEmail, firstName, businessName string) error {
	subject := "Your claim for " + businessName + " was approved!"
	body := s.wrap(fmt.Sprintf(`
		<h2>Congratulations %s!</h2>
		<p>Your ownership claim for <strong>%s</strong> has been approved.</p>
		<p>You can now manage your listing, menu, photos, and rewards program.</p>
		<p><a href="%s/dashboard" class="button">Go to your dashboard</a></p>
	`, firstName, businessName, s.frontendURL))
	return s.Send(toEmail, subject, body)
}

// SendClaimRejected tells the claimant their claim was rejected
func (s *EmailService) SendClaimRejected(toEmail, firstName, businessName, reason string) error {
	subject := "Update on your claim for " + businessName
	body := s.wrap(fmt.Sprintf(`
		<h2>Hello %s,</h2>
		<p>After reviewing your ownership claim for <strong>%s</strong>, we were unable to approve it.</p>
		<p>Reason: %s</p>
		<p>If you believe this decision is incorrect, reply to this email with additional documentation and we will take another look.</p>
	`, firstName, businessName, reason))
	return s.Send(toEmail, subject, body)
}

// SendMoreInfoRequested asks the claimant for additional documentation
func (s *EmailService) SendMoreInfoRequested(toEmail, firstName, businessName, notes string) error {
	subject := "We need more information about your claim for " + businessName
	body := s.wrap(fmt.Sprintf(`
		<h2>Hello %s,</h2>
		<p>We need a little more information to verify your ownership of <strong>%s</strong>.</p>
		<p>%s</p>
		<p><a href="%s/claims" class="button">Update your claim</a></p>
	`, firstName, businessName, notes, s.frontendURL))
	return s.Send(toEmail, subject, body)
}

// SendClaimCancelled confirms a claimant-initiated cancellation
func (s *EmailService) SendClaimCancelled(toEmail, firstName, businessName string) error {
	subject := "Your claim for " + businessName + " was cancelled"
	body := s.wrap(fmt.Sprintf(`
		<h2>Hello %s,</h2>
		<p>Your ownership claim for <strong>%s</strong> has been cancelled and your uploaded documents have been removed.</p>
		<p>You can submit a new claim at any time.</p>
	`, firstName, businessName))
	return s.Send(toEmail, subject, body)
}

// SendStepUpdated notifies the claimant of verification progress
func (s *EmailService) SendStepUpdated(toEmail, firstName, businessName, method, status string) error {
	subject := "Verification update for your claim on " + businessName
	body := s.wrap(fmt.Sprintf(`
		<h2>Hello %s,</h2>
		<p>There is an update on the verification of your claim for <strong>%s</strong>.</p>
		<p>The <strong>%s</strong> check is now <strong>%s</strong>.</p>
	`, firstName, businessName, method, status))
	return s.Send(toEmail, subject, body)
}

// Send sends an email with HTML content
func (s *EmailService) Send(toEmail, subject, htmlBody string) error {
	if s.smtpHost == "" || s.smtpUsername == "" || s.smtpPassword == "" {
		logrus.Warn("email service not configured, check SMTP environment variables")
		return fmt.Errorf("email service not configured")
	}

	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	from := fmt.Sprintf("From: Loaded Tea Finder <%s>\n", s.fromEmail)
	to := fmt.Sprintf("To: %s\n", toEmail)
	subjectLine := fmt.Sprintf("Subject: %s\n", subject)

	message := []byte(from + to + subjectLine + mime + htmlBody)

	auth := smtp.PlainAuth("", s.smtpUsername, s.smtpPassword, s.smtpHost)
	addr := fmt.Sprintf("%s:%s", s.smtpHost, s.smtpPort)

	return smtp.SendMail(addr, auth, s.fromEmail, []string{toEmail}, message)
}

// wrap puts content into the shared HTML layout
func (s *EmailService) wrap(content string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: Arial, sans-serif; line-height: 1.6; }
			.container { max-width: 600px; margin: 0 auto; padding: 20px; }
			.header { background-color: #16A34A; color: white; padding: 10px; text-align: center; }
			.content { padding: 20px; }
			.button { display: inline-block; background-color: #16A34A; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header">
				<h1>Loaded Tea Finder</h1>
			</div>
			<div class="content">
				%s
				<p>Best regards,<br>The Loaded Tea Finder Team</p>
			</div>
		</div>
	</body>
	</html>
	`, content)
}
