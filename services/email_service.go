package services

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/resend/resend-go/v2"
)

// ErrEmailNotConfigured is returned when no email provider key is set
var ErrEmailNotConfigured = errors.New("email service is not configured")

// ContactMessage is a submission of the public contact form
type ContactMessage struct {
	Name    string
	Email   string
	Company string
	Phone   string
	Subject string
	Message string
}

// EmailService relays outbound email
type EmailService interface {
	SendContactMessage(ctx context.Context, msg ContactMessage) (string, error)
}

// ResendEmailService sends email through the Resend API
type ResendEmailService struct {
	client *resend.Client
	from   string
	to     string
}

var emailServiceInstance EmailService

// NewResendEmailService creates the Resend relay; it fails when apiKey is empty
func NewResendEmailService(apiKey, from, to string) (*ResendEmailService, error) {
	if apiKey == "" {
		return nil, ErrEmailNotConfigured
	}
	if to == "" {
		return nil, fmt.Errorf("contact recipient address is not configured")
	}
	return &ResendEmailService{client: resend.NewClient(apiKey), from: from, to: to}, nil
}

// GetEmailService returns the installed email service, or nil when none is configured
func GetEmailService() EmailService {
	return emailServiceInstance
}

// SetEmailService installs the email service
func SetEmailService(s EmailService) {
	emailServiceInstance = s
}

var contactTemplate = template.Must(template.New("contact").Parse(`<h2>New contact form submission</h2>
<p><strong>Name:</strong> {{.Name}}</p>
<p><strong>Email:</strong> {{.Email}}</p>
{{if .Company}}<p><strong>Company:</strong> {{.Company}}</p>{{end}}
{{if .Phone}}<p><strong>Phone:</strong> {{.Phone}}</p>{{end}}
<p><strong>Message:</strong></p>
<p style="white-space: pre-wrap">{{.Message}}</p>`))

// RenderContactHTML renders the body sent to the sales inbox
func RenderContactHTML(msg ContactMessage) (string, error) {
	var b strings.Builder
	if err := contactTemplate.Execute(&b, msg); err != nil {
		return "", fmt.Errorf("render contact email: %w", err)
	}
	return b.String(), nil
}

// SendContactMessage relays msg to the sales inbox with the sender as reply-to
func (s *ResendEmailService) SendContactMessage(ctx context.Context, msg ContactMessage) (string, error) {
	body, err := RenderContactHTML(msg)
	if err != nil {
		return "", err
	}

	subject := msg.Subject
	if subject == "" {
		subject = "New inquiry from " + msg.Name
	}

	sent, err := s.client.Emails.Send(&resend.SendEmailRequest{
		From:    s.from,
		To:      []string{s.to},
		Subject: subject,
		Html:    body,
		ReplyTo: msg.Email,
	})
	if err != nil {
		return "", fmt.Errorf("resend send failed: %w", err)
	}
	return sent.Id, nil
}
