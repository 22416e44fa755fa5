package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type sendgridEmailService struct {
	apiKey    string
	fromEmail string
	fromName  string
}

func NewEmailService(apiKey, fromEmail, fromName string) EmailService {
	return &sendgridEmailService{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (s *sendgridEmailService) SendRedemptionConfirmation(ctx context.Context, email, teamName string, expiresAt *time.Time) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail("", email)
	subject := fmt.Sprintf("You have joined %s", teamName)

	body := fmt.Sprintf("Your redemption succeeded and a seat on %s is yours.\n\nAccept the invite from your inbox to activate it.", teamName)
	if expiresAt != nil {
		body += fmt.Sprintf("\n\nThe team runs until %s.", expiresAt.Format("2006-01-02"))
	}

	message := mail.NewSingleEmail(from, subject, recipient, body, "")
	client := sendgrid.NewSendClient(s.apiKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d", response.StatusCode)
	}
	return nil
}
