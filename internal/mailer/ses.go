package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// SESMailer sends email through AWS SES
type SESMailer struct {
	client *sesv2.Client
	from   string
}

// NewSESMailer builds a mailer that sends through AWS SES
func NewSESMailer(cfg aws.Config, from string) *SESMailer {
	return &SESMailer{
		client: sesv2.NewFromConfig(cfg),
		from:   from,
	}
}

// Send sends one HTML email via SES
func (m *SESMailer) Send(ctx context.Context, to, subject, html string) error {
	if to == "" {
		return &SendError{Provider: "ses", Err: fmt.Errorf("recipient is required")}
	}

	_, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(html)},
				},
			},
		},
	})
	if err != nil {
		return &SendError{Provider: "ses", Err: err}
	}

	return nil
}
