package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/newsletter/internal/config"
	"github.com/ignite/newsletter/internal/pkg/logger"
)

// SESMailer sends email via AWS SES using the SDK v2.
type SESMailer struct {
	client    *sesv2.Client
	fromEmail string
	fromName  string
	timeout   time.Duration
}

// NewSESMailer creates an SES mailer. The SDK client is only initialized
// when credentials are configured; without one every Send reports failure,
// which keeps the rest of the service runnable in development.
func NewSESMailer(ctx context.Context, sesCfg config.SESConfig, mailCfg config.MailConfig) *SESMailer {
	m := &SESMailer{
		fromEmail: mailCfg.FromEmail,
		fromName:  mailCfg.FromName,
		timeout:   sesCfg.Timeout(),
	}

	if sesCfg.AccessKey != "" && sesCfg.SecretKey != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(sesCfg.Region),
			awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(sesCfg.AccessKey, sesCfg.SecretKey, "")),
		)
		if err != nil {
			logger.Warn("ses init failed", "error", err)
		} else {
			m.client = sesv2.NewFromConfig(awsCfg)
		}
	}

	return m
}

// Send delivers a single email through SES. It honors the no-throw Mailer
// contract: every transport problem is logged and reported as false. Each
// attempt is bounded by the configured timeout.
func (m *SESMailer) Send(ctx context.Context, msg *Message) bool {
	if m.client == nil {
		logger.Error("ses send skipped: client not initialized", "recipient", msg.To)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", m.fromName, m.fromEmail)),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
	if msg.ReplyTo != "" {
		input.ReplyToAddresses = []string{msg.ReplyTo}
	}

	result, err := m.client.SendEmail(ctx, input)
	if err != nil {
		logger.Error("ses send failed", "recipient", msg.To, "error", err)
		return false
	}

	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}
	logger.Info("ses send ok", "recipient", msg.To, "message_id", messageID)
	return true
}
