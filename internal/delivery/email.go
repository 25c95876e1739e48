// Package delivery holds the outbound providers: email through AWS SES and
// voice through an HTTP calling API. Both fall back to a dry-run mode when
// credentials are absent: the send is logged and reported as a synthetic
// success instead of touching the real provider.
package delivery

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/google/uuid"

	"github.com/loadpoint/broker-outreach/internal/pkg/logger"
)

// SESSender delivers outreach emails through AWS SES v2. Implements
// outreach.EmailSender.
type SESSender struct {
	region string
	client *sesv2.Client
}

// NewSESSender creates an SES sender. With empty credentials the sender runs
// in dry-run mode.
func NewSESSender(accessKey, secretKey, region string) *SESSender {
	if region == "" {
		region = "us-east-1"
	}

	s := &SESSender{region: region}
	if accessKey != "" && secretKey != "" {
		cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		)
		if err != nil {
			logger.Warn("SES config init failed, falling back to dry-run", "error", err.Error())
		} else {
			s.client = sesv2.NewFromConfig(cfg)
		}
	}
	return s
}

// DryRun reports whether the sender has no live SES client.
func (s *SESSender) DryRun() bool { return s.client == nil }

// Send delivers a single email. In dry-run mode it logs the send and returns
// a synthetic message id.
func (s *SESSender) Send(ctx context.Context, to, from, subject, body string) (string, error) {
	if to == "" {
		return "", fmt.Errorf("send email: empty recipient")
	}
	if s.client == nil {
		id := "dry-run-" + uuid.New().String()
		logger.Info("dry-run email", "to", to, "subject", subject, "message_id", id)
		return id, nil
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return "", fmt.Errorf("ses send: %w", err)
	}

	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}
	logger.Info("email sent", "to", to, "message_id", messageID)
	return messageID, nil
}
