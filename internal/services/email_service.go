package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// AWSSESDeliveryChannel delivers emergency access codes by email using AWS SES
type AWSSESDeliveryChannel struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

// NewAWSSESDeliveryChannel creates a new AWS SES delivery channel
func NewAWSSESDeliveryChannel(region, fromAddress string, logger *slog.Logger) (*AWSSESDeliveryChannel, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESDeliveryChannel{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

// DeliverCode sends the emergency access code to the user
func (s *AWSSESDeliveryChannel) DeliverCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	expiry := expiresAt.UTC().Format("15:04 MST, Jan 2 2006")

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #f8f9fa; padding: 20px; text-align: center; border-radius: 4px; }
        .code { font-family: monospace; font-size: 28px; letter-spacing: 4px; text-align: center; padding: 16px; background-color: #f0f4f8; border-radius: 4px; margin: 20px 0; }
        .warning { background-color: #fff3cd; padding: 10px; border-left: 4px solid #ffc107; margin: 10px 0; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Emergency Access Code</h1>
        </div>
        <p>An emergency access code was issued for your account:</p>
        <div class="code">%s</div>
        <div class="warning">
            <strong>This code can be used once and expires at %s.</strong>
        </div>
        <p><strong>Didn't request this?</strong><br>
        If you did not ask for emergency access, contact your practice administrator immediately.</p>
        <div class="footer">
            <p>This is an automated message. Please do not reply to this email.</p>
        </div>
    </div>
</body>
</html>
`, code, expiry)

	textBody := fmt.Sprintf(`Emergency Access Code

An emergency access code was issued for your account:

    %s

This code can be used once and expires at %s.

Didn't request this?
If you did not ask for emergency access, contact your practice administrator immediately.

This is an automated message. Please do not reply to this email.
`, code, expiry)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Your emergency access code"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send emergency code email via SES",
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("emergency code email sent",
		slog.String("message_id", *result.MessageId))

	return nil
}

// NoopDeliveryChannel is used when email delivery is disabled (local
// development). It records that a delivery would have happened; the code
// itself is never written to the log.
type NoopDeliveryChannel struct {
	logger *slog.Logger
}

// NewNoopDeliveryChannel creates a new NoopDeliveryChannel
func NewNoopDeliveryChannel(logger *slog.Logger) *NoopDeliveryChannel {
	return &NoopDeliveryChannel{logger: logger}
}

// DeliverCode logs the delivery event without the code.
func (s *NoopDeliveryChannel) DeliverCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	s.logger.Info("email delivery disabled, emergency code not sent",
		slog.Time("expires_at", expiresAt))
	return nil
}
