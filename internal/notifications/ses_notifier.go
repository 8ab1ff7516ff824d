package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

type SESConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	From            string
}

// EmailSender is the slice of the SES client the notifier needs.
type EmailSender interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SESNotifier struct {
	client EmailSender
	from   string
	logger *slog.Logger
}

func NewSESNotifier(cfg SESConfig, logger *slog.Logger) *SESNotifier {
	awsCfg := aws.Config{
		Region: cfg.Region,
		Credentials: aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	}

	return NewSESNotifierWithClient(ses.NewFromConfig(awsCfg), cfg.From, logger)
}

func NewSESNotifierWithClient(client EmailSender, from string, logger *slog.Logger) *SESNotifier {
	return &SESNotifier{client: client, from: from, logger: logger}
}

func utf8(s string) *types.Content {
	return &types.Content{Data: aws.String(s), Charset: aws.String("UTF-8")}
}

func (n *SESNotifier) SendRegistrationConfirmation(ctx context.Context, in RegistrationConfirmation) error {
	msg := RenderConfirmation(in)

	out, err := n.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(n.from),
		Destination: &types.Destination{ToAddresses: []string{in.Email}},
		Message: &types.Message{
			Subject: utf8(msg.Subject),
			Body: &types.Body{
				Text: utf8(msg.Text),
				Html: utf8(msg.HTML),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send email: %w", err)
	}

	n.logger.InfoContext(ctx, "notification.sent",
		"channel", "ses",
		"registration_id", in.RegistrationID,
		"message_id", aws.ToString(out.MessageId),
	)
	return nil
}
