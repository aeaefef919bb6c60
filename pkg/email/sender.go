package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/shiftwiseapp/shiftwise-backend/pkg/config"
	pkgerrors "github.com/shiftwiseapp/shiftwise-backend/pkg/errors"
)

// SESAPI is the slice of the SES client used by the sender, kept narrow for
// test fakes.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Sender delivers transactional email through AWS SES.
type Sender struct {
	client SESAPI
	from   string
}

// NewSender loads the default AWS config for the region and builds the sender.
func NewSender(ctx context.Context, cfg config.EmailConfig) (*Sender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &Sender{
		client: ses.NewFromConfig(awsCfg),
		from:   cfg.DefaultFrom,
	}, nil
}

// NewSenderWithClient wires an explicit SES client, used by tests.
func NewSenderWithClient(client SESAPI, from string) *Sender {
	return &Sender{client: client, from: from}
}

// Send delivers a single message to the recipient address.
func (s *Sender) Send(ctx context.Context, to, subject, body string) error {
	if s == nil || s.client == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "email sender not configured")
	}
	if strings.TrimSpace(to) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient address is required")
	}

	_, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(s.from),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send email")
	}
	return nil
}
