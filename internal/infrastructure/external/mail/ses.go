package mail

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/providers"
	"github.com/johnquangdev/meeting-scheduler/pkg/config"
)

// emailSender is the slice of the SES v2 client we use
type emailSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESMailer sends raw messages through AWS SES v2. SES has no thread concept,
// so the first message's id becomes the thread id.
type SESMailer struct {
	client    emailSender
	from      mail.Address
	configSet string
}

var _ providers.Mailer = (*SESMailer)(nil)

// NewSESMailer builds the SES client. Static credentials are used when set,
// otherwise the default AWS chain.
func NewSESMailer(ctx context.Context, mailCfg config.MailConfig) (*SESMailer, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(mailCfg.SES.Region)}
	if mailCfg.SES.AccessKeyID != "" && mailCfg.SES.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(mailCfg.SES.AccessKeyID, mailCfg.SES.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newSESMailer(sesv2.NewFromConfig(awsCfg), mailCfg), nil
}

func newSESMailer(client emailSender, mailCfg config.MailConfig) *SESMailer {
	return &SESMailer{
		client:    client,
		from:      mail.Address{Name: mailCfg.FromName, Address: mailCfg.FromAddress},
		configSet: mailCfg.SES.ConfigurationSet,
	}
}

// Send delivers one message
func (m *SESMailer) Send(ctx context.Context, in providers.SendInput) (*providers.SendResult, error) {
	if len(in.To) == 0 {
		return nil, fmt.Errorf("ses: no recipients")
	}
	from := m.from
	if in.From != "" {
		from.Address = in.From
	}
	msg := BuildMessage(from, in, DomainOf(from.Address))

	input := &sesv2.SendEmailInput{
		Content: &types.EmailContent{Raw: &types.RawMessage{Data: msg.Raw}},
		Destination: &types.Destination{
			ToAddresses: in.To,
			CcAddresses: in.Cc,
		},
		FromEmailAddress: aws.String(from.String()),
	}
	if m.configSet != "" {
		input.ConfigurationSetName = aws.String(m.configSet)
	}

	out, err := m.client.SendEmail(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("ses send failed: %w", err)
	}

	id := aws.ToString(out.MessageId)
	thread := in.ThreadID
	if thread == "" {
		thread = id
	}
	return &providers.SendResult{MessageID: id, ThreadID: thread}, nil
}
