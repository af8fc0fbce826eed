package mail

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/providers"
	"github.com/johnquangdev/meeting-scheduler/pkg/config"
)

func TestBuildMessageThreadsReplies(t *testing.T) {
	msg := BuildMessage(mail.Address{Name: "Riley", Address: "riley@example.com"}, providers.SendInput{
		To:        []string{"sarah@acme.com"},
		Subject:   "Re: Acme demo",
		Body:      "Tuesday works.\nThanks",
		ReplyToID: "abc@mail.acme.com",
	}, "example.com")

	raw := string(msg.Raw)
	assert.Contains(t, raw, "In-Reply-To: <abc@mail.acme.com>\r\n")
	assert.Contains(t, raw, "References: <abc@mail.acme.com>\r\n")
	assert.Contains(t, raw, "To: sarah@acme.com\r\n")
	assert.NotContains(t, raw, "Cc:")
	assert.True(t, strings.HasSuffix(raw, "Tuesday works.\r\nThanks"))
	assert.True(t, strings.HasSuffix(msg.MessageID, "@example.com>"))

	parsed, err := mail.ReadMessage(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "Re: Acme demo", parsed.Header.Get("Subject"))
}

type fakeSES struct {
	in  *sesv2.SendEmailInput
	err error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-123")}, nil
}

func TestSESMailer(t *testing.T) {
	cfg := config.MailConfig{FromAddress: "scheduling@example.com", FromName: "Scheduling", SES: config.SESConfig{ConfigurationSet: "outbound"}}

	t.Run("new thread uses message id", func(t *testing.T) {
		client := &fakeSES{}
		res, err := newSESMailer(client, cfg).Send(context.Background(), providers.SendInput{To: []string{"a@b.com"}, Subject: "Hi", Body: "x"})
		require.NoError(t, err)
		assert.Equal(t, "ses-123", res.MessageID)
		assert.Equal(t, "ses-123", res.ThreadID)
		assert.Equal(t, "outbound", aws.ToString(client.in.ConfigurationSetName))
		assert.NotEmpty(t, client.in.Content.Raw.Data)
	})

	t.Run("existing thread is kept", func(t *testing.T) {
		res, err := newSESMailer(&fakeSES{}, cfg).Send(context.Background(), providers.SendInput{To: []string{"a@b.com"}, ThreadID: "t-1"})
		require.NoError(t, err)
		assert.Equal(t, "t-1", res.ThreadID)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := newSESMailer(&fakeSES{}, cfg).Send(context.Background(), providers.SendInput{})
		assert.Error(t, err)
		_, err = newSESMailer(&fakeSES{err: errors.New("throttled")}, cfg).Send(context.Background(), providers.SendInput{To: []string{"a@b.com"}})
		assert.Error(t, err)
	})
}

func TestLogAdapters(t *testing.T) {
	res, err := NewLogMailer(zap.NewNop()).Send(context.Background(), providers.SendInput{To: []string{"a@b.com"}})
	require.NoError(t, err)
	assert.Equal(t, res.MessageID, res.ThreadID)

	cal := NewLogCalendar(zap.NewNop())
	booked, err := cal.Book(context.Background(), providers.BookInput{Title: "Demo"})
	require.NoError(t, err)
	_, err = cal.Update(context.Background(), booked.EventID, providers.BookInput{})
	assert.NoError(t, err)
	_, err = cal.Update(context.Background(), "", providers.BookInput{})
	assert.ErrorIs(t, err, providers.ErrEventNotFound)
}
