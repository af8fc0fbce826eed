package google

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/mail"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/providers"
	mailer "github.com/johnquangdev/meeting-scheduler/internal/infrastructure/external/mail"
)

const gmailBaseURL = "https://gmail.googleapis.com/gmail/v1"

// GmailMailer sends as the connected mailbox through the Gmail REST API
type GmailMailer struct {
	client  *http.Client
	baseURL string
	from    mail.Address
}

var _ providers.Mailer = (*GmailMailer)(nil)

// NewGmailMailer takes an OAuth2-authenticated client
func NewGmailMailer(client *http.Client, fromName, fromAddress string) *GmailMailer {
	return &GmailMailer{
		client:  client,
		baseURL: gmailBaseURL,
		from:    mail.Address{Name: fromName, Address: fromAddress},
	}
}

type gmailSendRequest struct {
	Raw      string `json:"raw"`
	ThreadID string `json:"threadId,omitempty"`
}

type gmailSendResponse struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
}

// Send posts the rendered message. Passing the thread id keeps replies in
// the Gmail conversation.
func (g *GmailMailer) Send(ctx context.Context, in providers.SendInput) (*providers.SendResult, error) {
	if len(in.To) == 0 {
		return nil, fmt.Errorf("gmail: no recipients")
	}
	from := g.from
	if in.From != "" {
		from.Address = in.From
	}
	msg := mailer.BuildMessage(from, in, mailer.DomainOf(from.Address))

	var out gmailSendResponse
	err := doJSON(ctx, g.client, http.MethodPost, g.baseURL+"/users/me/messages/send", gmailSendRequest{
		Raw:      base64.RawURLEncoding.EncodeToString(msg.Raw),
		ThreadID: in.ThreadID,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("gmail send failed: %w", err)
	}
	return &providers.SendResult{MessageID: out.ID, ThreadID: out.ThreadID}, nil
}
