package providers

import (
	"context"
	"errors"
	"time"
)

// ErrEventNotFound is returned by calendars for an unknown event id
var ErrEventNotFound = errors.New("calendar event not found")

// SendInput is one outbound email
type SendInput struct {
	From      string
	To        []string
	Cc        []string
	Subject   string
	Body      string
	ReplyToID string
	ThreadID  string
}

// SendResult identifies the sent message in the provider
type SendResult struct {
	MessageID string
	ThreadID  string
}

// Mailer sends email on behalf of the user
type Mailer interface {
	Send(ctx context.Context, in SendInput) (*SendResult, error)
}

// BookInput describes a calendar event
type BookInput struct {
	Start           time.Time
	DurationMinutes int
	Attendees       []string
	Title           string
	Timezone        string
}

// BookResult identifies the booked event
type BookResult struct {
	EventID     string
	MeetingLink string
}

// Calendar books and maintains events
type Calendar interface {
	Book(ctx context.Context, in BookInput) (*BookResult, error)
	Update(ctx context.Context, eventID string, in BookInput) (*BookResult, error)
	Cancel(ctx context.Context, eventID string) error
}

// BodyArchive stores sent message bodies and returns a retrievable key
type BodyArchive interface {
	Put(ctx context.Context, key string, body string) (string, error)
}
