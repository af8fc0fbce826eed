package mail

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/providers"
)

// LogMailer writes outbound mail to the log instead of sending it. Used in
// development and when MAIL_PROVIDER=log.
type LogMailer struct {
	logger *zap.Logger
}

var _ providers.Mailer = (*LogMailer)(nil)

// NewLogMailer creates a mailer that only logs
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the message and returns a synthetic id
func (m *LogMailer) Send(_ context.Context, in providers.SendInput) (*providers.SendResult, error) {
	id := "log-" + uuid.NewString()
	thread := in.ThreadID
	if thread == "" {
		thread = id
	}
	m.logger.Info("📧 Email (not sent)",
		zap.Strings("to", in.To),
		zap.Strings("cc", in.Cc),
		zap.String("subject", in.Subject),
		zap.String("thread_id", thread),
		zap.Int("body_bytes", len(in.Body)),
	)
	return &providers.SendResult{MessageID: id, ThreadID: thread}, nil
}

// LogCalendar records bookings in the log only
type LogCalendar struct {
	logger *zap.Logger
}

var _ providers.Calendar = (*LogCalendar)(nil)

// NewLogCalendar creates a calendar that only logs
func NewLogCalendar(logger *zap.Logger) *LogCalendar {
	return &LogCalendar{logger: logger}
}

// Book logs the event and returns a synthetic id
func (c *LogCalendar) Book(_ context.Context, in providers.BookInput) (*providers.BookResult, error) {
	id := "log-" + uuid.NewString()
	c.logger.Info("📅 Event booked (log only)",
		zap.String("event_id", id),
		zap.String("title", in.Title),
		zap.Time("start", in.Start),
		zap.Int("duration_minutes", in.DurationMinutes),
		zap.Strings("attendees", in.Attendees),
	)
	return &providers.BookResult{EventID: id}, nil
}

// Update logs the moved event
func (c *LogCalendar) Update(_ context.Context, eventID string, in providers.BookInput) (*providers.BookResult, error) {
	if eventID == "" {
		return nil, fmt.Errorf("update %q: %w", eventID, providers.ErrEventNotFound)
	}
	c.logger.Info("📅 Event moved (log only)", zap.String("event_id", eventID), zap.Time("start", in.Start))
	return &providers.BookResult{EventID: eventID}, nil
}

// Cancel logs the cancellation
func (c *LogCalendar) Cancel(_ context.Context, eventID string) error {
	c.logger.Info("📅 Event cancelled (log only)", zap.String("event_id", eventID))
	return nil
}
