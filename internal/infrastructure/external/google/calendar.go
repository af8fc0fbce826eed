package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/providers"
)

const calendarBaseURL = "https://www.googleapis.com/calendar/v3"

// Calendar books events on the connected mailbox's calendar and attaches a
// Meet link
type Calendar struct {
	client     *http.Client
	baseURL    string
	calendarID string
}

var _ providers.Calendar = (*Calendar)(nil)

// NewCalendar takes an OAuth2-authenticated client
func NewCalendar(client *http.Client, calendarID string) *Calendar {
	if calendarID == "" {
		calendarID = "primary"
	}
	return &Calendar{client: client, baseURL: calendarBaseURL, calendarID: calendarID}
}

type eventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone,omitempty"`
}

type eventAttendee struct {
	Email string `json:"email"`
}

type conferenceData struct {
	CreateRequest *createConferenceRequest `json:"createRequest,omitempty"`
}

type createConferenceRequest struct {
	RequestID             string            `json:"requestId"`
	ConferenceSolutionKey map[string]string `json:"conferenceSolutionKey"`
}

type event struct {
	ID             string          `json:"id,omitempty"`
	Summary        string          `json:"summary,omitempty"`
	Start          *eventTime      `json:"start,omitempty"`
	End            *eventTime      `json:"end,omitempty"`
	Attendees      []eventAttendee `json:"attendees,omitempty"`
	ConferenceData *conferenceData `json:"conferenceData,omitempty"`
	HangoutLink    string          `json:"hangoutLink,omitempty"`
	HTMLLink       string          `json:"htmlLink,omitempty"`
}

func toEvent(in providers.BookInput) event {
	tz := in.Timezone
	if tz == "" {
		tz = "UTC"
	}
	end := in.Start.Add(time.Duration(in.DurationMinutes) * time.Minute)
	ev := event{
		Summary: in.Title,
		Start:   &eventTime{DateTime: in.Start.Format(time.RFC3339), TimeZone: tz},
		End:     &eventTime{DateTime: end.Format(time.RFC3339), TimeZone: tz},
	}
	for _, a := range in.Attendees {
		ev.Attendees = append(ev.Attendees, eventAttendee{Email: a})
	}
	return ev
}

func (e event) result() *providers.BookResult {
	link := e.HangoutLink
	if link == "" {
		link = e.HTMLLink
	}
	return &providers.BookResult{EventID: e.ID, MeetingLink: link}
}

func (c *Calendar) eventsURL(eventID string) string {
	u := fmt.Sprintf("%s/calendars/%s/events", c.baseURL, url.PathEscape(c.calendarID))
	if eventID != "" {
		u += "/" + url.PathEscape(eventID)
	}
	return u + "?sendUpdates=all&conferenceDataVersion=1"
}

// Book creates the event and invites every attendee
func (c *Calendar) Book(ctx context.Context, in providers.BookInput) (*providers.BookResult, error) {
	ev := toEvent(in)
	ev.ConferenceData = &conferenceData{CreateRequest: &createConferenceRequest{
		RequestID:             uuid.NewString(),
		ConferenceSolutionKey: map[string]string{"type": "hangoutsMeet"},
	}}

	var out event
	if err := doJSON(ctx, c.client, http.MethodPost, c.eventsURL(""), ev, &out); err != nil {
		return nil, fmt.Errorf("calendar book failed: %w", err)
	}
	return out.result(), nil
}

// Update moves an existing event
func (c *Calendar) Update(ctx context.Context, eventID string, in providers.BookInput) (*providers.BookResult, error) {
	var out event
	if err := doJSON(ctx, c.client, http.MethodPatch, c.eventsURL(eventID), toEvent(in), &out); err != nil {
		return nil, fmt.Errorf("calendar update failed: %w", notFound(err))
	}
	return out.result(), nil
}

// Cancel deletes the event and notifies attendees. A missing event is
// reported as providers.ErrEventNotFound.
func (c *Calendar) Cancel(ctx context.Context, eventID string) error {
	if err := doJSON(ctx, c.client, http.MethodDelete, c.eventsURL(eventID), nil, nil); err != nil {
		return fmt.Errorf("calendar cancel failed: %w", notFound(err))
	}
	return nil
}

func notFound(err error) error {
	var apiErr *apiError
	if errors.As(err, &apiErr) && (apiErr.Status == http.StatusNotFound || apiErr.Status == http.StatusGone) {
		return providers.ErrEventNotFound
	}
	return err
}
