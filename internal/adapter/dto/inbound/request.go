package inbound

import "time"

// ReceiveRequest is a reply pushed by the mail provider
type ReceiveRequest struct {
	UserID            string    `json:"user_id" validate:"required,uuid"`
	ProviderMessageID string    `json:"provider_message_id" validate:"required,max=255"`
	ThreadID          string    `json:"thread_id" validate:"max=255"`
	InReplyTo         string    `json:"in_reply_to" validate:"max=998"`
	FromEmail         string    `json:"from_email" validate:"required,email"`
	FromName          string    `json:"from_name" validate:"max=255"`
	Participants      []string  `json:"participants,omitempty"`
	Subject           string    `json:"subject" validate:"max=998"`
	Body              string    `json:"body"`
	ReceivedAt        time.Time `json:"received_at"`
	// Process runs the automation right away instead of waiting for the job
	Process bool `json:"process"`
}
