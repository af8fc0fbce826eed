package entities

import (
	"time"

	"github.com/google/uuid"
)

// InboundMessage is a reply received from the mail provider
type InboundMessage struct {
	ID                  uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ProviderMessageID   string     `json:"provider_message_id" gorm:"type:varchar(255);not null;uniqueIndex"`
	ThreadID            string     `json:"thread_id,omitempty" gorm:"type:varchar(255);index"`
	InReplyTo           string     `json:"in_reply_to,omitempty" gorm:"type:varchar(255)"`
	UserID              uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	FromEmail           string     `json:"from_email" gorm:"type:varchar(255);not null"`
	FromName            string     `json:"from_name,omitempty" gorm:"type:varchar(255)"`
	Participants        []string   `json:"participants,omitempty" gorm:"type:jsonb;serializer:json"`
	Subject             string     `json:"subject" gorm:"type:text"`
	Body                string     `json:"body" gorm:"type:text"`
	ReceivedAt          time.Time  `json:"received_at" gorm:"not null;index"`
	SchedulingRequestID *uuid.UUID `json:"scheduling_request_id,omitempty" gorm:"type:uuid;index"`
	ProcessedAt         *time.Time `json:"processed_at,omitempty" gorm:"index"`
	ProcessingError     string     `json:"processing_error,omitempty" gorm:"type:text"`
	LinkSuggestion      string     `json:"link_suggestion,omitempty" gorm:"type:text"`
	CreatedAt           time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM
func (InboundMessage) TableName() string {
	return "inbound_messages"
}

// IsProcessed reports whether the message was already handled
func (m *InboundMessage) IsProcessed() bool {
	return m.ProcessedAt != nil
}
