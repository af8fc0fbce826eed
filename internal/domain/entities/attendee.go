package entities

import (
	"time"

	"github.com/google/uuid"
)

// AttendeeSide distinguishes team members from contacts
type AttendeeSide string

const (
	AttendeeSideInternal AttendeeSide = "internal"
	AttendeeSideExternal AttendeeSide = "external"
)

// InviteStatus mirrors the calendar invite response
type InviteStatus string

const (
	InviteStatusPending   InviteStatus = "pending"
	InviteStatusAccepted  InviteStatus = "accepted"
	InviteStatusDeclined  InviteStatus = "declined"
	InviteStatusTentative InviteStatus = "tentative"
)

// Attendee is a participant owned by exactly one scheduling request
type Attendee struct {
	ID               uuid.UUID    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RequestID        uuid.UUID    `json:"request_id" gorm:"type:uuid;not null;index"`
	Side             AttendeeSide `json:"side" gorm:"type:varchar(20);not null"`
	Name             string       `json:"name" gorm:"type:varchar(255)"`
	Email            string       `json:"email" gorm:"type:varchar(255);not null"`
	Title            string       `json:"title,omitempty" gorm:"type:varchar(255)"`
	IsPrimaryContact bool         `json:"is_primary_contact" gorm:"default:false"`
	IsOrganizer      bool         `json:"is_organizer" gorm:"default:false"`
	InviteStatus     InviteStatus `json:"invite_status" gorm:"type:varchar(20);not null;default:'pending'"`
	CreatedAt        time.Time    `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM
func (Attendee) TableName() string {
	return "scheduling_attendees"
}
