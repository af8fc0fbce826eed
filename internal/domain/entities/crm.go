package entities

import (
	"time"

	"github.com/google/uuid"
)

// Company, Contact and Deal are owned by the CRM and only read here.

// Company is an organisation known to the CRM
type Company struct {
	ID     uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	Name   string    `json:"name" gorm:"type:varchar(255)"`
	Domain string    `json:"domain" gorm:"type:varchar(255);index"`
}

// TableName specifies the table name for GORM
func (Company) TableName() string {
	return "crm_companies"
}

// Contact is a person at a company
type Contact struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	CompanyID      *uuid.UUID `json:"company_id,omitempty" gorm:"type:uuid;index"`
	Email          string     `json:"email" gorm:"type:varchar(255);index"`
	Name           string     `json:"name" gorm:"type:varchar(255)"`
	Persona        string     `json:"persona,omitempty" gorm:"type:varchar(50)"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`
}

// TableName specifies the table name for GORM
func (Contact) TableName() string {
	return "crm_contacts"
}

// Deal is an opportunity linked to a company and optionally a contact
type Deal struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	CompanyID uuid.UUID  `json:"company_id" gorm:"type:uuid;index"`
	ContactID *uuid.UUID `json:"contact_id,omitempty" gorm:"type:uuid;index"`
	Name      string     `json:"name" gorm:"type:varchar(255)"`
	Stage     string     `json:"stage" gorm:"type:varchar(50)"`
	IsActive  bool       `json:"is_active"`
}

// TableName specifies the table name for GORM
func (Deal) TableName() string {
	return "crm_deals"
}
