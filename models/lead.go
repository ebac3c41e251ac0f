package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LeadStatus represents the lifecycle status of a lead
type LeadStatus string

const (
	LeadStatusNew        LeadStatus = "NEW"
	LeadStatusInProgress LeadStatus = "IN_PROGRESS"
	LeadStatusDone       LeadStatus = "DONE"
	LeadStatusCancelled  LeadStatus = "CANCELLED"
)

// String returns the string representation of the status
func (s LeadStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusNew, LeadStatusInProgress, LeadStatusDone, LeadStatusCancelled:
		return true
	default:
		return false
	}
}

// IsActive reports whether the lead counts toward a manager's active load
func (s LeadStatus) IsActive() bool {
	return s == LeadStatusNew || s == LeadStatusInProgress
}

// Scan implements the sql.Scanner interface for LeadStatus
func (s *LeadStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = LeadStatus(v)
	case []byte:
		*s = LeadStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into LeadStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for LeadStatus
func (s LeadStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid LeadStatus: %s", s)
	}
	return string(s), nil
}

// ParseLeadStatus maps an API status filter value (case-insensitive) to a
// LeadStatus. Returns false when the value names no known status.
func ParseLeadStatus(v string) (LeadStatus, bool) {
	switch v {
	case "new", "NEW":
		return LeadStatusNew, true
	case "in_progress", "IN_PROGRESS":
		return LeadStatusInProgress, true
	case "done", "DONE":
		return LeadStatusDone, true
	case "cancelled", "CANCELLED":
		return LeadStatusCancelled, true
	default:
		return "", false
	}
}

// Lead represents a sales lead. TenantID stays nil until the ingestion path
// resolves the owning tenant. FirstAssignedAt is write-once: set the first
// time AssignedUserID becomes non-nil and never cleared afterwards, while
// AssignedAt tracks the latest assignment and is cleared on unassignment.
type Lead struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UUID            uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_leads_uuid" json:"uuid"`
	TenantID        *uint      `gorm:"index:idx_leads_tenant" json:"tenant_id,omitempty"`
	Status          LeadStatus `gorm:"size:32;not null;default:'NEW';index:idx_leads_status" json:"status"`
	AssignedUserID  *uint      `gorm:"index:idx_leads_assigned_user" json:"assigned_user_id,omitempty"`
	AssignedAt      *time.Time `json:"assigned_at,omitempty"`
	FirstAssignedAt *time.Time `json:"first_assigned_at,omitempty"`
	Source          *string    `gorm:"size:64" json:"source,omitempty"`
	Phone           *string    `gorm:"size:64" json:"phone,omitempty"`
	City            *string    `gorm:"size:255" json:"city,omitempty"`
	Language        *string    `gorm:"size:32" json:"language,omitempty"`
	ObjectType      *string    `gorm:"size:255" json:"object_type,omitempty"`
	Summary         *string    `gorm:"type:text" json:"summary,omitempty"`
	CreatedAt       time.Time  `gorm:"default:CURRENT_TIMESTAMP;index:idx_leads_created_at" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	Tenant       *Tenant `gorm:"foreignKey:TenantID;references:ID" json:"tenant,omitempty"`
	AssignedUser *User   `gorm:"foreignKey:AssignedUserID;references:ID" json:"assigned_user,omitempty"`
}

func (Lead) TableName() string {
	return "leads"
}

// IsAssigned reports whether the lead currently has an assignee
func (l *Lead) IsAssigned() bool {
	return l.AssignedUserID != nil
}

// LeadFilter represents filter criteria for lead queries
type LeadFilter struct {
	ID             *uint
	UUID           *uuid.UUID
	TenantID       *uint
	Status         *LeadStatus
	AssignedUserID *uint
	Unassigned     *bool
	CreatedAfter   *time.Time
	CreatedBefore  *time.Time
}
