package models

import (
	"encoding/json"
	"time"
)

// Lead event types written by the distribution engine
const (
	LeadEventAssigned   = "assigned"
	LeadEventUnassigned = "unassigned"
)

// LeadEvent is the append-only audit record of a routing decision. Events
// are written once per state change and never mutated or deleted.
type LeadEvent struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	TenantID    uint            `gorm:"not null;index:idx_lead_events_tenant" json:"tenant_id"`
	LeadID      uint            `gorm:"not null;index:idx_lead_events_lead" json:"lead_id"`
	Type        string          `gorm:"size:64;not null;index:idx_lead_events_type" json:"type"`
	ActorUserID *uint           `json:"actor_user_id,omitempty"`
	Payload     json.RawMessage `gorm:"type:jsonb" json:"payload,omitempty"`
	CreatedAt   time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_lead_events_created_at" json:"created_at"`

	Lead *Lead `gorm:"foreignKey:LeadID;references:ID" json:"lead,omitempty"`
}

func (LeadEvent) TableName() string {
	return "lead_events"
}

// LeadEventFilter represents filter criteria for lead event queries
type LeadEventFilter struct {
	ID       *uint
	TenantID *uint
	LeadID   *uint
	Type     *string
}
