package dto

import (
	"encoding/json"
	"time"
)

// CreateTestLeadRequest creates a lead in a tenant and routes it immediately
type CreateTestLeadRequest struct {
	Phone      *string `json:"phone,omitempty" example:"+77071234567"`
	City       *string `json:"city,omitempty" example:"Almaty"`
	Language   *string `json:"language,omitempty" example:"ru"`
	ObjectType *string `json:"object_type,omitempty" example:"apartment"`
	Summary    *string `json:"summary,omitempty" example:"ipoteka consultation"`
	Source     *string `json:"source,omitempty" example:"test"`
}

// AutoAssignOutcomeDTO reports one routing engine run
type AutoAssignOutcomeDTO struct {
	Assigned       bool   `json:"assigned" example:"true"`
	Outcome        string `json:"outcome" example:"assigned"`
	RuleID         *uint  `json:"rule_id,omitempty" example:"7"`
	Strategy       string `json:"strategy,omitempty" example:"round_robin"`
	AssignedUserID *uint  `json:"assigned_user_id,omitempty" example:"5"`
}

// CreateTestLeadResponse carries the created lead plus the routing outcome
type CreateTestLeadResponse struct {
	Lead       LeadDTO              `json:"lead"`
	AutoAssign AutoAssignOutcomeDTO `json:"auto_assign"`
}

// LeadEventDTO represents one audit trail entry
type LeadEventDTO struct {
	ID          uint            `json:"id" example:"301"`
	TenantID    uint            `json:"tenant_id" example:"2"`
	LeadID      uint            `json:"lead_id" example:"101"`
	Type        string          `json:"type" example:"assigned"`
	ActorUserID *uint           `json:"actor_user_id,omitempty" example:"1"`
	Payload     json.RawMessage `json:"payload,omitempty" swaggertype:"object"`
	CreatedAt   time.Time       `json:"created_at"`
}
