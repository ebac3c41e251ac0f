package dto

import "time"

// UpdateLeadAssignmentRequest assigns or unassigns a single lead. A nil
// AssignedToUserID clears the current assignee.
type UpdateLeadAssignmentRequest struct {
	AssignedToUserID *uint   `json:"assigned_to_user_id" example:"5"`
	Status           *string `json:"status,omitempty" validate:"omitempty,oneof=new in_progress done cancelled" example:"in_progress"`
}

// LeadDTO represents a lead in API responses
type LeadDTO struct {
	ID              uint       `json:"id" example:"101"`
	UUID            string     `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	TenantID        *uint      `json:"tenant_id,omitempty" example:"2"`
	Status          string     `json:"status" example:"NEW"`
	AssignedUserID  *uint      `json:"assigned_user_id,omitempty" example:"5"`
	AssignedAt      *time.Time `json:"assigned_at,omitempty"`
	FirstAssignedAt *time.Time `json:"first_assigned_at,omitempty"`
	Source          *string    `json:"source,omitempty" example:"whatsapp"`
	Phone           *string    `json:"phone,omitempty" example:"+77071234567"`
	City            *string    `json:"city,omitempty" example:"Almaty"`
	Language        *string    `json:"language,omitempty" example:"ru"`
	ObjectType      *string    `json:"object_type,omitempty" example:"apartment"`
	Summary         *string    `json:"summary,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// BulkAssignRequest assigns many leads to one manager
type BulkAssignRequest struct {
	TenantID         uint    `json:"tenant_id" validate:"required" example:"2"`
	LeadIDs          []uint  `json:"lead_ids" validate:"required,min=1" example:"1,2,3"`
	AssignedToUserID uint    `json:"assigned_to_user_id" validate:"required" example:"5"`
	SetStatus        *string `json:"set_status,omitempty" validate:"omitempty,oneof=new in_progress done cancelled" example:"in_progress"`
}

// AssignDetailDTO is one per-lead line in a bulk operation response
type AssignDetailDTO struct {
	LeadID           uint   `json:"lead_id,omitempty" example:"101"`
	AssignedToUserID *uint  `json:"assigned_to_user_id,omitempty" example:"5"`
	Error            string `json:"error,omitempty" example:"lead not in tenant"`
}

// BulkAssignResponse reports the outcome of a bulk assignment
type BulkAssignResponse struct {
	Total    int               `json:"total" example:"3"`
	Assigned int               `json:"assigned" example:"2"`
	Skipped  int               `json:"skipped" example:"1"`
	Details  []AssignDetailDTO `json:"details"`
}

// CustomMapEntry maps a count of consecutive positions to a manager
type CustomMapEntry struct {
	UserID uint `json:"user_id" validate:"required" example:"5"`
	Count  int  `json:"count" validate:"required,min=1" example:"10"`
}

// RangeFiltersDTO narrows the candidate pool of a range assignment
type RangeFiltersDTO struct {
	Status         string `json:"status,omitempty" validate:"omitempty,oneof=new in_progress any" example:"new"`
	OnlyUnassigned *bool  `json:"only_unassigned,omitempty" example:"true"`
}

// AssignByRangeRequest distributes a 1-based inclusive index range of the
// filtered candidate pool
type AssignByRangeRequest struct {
	TenantID    uint             `json:"tenant_id" validate:"required" example:"2"`
	FromIndex   int              `json:"from_index" validate:"required,min=1" example:"5"`
	ToIndex     int              `json:"to_index" validate:"required,min=1" example:"12"`
	Strategy    string           `json:"strategy" validate:"required,oneof=round_robin fixed_user custom_map" example:"round_robin"`
	FixedUserID *uint            `json:"fixed_user_id,omitempty" example:"5"`
	CustomMap   []CustomMapEntry `json:"custom_map,omitempty"`
	Filters     *RangeFiltersDTO `json:"filters,omitempty"`
}

// AssignByRangeResponse reports the outcome of a range assignment
type AssignByRangeResponse struct {
	TotalSelected int               `json:"total_selected" example:"120"`
	Assigned      int               `json:"assigned" example:"8"`
	Skipped       int               `json:"skipped" example:"0"`
	Details       []AssignDetailDTO `json:"details"`
}

// AssignPlanItemDTO routes a 1-based half-open [from, to) slice of the
// id-ordered lead selection to one manager
type AssignPlanItemDTO struct {
	ManagerUserID uint `json:"manager_user_id" validate:"required" example:"5"`
	FromIndex     int  `json:"from_index" validate:"required,min=1" example:"1"`
	ToIndex       int  `json:"to_index" validate:"required,min=2" example:"11"`
}

// AssignPlanRequest executes several range plans over an explicit lead selection
type AssignPlanRequest struct {
	TenantID  uint                `json:"tenant_id" validate:"required" example:"2"`
	LeadIDs   []uint              `json:"lead_ids" validate:"required,min=1"`
	Plans     []AssignPlanItemDTO `json:"plans" validate:"required,min=1,dive"`
	SetStatus *string             `json:"set_status,omitempty" validate:"omitempty,oneof=new in_progress done cancelled"`
	DryRun    bool                `json:"dry_run" example:"false"`
}

// AssignPlanResponse reports the outcome of a plan execution
type AssignPlanResponse struct {
	Total    int               `json:"total" example:"10"`
	Assigned int               `json:"assigned" example:"10"`
	Skipped  int               `json:"skipped" example:"0"`
	DryRun   bool              `json:"dry_run" example:"false"`
	Details  []AssignDetailDTO `json:"details"`
}
