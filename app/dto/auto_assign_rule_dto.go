package dto

import "time"

// CreateAutoAssignRuleRequest represents the payload to create a routing rule
type CreateAutoAssignRuleRequest struct {
	Name            string  `json:"name" validate:"required,min=1,max=255" example:"Almaty daytime"`
	IsActive        *bool   `json:"is_active" example:"true"`
	Priority        int     `json:"priority" example:"10"`
	MatchCity       *string `json:"match_city,omitempty" validate:"omitempty,max=255" example:"Almaty"`
	MatchLanguage   *string `json:"match_language,omitempty" validate:"omitempty,max=32" example:"ru"`
	MatchObjectType *string `json:"match_object_type,omitempty" validate:"omitempty,max=255" example:"apartment"`
	MatchContains   *string `json:"match_contains,omitempty" validate:"omitempty,max=512" example:"ипотека"`
	TimeFrom        *int    `json:"time_from,omitempty" validate:"omitempty,min=0,max=23" example:"9"`
	TimeTo          *int    `json:"time_to,omitempty" validate:"omitempty,min=0,max=23" example:"18"`
	DaysOfWeek      *string `json:"days_of_week,omitempty" validate:"omitempty,max=32" example:"1,2,3,4,5"`
	Strategy        string  `json:"strategy" validate:"required,oneof=round_robin least_loaded fixed_user" example:"round_robin"`
	FixedUserID     *uint   `json:"fixed_user_id,omitempty" example:"42"`
}

// UpdateAutoAssignRuleRequest represents a partial rule update
type UpdateAutoAssignRuleRequest struct {
	Name            *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	IsActive        *bool   `json:"is_active,omitempty"`
	Priority        *int    `json:"priority,omitempty"`
	MatchCity       *string `json:"match_city,omitempty" validate:"omitempty,max=255"`
	MatchLanguage   *string `json:"match_language,omitempty" validate:"omitempty,max=32"`
	MatchObjectType *string `json:"match_object_type,omitempty" validate:"omitempty,max=255"`
	MatchContains   *string `json:"match_contains,omitempty" validate:"omitempty,max=512"`
	TimeFrom        *int    `json:"time_from,omitempty" validate:"omitempty,min=0,max=23"`
	TimeTo          *int    `json:"time_to,omitempty" validate:"omitempty,min=0,max=23"`
	DaysOfWeek      *string `json:"days_of_week,omitempty" validate:"omitempty,max=32"`
	Strategy        *string `json:"strategy,omitempty" validate:"omitempty,oneof=round_robin least_loaded fixed_user"`
	FixedUserID     *uint   `json:"fixed_user_id,omitempty"`
}

// AutoAssignRuleDTO represents a rule in API responses
type AutoAssignRuleDTO struct {
	ID              uint      `json:"id" example:"1"`
	TenantID        uint      `json:"tenant_id" example:"2"`
	Name            string    `json:"name" example:"Almaty daytime"`
	IsActive        *bool     `json:"is_active" example:"true"`
	Priority        int       `json:"priority" example:"10"`
	MatchCity       *string   `json:"match_city,omitempty"`
	MatchLanguage   *string   `json:"match_language,omitempty"`
	MatchObjectType *string   `json:"match_object_type,omitempty"`
	MatchContains   *string   `json:"match_contains,omitempty"`
	TimeFrom        *int      `json:"time_from,omitempty"`
	TimeTo          *int      `json:"time_to,omitempty"`
	DaysOfWeek      *string   `json:"days_of_week,omitempty"`
	Strategy        string    `json:"strategy" example:"round_robin"`
	FixedUserID     *uint     `json:"fixed_user_id,omitempty"`
	RRState         int       `json:"rr_state" example:"7"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
