package models

import (
	"time"
)

// Tenant represents an isolated customer account; all rules, managers, and
// leads are scoped to exactly one tenant.
type Tenant struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	Name               string    `gorm:"size:255;not null" json:"name"`
	Slug               string    `gorm:"size:255;not null;uniqueIndex:uk_tenants_slug" json:"slug"`
	IsActive           *bool     `gorm:"default:true" json:"is_active"`
	DefaultOwnerUserID *uint     `gorm:"index:idx_tenants_default_owner" json:"default_owner_user_id,omitempty"`
	CreatedAt          time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Tenant) TableName() string {
	return "tenants"
}

// TenantFilter represents filter criteria for tenant queries
type TenantFilter struct {
	ID       *uint
	Slug     *string
	IsActive *bool
}
