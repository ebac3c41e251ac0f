package models

import (
	"time"
)

// Tenant user roles
const (
	TenantRoleOwner   = "owner"
	TenantRoleROP     = "rop"
	TenantRoleManager = "manager"
	// TenantRoleMember is a legacy role treated as manager for roster purposes
	TenantRoleMember = "member"
)

// TenantUser links a user to a tenant with a role. The manager roster of a
// tenant is the set of active links with role manager or legacy member,
// ordered by link id (insertion order).
type TenantUser struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TenantID  uint      `gorm:"not null;index:idx_tenant_users_tenant;uniqueIndex:uk_tenant_users_pair,priority:1" json:"tenant_id"`
	UserID    uint      `gorm:"not null;index:idx_tenant_users_user;uniqueIndex:uk_tenant_users_pair,priority:2" json:"user_id"`
	Role      string    `gorm:"size:32;not null" json:"role"`
	IsActive  *bool     `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`

	Tenant *Tenant `gorm:"foreignKey:TenantID;references:ID" json:"tenant,omitempty"`
	User   *User   `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
}

func (TenantUser) TableName() string {
	return "tenant_users"
}

// IsRosterRole reports whether the role makes the link part of the manager
// roster.
func (tu *TenantUser) IsRosterRole() bool {
	return tu.Role == TenantRoleManager || tu.Role == TenantRoleMember
}

// TenantUserFilter represents filter criteria for tenant-user link queries
type TenantUserFilter struct {
	ID       *uint
	TenantID *uint
	UserID   *uint
	Role     *string
	IsActive *bool
}
