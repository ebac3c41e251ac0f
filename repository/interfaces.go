// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/adilet-dev/leadflow/models"
)

// contextKey is the key type for transaction values stored in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// UserRepository defines operations for operator accounts
type UserRepository interface {
	Repository[models.User, models.UserFilter]
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByUUID(ctx context.Context, uuid string) (*models.User, error)
}

// TenantRepository defines operations for tenants
type TenantRepository interface {
	Repository[models.Tenant, models.TenantFilter]
	BySlug(ctx context.Context, slug string) (*models.Tenant, error)
}

// TenantUserRepository defines operations for tenant-user links and the
// manager roster derived from them
type TenantUserRepository interface {
	Repository[models.TenantUser, models.TenantUserFilter]
	// ManagerIDs returns the active manager roster of a tenant ordered by
	// link id ascending (insertion order).
	ManagerIDs(ctx context.Context, tenantID uint) ([]uint, error)
	// RoleOf returns the active role of a user within a tenant, or "" when
	// the user is not a member.
	RoleOf(ctx context.Context, tenantID, userID uint) (string, error)
}

// LeadAssignmentUpdate carries the assignment fields written on a lead.
// A nil AssignedUserID clears both assigned_user_id and assigned_at;
// FirstAssignedAt is only ever written when non-nil (write-once invariant
// is enforced by the flows). Status is optional.
type LeadAssignmentUpdate struct {
	AssignedUserID  *uint
	AssignedAt      *time.Time
	FirstAssignedAt *time.Time
	Status          *models.LeadStatus
}

// LeadRepository defines operations for leads
type LeadRepository interface {
	Repository[models.Lead, models.LeadFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Lead, error)
	// UpdateAssignment persists the assignment fields of a lead.
	UpdateAssignment(ctx context.Context, leadID uint, upd LeadAssignmentUpdate) error
	// CountActiveByAssignee returns, per assignee, the number of leads in a
	// tenant with status NEW or IN_PROGRESS created at or after since.
	CountActiveByAssignee(ctx context.Context, tenantID uint, since time.Time) (map[uint]int64, error)
}

// AutoAssignRuleRepository defines operations for auto-assign rules
type AutoAssignRuleRepository interface {
	Repository[models.AutoAssignRule, models.AutoAssignRuleFilter]
	// ListByTenant returns a tenant's rules ordered by (priority ASC, id ASC).
	ListByTenant(ctx context.Context, tenantID uint, activeOnly bool) ([]*models.AutoAssignRule, error)
	// UpdateRotation writes the rotation cursor of a rule. The caller
	// computes the new value from the rule it already loaded; the write is a
	// plain unguarded update, committed immediately.
	UpdateRotation(ctx context.Context, ruleID uint, rrState int) error
	Update(ctx context.Context, rule *models.AutoAssignRule) error
	Delete(ctx context.Context, ruleID uint) error
}

// LeadEventRepository defines operations for the append-only lead event log.
// Events are saved once and never updated or deleted.
type LeadEventRepository interface {
	Repository[models.LeadEvent, models.LeadEventFilter]
	ListByLead(ctx context.Context, leadID uint, limit, offset int) ([]*models.LeadEvent, error)
}
