// Package businessflow contains the business logic for the application.
package businessflow

import (
	"context"
	"log"

	"github.com/adilet-dev/leadflow/models"
	"github.com/adilet-dev/leadflow/repository"
	"github.com/adilet-dev/leadflow/utils"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// logAudit writes one structured audit line for a mutating operation,
// carrying the client metadata captured by the HTTP layer.
func logAudit(action string, actorID uint, metadata *ClientMetadata) {
	if metadata == nil {
		log.Printf(`{"level":"info","event":"audit","action":%q,"actor_user_id":%d}`, action, actorID)
		return
	}
	log.Printf(`{"level":"info","event":"audit","action":%q,"actor_user_id":%d,"ip":%q,"user_agent":%q,"request_id":%q}`,
		action, actorID, metadata.IPAddress, metadata.UserAgent, metadata.RequestID)
}

// loadActor resolves the acting user and verifies the account is usable
func loadActor(ctx context.Context, userRepo repository.UserRepository, actorID uint) (*models.User, error) {
	actor, err := userRepo.ByID(ctx, actorID)
	if err != nil {
		return nil, NewBusinessError("USER_LOOKUP_FAILED", "Failed to load user", err)
	}
	if actor == nil {
		return nil, ErrUserNotFound
	}
	if !utils.IsTrue(actor.IsActive) {
		return nil, ErrAccountInactive
	}
	return actor, nil
}

// ensureTenantAccess loads the tenant and verifies the actor may manage it.
// Platform admins and the tenant's default owner always pass; otherwise the
// actor needs an active owner or rop link in the tenant.
func ensureTenantAccess(
	ctx context.Context,
	tenantRepo repository.TenantRepository,
	tenantUserRepo repository.TenantUserRepository,
	actor *models.User,
	tenantID uint,
) (*models.Tenant, error) {
	tenant, err := tenantRepo.ByID(ctx, tenantID)
	if err != nil {
		return nil, NewBusinessError("TENANT_LOOKUP_FAILED", "Failed to load tenant", err)
	}
	if tenant == nil {
		return nil, ErrTenantNotFound
	}
	if !utils.IsTrue(tenant.IsActive) {
		return nil, ErrTenantInactive
	}

	if utils.IsTrue(actor.IsAdmin) {
		return tenant, nil
	}
	if tenant.DefaultOwnerUserID != nil && *tenant.DefaultOwnerUserID == actor.ID {
		return tenant, nil
	}

	role, err := tenantUserRepo.RoleOf(ctx, tenantID, actor.ID)
	if err != nil {
		return nil, NewBusinessError("TENANT_ROLE_LOOKUP_FAILED", "Failed to resolve tenant role", err)
	}
	if role == models.TenantRoleOwner || role == models.TenantRoleROP {
		return tenant, nil
	}

	return nil, ErrTenantAccessDenied
}

// ensureRosterMember verifies the target user is on the tenant's active
// manager roster and returns the full roster for reuse by the caller.
func ensureRosterMember(
	ctx context.Context,
	tenantUserRepo repository.TenantUserRepository,
	tenantID, userID uint,
) ([]uint, error) {
	roster, err := tenantUserRepo.ManagerIDs(ctx, tenantID)
	if err != nil {
		return nil, NewBusinessError("ROSTER_LOOKUP_FAILED", "Failed to load manager roster", err)
	}
	for _, id := range roster {
		if id == userID {
			return roster, nil
		}
	}
	return nil, ErrAssigneeNotManager
}
