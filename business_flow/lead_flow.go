package businessflow

import (
	"context"

	"github.com/adilet-dev/leadflow/models"
	"github.com/adilet-dev/leadflow/repository"
	"github.com/adilet-dev/leadflow/utils"
	"github.com/google/uuid"
)

// TestLeadInput carries the fields of an operator-created test lead
type TestLeadInput struct {
	Phone      *string
	City       *string
	Language   *string
	ObjectType *string
	Summary    *string
	Source     *string
}

// LeadFlow covers lead creation and the audit trail read
type LeadFlow interface {
	CreateTestLead(ctx context.Context, actorID uint, tenantID uint, input *TestLeadInput, metadata *ClientMetadata) (*models.Lead, *AutoAssignResult, error)
	ListLeadEvents(ctx context.Context, actorID uint, leadID uint) ([]*models.LeadEvent, error)
}

// LeadFlowImpl implements LeadFlow
type LeadFlowImpl struct {
	leadRepo       repository.LeadRepository
	userRepo       repository.UserRepository
	tenantRepo     repository.TenantRepository
	tenantUserRepo repository.TenantUserRepository
	leadEventRepo  repository.LeadEventRepository
	autoAssignFlow AutoAssignFlow
}

// NewLeadFlow creates a new lead flow
func NewLeadFlow(
	leadRepo repository.LeadRepository,
	userRepo repository.UserRepository,
	tenantRepo repository.TenantRepository,
	tenantUserRepo repository.TenantUserRepository,
	leadEventRepo repository.LeadEventRepository,
	autoAssignFlow AutoAssignFlow,
) LeadFlow {
	return &LeadFlowImpl{
		leadRepo:       leadRepo,
		userRepo:       userRepo,
		tenantRepo:     tenantRepo,
		tenantUserRepo: tenantUserRepo,
		leadEventRepo:  leadEventRepo,
		autoAssignFlow: autoAssignFlow,
	}
}

// CreateTestLead creates a lead directly in a tenant and immediately runs it
// through the auto-assign engine, returning both the lead and the routing
// outcome so operators can verify their rules end to end.
func (f *LeadFlowImpl) CreateTestLead(ctx context.Context, actorID uint, tenantID uint, input *TestLeadInput, metadata *ClientMetadata) (*models.Lead, *AutoAssignResult, error) {
	actor, err := loadActor(ctx, f.userRepo, actorID)
	if err != nil {
		return nil, nil, err
	}
	if _, err := ensureTenantAccess(ctx, f.tenantRepo, f.tenantUserRepo, actor, tenantID); err != nil {
		return nil, nil, err
	}

	now := utils.UTCNow()
	source := "test"
	if input.Source != nil && *input.Source != "" {
		source = *input.Source
	}
	lead := &models.Lead{
		UUID:       uuid.New(),
		TenantID:   &tenantID,
		Status:     models.LeadStatusNew,
		Source:     &source,
		Phone:      input.Phone,
		City:       input.City,
		Language:   input.Language,
		ObjectType: input.ObjectType,
		Summary:    input.Summary,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := f.leadRepo.Save(ctx, lead); err != nil {
		return nil, nil, NewBusinessError("LEAD_CREATE_FAILED", "Failed to create test lead", err)
	}

	result, err := f.autoAssignFlow.TryAutoAssign(ctx, lead.ID, input.Summary)
	if err != nil {
		return nil, nil, err
	}
	logAudit("test_lead_created", actor.ID, metadata)

	refreshed, err := f.leadRepo.ByID(ctx, lead.ID)
	if err != nil || refreshed == nil {
		return lead, result, nil
	}
	return refreshed, result, nil
}

// ListLeadEvents returns a lead's audit trail, newest first
func (f *LeadFlowImpl) ListLeadEvents(ctx context.Context, actorID uint, leadID uint) ([]*models.LeadEvent, error) {
	actor, err := loadActor(ctx, f.userRepo, actorID)
	if err != nil {
		return nil, err
	}

	lead, err := f.leadRepo.ByID(ctx, leadID)
	if err != nil {
		return nil, NewBusinessError("LEAD_LOOKUP_FAILED", "Failed to load lead", err)
	}
	if lead == nil {
		return nil, ErrLeadNotFound
	}
	if lead.TenantID == nil {
		return nil, ErrTenantNotFound
	}
	if _, err := ensureTenantAccess(ctx, f.tenantRepo, f.tenantUserRepo, actor, *lead.TenantID); err != nil {
		return nil, err
	}

	events, err := f.leadEventRepo.ListByLead(ctx, leadID, 0, 0)
	if err != nil {
		return nil, NewBusinessError("EVENT_LIST_FAILED", "Failed to list lead events", err)
	}
	return events, nil
}
