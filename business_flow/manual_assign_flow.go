package businessflow

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/adilet-dev/leadflow/models"
	"github.com/adilet-dev/leadflow/repository"
	"github.com/adilet-dev/leadflow/utils"
	"gorm.io/gorm"
)

// Manual assignment strategies accepted by AssignByRange
const (
	RangeStrategyRoundRobin = "round_robin"
	RangeStrategyFixedUser  = "fixed_user"
	RangeStrategyCustomMap  = "custom_map"
)

// rangeCandidateLimit bounds the candidate pool scanned by AssignByRange
const rangeCandidateLimit = 5000

// AssignDetail is one per-lead line in a bulk operation response
type AssignDetail struct {
	LeadID           uint   `json:"lead_id,omitempty"`
	AssignedToUserID *uint  `json:"assigned_to_user_id,omitempty"`
	Error            string `json:"error,omitempty"`
}

// CustomMapBucket maps a count of consecutive slice positions to a manager
type CustomMapBucket struct {
	UserID uint `json:"user_id"`
	Count  int  `json:"count"`
}

// RangeFilters narrows the candidate pool of AssignByRange
type RangeFilters struct {
	Status         string `json:"status,omitempty"`
	OnlyUnassigned *bool  `json:"only_unassigned,omitempty"`
}

// AssignByRangeInput selects a 1-based inclusive slice of the filtered,
// created_at-ordered candidate pool and distributes it to managers.
type AssignByRangeInput struct {
	TenantID    uint
	FromIndex   int
	ToIndex     int
	Strategy    string
	FixedUserID *uint
	CustomMap   []CustomMapBucket
	Filters     RangeFilters
}

// AssignByRangeResult reports the outcome of a range assignment
type AssignByRangeResult struct {
	TotalSelected int            `json:"total_selected"`
	Assigned      int            `json:"assigned"`
	Skipped       int            `json:"skipped"`
	Details       []AssignDetail `json:"details"`
}

// AssignPlanItem routes a 1-based half-open [from, to) slice of the
// id-ordered lead selection to one manager.
type AssignPlanItem struct {
	ManagerUserID uint `json:"manager_user_id"`
	FromIndex     int  `json:"from_index"`
	ToIndex       int  `json:"to_index"`
}

// AssignPlanInput executes several range plans over an explicit lead
// selection. DryRun computes the would-be assignments without writing.
type AssignPlanInput struct {
	TenantID  uint
	LeadIDs   []uint
	Plans     []AssignPlanItem
	SetStatus *string
	DryRun    bool
}

// AssignPlanResult reports the outcome of a plan execution
type AssignPlanResult struct {
	Total    int            `json:"total"`
	Assigned int            `json:"assigned"`
	Skipped  int            `json:"skipped"`
	DryRun   bool           `json:"dry_run"`
	Details  []AssignDetail `json:"details"`
}

// BulkAssignResult reports the outcome of a bulk assignment
type BulkAssignResult struct {
	Total    int            `json:"total"`
	Assigned int            `json:"assigned"`
	Skipped  int            `json:"skipped"`
	Details  []AssignDetail `json:"details"`
}

// ManualAssignFlow covers operator-driven lead assignment
type ManualAssignFlow interface {
	UpdateLeadAssignment(ctx context.Context, actorID uint, leadID uint, targetUserID *uint, status *string, metadata *ClientMetadata) (*models.Lead, error)
	BulkAssignLeads(ctx context.Context, actorID uint, tenantID uint, leadIDs []uint, targetUserID uint, status *string, metadata *ClientMetadata) (*BulkAssignResult, error)
	AssignByRange(ctx context.Context, actorID uint, input *AssignByRangeInput, metadata *ClientMetadata) (*AssignByRangeResult, error)
	AssignPlanExecute(ctx context.Context, actorID uint, input *AssignPlanInput, metadata *ClientMetadata) (*AssignPlanResult, error)
}

// ManualAssignFlowImpl implements ManualAssignFlow
type ManualAssignFlowImpl struct {
	leadRepo       repository.LeadRepository
	userRepo       repository.UserRepository
	tenantRepo     repository.TenantRepository
	tenantUserRepo repository.TenantUserRepository
	leadEventRepo  repository.LeadEventRepository
	db             *gorm.DB
	now            func() time.Time
}

// NewManualAssignFlow creates a new manual assignment flow
func NewManualAssignFlow(
	leadRepo repository.LeadRepository,
	userRepo repository.UserRepository,
	tenantRepo repository.TenantRepository,
	tenantUserRepo repository.TenantUserRepository,
	leadEventRepo repository.LeadEventRepository,
	db *gorm.DB,
) ManualAssignFlow {
	return &ManualAssignFlowImpl{
		leadRepo:       leadRepo,
		userRepo:       userRepo,
		tenantRepo:     tenantRepo,
		tenantUserRepo: tenantUserRepo,
		leadEventRepo:  leadEventRepo,
		db:             db,
		now:            utils.UTCNow,
	}
}

// UpdateLeadAssignment assigns or unassigns a single lead. A nil
// targetUserID clears assigned_user_id and assigned_at (first_assigned_at
// stays) and records an unassigned event with the previous assignee.
func (f *ManualAssignFlowImpl) UpdateLeadAssignment(ctx context.Context, actorID uint, leadID uint, targetUserID *uint, status *string, metadata *ClientMetadata) (*models.Lead, error) {
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
	tenantID := *lead.TenantID

	if _, err := ensureTenantAccess(ctx, f.tenantRepo, f.tenantUserRepo, actor, tenantID); err != nil {
		return nil, err
	}

	var parsedStatus *models.LeadStatus
	if status != nil && *status != "" {
		s, ok := models.ParseLeadStatus(*status)
		if !ok {
			return nil, NewBusinessErrorf("INVALID_STATUS", "Unknown lead status %q", nil, *status)
		}
		parsedStatus = &s
	}

	if targetUserID != nil {
		if _, err := ensureRosterMember(ctx, f.tenantUserRepo, tenantID, *targetUserID); err != nil {
			return nil, err
		}
	}

	now := f.now()
	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		if targetUserID != nil {
			return f.writeAssignment(txCtx, lead, tenantID, *targetUserID, &actor.ID, parsedStatus, now, "manual")
		}
		return f.writeUnassignment(txCtx, lead, tenantID, &actor.ID, parsedStatus, now)
	})
	if err != nil {
		return nil, err
	}

	logAudit("lead_assignment_updated", actor.ID, metadata)
	return f.leadRepo.ByID(ctx, leadID)
}

// BulkAssignLeads assigns many leads to one manager. Leads that fail the
// per-lead checks are skipped with a detail line; the rest proceed.
func (f *ManualAssignFlowImpl) BulkAssignLeads(ctx context.Context, actorID uint, tenantID uint, leadIDs []uint, targetUserID uint, status *string, metadata *ClientMetadata) (*BulkAssignResult, error) {
	if len(leadIDs) == 0 {
		return nil, ErrEmptyLeadSelection
	}

	actor, err := loadActor(ctx, f.userRepo, actorID)
	if err != nil {
		return nil, err
	}

	if _, err := ensureTenantAccess(ctx, f.tenantRepo, f.tenantUserRepo, actor, tenantID); err != nil {
		return nil, err
	}
	if _, err := ensureRosterMember(ctx, f.tenantUserRepo, tenantID, targetUserID); err != nil {
		return nil, err
	}

	var parsedStatus *models.LeadStatus
	if status != nil && *status != "" {
		s, ok := models.ParseLeadStatus(*status)
		if !ok {
			return nil, NewBusinessErrorf("INVALID_STATUS", "Unknown lead status %q", nil, *status)
		}
		parsedStatus = &s
	}

	result := &BulkAssignResult{Total: len(leadIDs)}
	now := f.now()

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		for _, leadID := range leadIDs {
			lead, err := f.leadRepo.ByID(txCtx, leadID)
			if err != nil {
				return NewBusinessError("LEAD_LOOKUP_FAILED", "Failed to load lead", err)
			}
			if lead == nil {
				result.Skipped++
				result.Details = append(result.Details, AssignDetail{LeadID: leadID, Error: "lead not found"})
				continue
			}
			if lead.TenantID == nil || *lead.TenantID != tenantID {
				result.Skipped++
				result.Details = append(result.Details, AssignDetail{LeadID: leadID, Error: "lead not in tenant"})
				continue
			}
			if err := f.writeAssignment(txCtx, lead, tenantID, targetUserID, &actor.ID, parsedStatus, now, "bulk"); err != nil {
				return err
			}
			result.Assigned++
			result.Details = append(result.Details, AssignDetail{LeadID: leadID, AssignedToUserID: &targetUserID})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logAudit("leads_bulk_assigned", actor.ID, metadata)
	result.Details = capDetails(result.Details)
	return result, nil
}

// AssignByRange distributes a 1-based inclusive slice of the filtered
// candidate pool. The pool is the tenant's leads filtered by status and
// assignment state, ordered by created_at ascending; an inverted range
// selects nothing. The round_robin strategy here rotates over the slice
// index only and never touches any rule's rotation cursor.
func (f *ManualAssignFlowImpl) AssignByRange(ctx context.Context, actorID uint, input *AssignByRangeInput, metadata *ClientMetadata) (*AssignByRangeResult, error) {
	actor, err := loadActor(ctx, f.userRepo, actorID)
	if err != nil {
		return nil, err
	}

	if _, err := ensureTenantAccess(ctx, f.tenantRepo, f.tenantUserRepo, actor, input.TenantID); err != nil {
		return nil, err
	}

	filter := models.LeadFilter{TenantID: &input.TenantID}
	switch utils.NormalizeMatchValue(input.Filters.Status) {
	case "", "new":
		filter.Status = utils.ToPtr(models.LeadStatusNew)
	case "in_progress":
		filter.Status = utils.ToPtr(models.LeadStatusInProgress)
	case "any":
		// no status filter
	default:
		return nil, NewBusinessErrorf("INVALID_STATUS", "Unknown lead status %q", nil, input.Filters.Status)
	}
	if input.Filters.OnlyUnassigned == nil || *input.Filters.OnlyUnassigned {
		filter.Unassigned = utils.ToPtr(true)
	}

	candidates, err := f.leadRepo.ByFilter(ctx, filter, "created_at ASC", rangeCandidateLimit, 0)
	if err != nil {
		return nil, NewBusinessError("LEAD_LIST_FAILED", "Failed to list candidate leads", err)
	}

	result := &AssignByRangeResult{TotalSelected: len(candidates)}

	fromIdx := input.FromIndex - 1
	if fromIdx < 0 {
		fromIdx = 0
	}
	toIdx := input.ToIndex
	if toIdx > len(candidates) {
		toIdx = len(candidates)
	}
	var slice []*models.Lead
	if fromIdx < toIdx {
		slice = candidates[fromIdx:toIdx]
	}

	managers, err := f.tenantUserRepo.ManagerIDs(ctx, input.TenantID)
	if err != nil {
		return nil, NewBusinessError("ROSTER_LOOKUP_FAILED", "Failed to load manager roster", err)
	}
	if len(managers) == 0 {
		result.Skipped = len(slice)
		result.Details = []AssignDetail{{Error: "no managers in tenant"}}
		return result, nil
	}

	rosterSet := make(map[uint]bool, len(managers))
	for _, id := range managers {
		rosterSet[id] = true
	}

	now := f.now()
	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		for i, lead := range slice {
			uid := f.pickRangeTarget(input, managers, i)
			if uid == nil || !rosterSet[*uid] {
				result.Details = append(result.Details, AssignDetail{LeadID: lead.ID, Error: "target user not in tenant roster"})
				continue
			}
			if err := f.writeAssignment(txCtx, lead, input.TenantID, *uid, &actor.ID, nil, now, "by_range"); err != nil {
				return err
			}
			result.Assigned++
			result.Details = append(result.Details, AssignDetail{LeadID: lead.ID, AssignedToUserID: uid})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logAudit("leads_assigned_by_range", actor.ID, metadata)
	result.Skipped = len(slice) - result.Assigned
	result.Details = capDetails(result.Details)
	return result, nil
}

// pickRangeTarget resolves the manager for slice position i per the
// requested strategy. custom_map walks cumulative buckets and falls back to
// the last bucket when the counts run out.
func (f *ManualAssignFlowImpl) pickRangeTarget(input *AssignByRangeInput, managers []uint, i int) *uint {
	switch input.Strategy {
	case RangeStrategyFixedUser:
		if input.FixedUserID != nil {
			return input.FixedUserID
		}
	case RangeStrategyCustomMap:
		if len(input.CustomMap) > 0 {
			cum := 0
			for _, bucket := range input.CustomMap {
				if i < cum+bucket.Count {
					uid := bucket.UserID
					return &uid
				}
				cum += bucket.Count
			}
			uid := input.CustomMap[len(input.CustomMap)-1].UserID
			return &uid
		}
	}
	uid := managers[i%len(managers)]
	return &uid
}

// AssignPlanExecute routes slices of an explicit lead selection to managers.
// The selection is sorted by lead id ascending and plans address it with
// 1-based half-open [from, to) ranges. Owners, ROPs, and admins operate on
// any tenant lead; managers only on leads already assigned to them.
func (f *ManualAssignFlowImpl) AssignPlanExecute(ctx context.Context, actorID uint, input *AssignPlanInput, metadata *ClientMetadata) (*AssignPlanResult, error) {
	if len(input.LeadIDs) == 0 {
		return nil, ErrEmptyLeadSelection
	}

	actor, err := loadActor(ctx, f.userRepo, actorID)
	if err != nil {
		return nil, err
	}

	managerOnly := false
	if _, err := ensureTenantAccess(ctx, f.tenantRepo, f.tenantUserRepo, actor, input.TenantID); err != nil {
		if !IsTenantAccessDenied(err) {
			return nil, err
		}
		role, roleErr := f.tenantUserRepo.RoleOf(ctx, input.TenantID, actor.ID)
		if roleErr != nil {
			return nil, NewBusinessError("TENANT_ROLE_LOOKUP_FAILED", "Failed to resolve tenant role", roleErr)
		}
		if role != models.TenantRoleManager && role != models.TenantRoleMember {
			return nil, ErrTenantAccessDenied
		}
		managerOnly = true
	}

	var parsedStatus *models.LeadStatus
	if input.SetStatus != nil && *input.SetStatus != "" {
		s, ok := models.ParseLeadStatus(*input.SetStatus)
		if !ok {
			return nil, NewBusinessErrorf("INVALID_STATUS", "Unknown lead status %q", nil, *input.SetStatus)
		}
		parsedStatus = &s
	}

	// Build the id-ordered pool from the explicit selection, dropping leads
	// outside the tenant or outside the actor's reach.
	pool := make([]*models.Lead, 0, len(input.LeadIDs))
	for _, leadID := range input.LeadIDs {
		lead, err := f.leadRepo.ByID(ctx, leadID)
		if err != nil {
			return nil, NewBusinessError("LEAD_LOOKUP_FAILED", "Failed to load lead", err)
		}
		if lead == nil || lead.TenantID == nil || *lead.TenantID != input.TenantID {
			continue
		}
		if managerOnly && (lead.AssignedUserID == nil || *lead.AssignedUserID != actor.ID) {
			continue
		}
		pool = append(pool, lead)
	}
	sortLeadsByID(pool)

	rosterSet := make(map[uint]bool)
	managers, err := f.tenantUserRepo.ManagerIDs(ctx, input.TenantID)
	if err != nil {
		return nil, NewBusinessError("ROSTER_LOOKUP_FAILED", "Failed to load manager roster", err)
	}
	for _, id := range managers {
		rosterSet[id] = true
	}

	result := &AssignPlanResult{Total: len(pool), DryRun: input.DryRun}
	now := f.now()

	apply := func(txCtx context.Context) error {
		for _, plan := range input.Plans {
			if plan.FromIndex < 1 || plan.ToIndex <= plan.FromIndex ||
				plan.FromIndex > len(pool) || plan.ToIndex-1 > len(pool) {
				result.Details = append(result.Details, AssignDetail{Error: "invalid plan range"})
				continue
			}
			if !rosterSet[plan.ManagerUserID] {
				result.Details = append(result.Details, AssignDetail{Error: "plan target not in tenant roster"})
				continue
			}
			for _, lead := range pool[plan.FromIndex-1 : plan.ToIndex-1] {
				uid := plan.ManagerUserID
				if !input.DryRun {
					if err := f.writeAssignment(txCtx, lead, input.TenantID, uid, &actor.ID, parsedStatus, now, "plan"); err != nil {
						return err
					}
				}
				result.Assigned++
				result.Details = append(result.Details, AssignDetail{LeadID: lead.ID, AssignedToUserID: &uid})
			}
		}
		return nil
	}

	if input.DryRun {
		if err := apply(ctx); err != nil {
			return nil, err
		}
	} else {
		if err := repository.WithTransaction(ctx, f.db, apply); err != nil {
			return nil, err
		}
		logAudit("leads_assigned_by_plan", actor.ID, metadata)
	}

	result.Skipped = result.Total - result.Assigned
	if result.Skipped < 0 {
		result.Skipped = 0
	}
	result.Details = capDetails(result.Details)
	return result, nil
}

// writeAssignment persists one assignment plus its audit event
func (f *ManualAssignFlowImpl) writeAssignment(ctx context.Context, lead *models.Lead, tenantID, userID uint, actorID *uint, status *models.LeadStatus, now time.Time, source string) error {
	upd := repository.LeadAssignmentUpdate{
		AssignedUserID: &userID,
		AssignedAt:     &now,
		Status:         status,
	}
	if lead.FirstAssignedAt == nil {
		upd.FirstAssignedAt = &now
	}
	if err := f.leadRepo.UpdateAssignment(ctx, lead.ID, upd); err != nil {
		return NewBusinessError("ASSIGNMENT_WRITE_FAILED", "Failed to write lead assignment", err)
	}

	payload, _ := json.Marshal(map[string]any{
		"assigned_to_user_id": userID,
		"source":              source,
	})
	event := &models.LeadEvent{
		TenantID:    tenantID,
		LeadID:      lead.ID,
		Type:        models.LeadEventAssigned,
		ActorUserID: actorID,
		Payload:     payload,
		CreatedAt:   now,
	}
	if err := f.leadEventRepo.Save(ctx, event); err != nil {
		return NewBusinessError("EVENT_WRITE_FAILED", "Failed to write lead event", err)
	}
	return nil
}

// writeUnassignment clears the current assignee and records the event
func (f *ManualAssignFlowImpl) writeUnassignment(ctx context.Context, lead *models.Lead, tenantID uint, actorID *uint, status *models.LeadStatus, now time.Time) error {
	upd := repository.LeadAssignmentUpdate{Status: status}
	if err := f.leadRepo.UpdateAssignment(ctx, lead.ID, upd); err != nil {
		return NewBusinessError("ASSIGNMENT_WRITE_FAILED", "Failed to clear lead assignment", err)
	}

	payloadMap := map[string]any{}
	if lead.AssignedUserID != nil {
		payloadMap["previous_user_id"] = *lead.AssignedUserID
	}
	payload, _ := json.Marshal(payloadMap)
	event := &models.LeadEvent{
		TenantID:    tenantID,
		LeadID:      lead.ID,
		Type:        models.LeadEventUnassigned,
		ActorUserID: actorID,
		Payload:     payload,
		CreatedAt:   now,
	}
	if err := f.leadEventRepo.Save(ctx, event); err != nil {
		return NewBusinessError("EVENT_WRITE_FAILED", "Failed to write lead event", err)
	}
	return nil
}

// capDetails truncates detail lines to the response limit
func capDetails(details []AssignDetail) []AssignDetail {
	if len(details) > utils.AssignDetailsLimit {
		return details[:utils.AssignDetailsLimit]
	}
	return details
}

// sortLeadsByID orders leads by primary key ascending
func sortLeadsByID(leads []*models.Lead) {
	sort.Slice(leads, func(i, j int) bool { return leads[i].ID < leads[j].ID })
}
