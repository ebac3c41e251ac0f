package handlers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/adilet-dev/leadflow/app/dto"
	businessflow "github.com/adilet-dev/leadflow/business_flow"
	"github.com/adilet-dev/leadflow/models"
	"github.com/adilet-dev/leadflow/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// LeadAssignmentHandlerInterface defines the contract for assignment handlers
type LeadAssignmentHandlerInterface interface {
	UpdateAssignment(c fiber.Ctx) error
	BulkAssign(c fiber.Ctx) error
	AssignByRange(c fiber.Ctx) error
	AssignPlan(c fiber.Ctx) error
	CreateTestLead(c fiber.Ctx) error
	ListEvents(c fiber.Ctx) error
}

// LeadAssignmentHandler handles manual lead assignment HTTP requests
type LeadAssignmentHandler struct {
	manualFlow businessflow.ManualAssignFlow
	leadFlow   businessflow.LeadFlow
	validator  *validator.Validate
}

// NewLeadAssignmentHandler creates a new lead assignment handler
func NewLeadAssignmentHandler(manualFlow businessflow.ManualAssignFlow, leadFlow businessflow.LeadFlow) *LeadAssignmentHandler {
	return &LeadAssignmentHandler{
		manualFlow: manualFlow,
		leadFlow:   leadFlow,
		validator:  validator.New(),
	}
}

func (h *LeadAssignmentHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *LeadAssignmentHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func (h *LeadAssignmentHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}

func (h *LeadAssignmentHandler) mapAssignError(c fiber.Ctx, err error, fallbackMessage, fallbackCode string) error {
	switch {
	case businessflow.IsUserNotFound(err), businessflow.IsAccountInactive(err):
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User not found or inactive", "UNAUTHORIZED", nil)
	case businessflow.IsLeadNotFound(err):
		return h.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", "LEAD_NOT_FOUND", nil)
	case businessflow.IsTenantNotFound(err):
		return h.ErrorResponse(c, fiber.StatusNotFound, "Tenant not found", "TENANT_NOT_FOUND", nil)
	case businessflow.IsTenantAccessDenied(err):
		return h.ErrorResponse(c, fiber.StatusForbidden, "Access to this tenant is denied", "TENANT_ACCESS_DENIED", nil)
	case businessflow.IsAssigneeNotManager(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Target user is not on the tenant's manager roster", "ASSIGNEE_NOT_MANAGER", nil)
	case errors.Is(err, businessflow.ErrEmptyLeadSelection):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "No leads selected", "EMPTY_LEAD_SELECTION", nil)
	}
	if be, ok := err.(*businessflow.BusinessError); ok {
		if be.Code == "INVALID_STATUS" {
			return h.ErrorResponse(c, fiber.StatusBadRequest, be.Message, be.Code, nil)
		}
	}
	return h.ErrorResponse(c, fiber.StatusInternalServerError, fallbackMessage, fallbackCode, nil)
}

func toLeadDTO(lead *models.Lead) dto.LeadDTO {
	return dto.LeadDTO{
		ID:              lead.ID,
		UUID:            lead.UUID.String(),
		TenantID:        lead.TenantID,
		Status:          lead.Status.String(),
		AssignedUserID:  lead.AssignedUserID,
		AssignedAt:      lead.AssignedAt,
		FirstAssignedAt: lead.FirstAssignedAt,
		Source:          lead.Source,
		Phone:           lead.Phone,
		City:            lead.City,
		Language:        lead.Language,
		ObjectType:      lead.ObjectType,
		Summary:         lead.Summary,
		CreatedAt:       lead.CreatedAt,
	}
}

func toDetailDTOs(details []businessflow.AssignDetail) []dto.AssignDetailDTO {
	out := make([]dto.AssignDetailDTO, 0, len(details))
	for _, d := range details {
		out = append(out, dto.AssignDetailDTO{
			LeadID:           d.LeadID,
			AssignedToUserID: d.AssignedToUserID,
			Error:            d.Error,
		})
	}
	return out
}

// Update Lead Assignment
// @Description Assign a lead to a manager or clear its current assignee
// @Tags Assignment
// @Accept json
// @Produce json
// @Param lead_id path int true "Lead ID"
// @Param request body dto.UpdateLeadAssignmentRequest true "Assignment change"
// @Success 200 {object} dto.APIResponse{data=dto.LeadDTO} "Lead updated"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "Lead not found"
// @Security BearerAuth
// @Router /api/v1/leads/{lead_id}/assign [patch]
func (h *LeadAssignmentHandler) UpdateAssignment(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	leadID, err := strconv.ParseUint(c.Params("lead_id"), 10, 32)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead ID", "INVALID_LEAD_ID", nil)
	}

	var req dto.UpdateLeadAssignmentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		var details []string
		for _, fieldErr := range err.(validator.ValidationErrors) {
			details = append(details, getValidationErrorMessage(fieldErr))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_FAILED", details)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	lead, err := h.manualFlow.UpdateLeadAssignment(h.createRequestContext(c, "/api/v1/leads/:lead_id/assign"), userID, uint(leadID), req.AssignedToUserID, req.Status, metadata)
	if err != nil {
		return h.mapAssignError(c, err, "Failed to update lead assignment", "ASSIGNMENT_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Lead assignment updated successfully", toLeadDTO(lead))
}

// Bulk Assign Leads
// @Description Assign many leads to one manager in a single transaction
// @Tags Assignment
// @Accept json
// @Produce json
// @Param request body dto.BulkAssignRequest true "Bulk assignment"
// @Success 200 {object} dto.APIResponse{data=dto.BulkAssignResponse} "Bulk assignment done"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Security BearerAuth
// @Router /api/v1/leads/assign/bulk [post]
func (h *LeadAssignmentHandler) BulkAssign(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	var req dto.BulkAssignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		var details []string
		for _, fieldErr := range err.(validator.ValidationErrors) {
			details = append(details, getValidationErrorMessage(fieldErr))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_FAILED", details)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.manualFlow.BulkAssignLeads(h.createRequestContext(c, "/api/v1/leads/assign/bulk"), userID, req.TenantID, req.LeadIDs, req.AssignedToUserID, req.SetStatus, metadata)
	if err != nil {
		return h.mapAssignError(c, err, "Failed to bulk assign leads", "BULK_ASSIGN_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Bulk assignment completed", dto.BulkAssignResponse{
		Total:    result.Total,
		Assigned: result.Assigned,
		Skipped:  result.Skipped,
		Details:  toDetailDTOs(result.Details),
	})
}

// Assign Leads By Range
// @Description Distribute a 1-based inclusive index range of the filtered candidate pool to managers
// @Tags Assignment
// @Accept json
// @Produce json
// @Param request body dto.AssignByRangeRequest true "Range assignment"
// @Success 200 {object} dto.APIResponse{data=dto.AssignByRangeResponse} "Range assignment done"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Security BearerAuth
// @Router /api/v1/admin/leads/assign/by-range [post]
func (h *LeadAssignmentHandler) AssignByRange(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	var req dto.AssignByRangeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		var details []string
		for _, fieldErr := range err.(validator.ValidationErrors) {
			details = append(details, getValidationErrorMessage(fieldErr))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_FAILED", details)
	}

	input := &businessflow.AssignByRangeInput{
		TenantID:    req.TenantID,
		FromIndex:   req.FromIndex,
		ToIndex:     req.ToIndex,
		Strategy:    req.Strategy,
		FixedUserID: req.FixedUserID,
	}
	for _, entry := range req.CustomMap {
		input.CustomMap = append(input.CustomMap, businessflow.CustomMapBucket{UserID: entry.UserID, Count: entry.Count})
	}
	if req.Filters != nil {
		input.Filters = businessflow.RangeFilters{
			Status:         req.Filters.Status,
			OnlyUnassigned: req.Filters.OnlyUnassigned,
		}
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.manualFlow.AssignByRange(h.createRequestContext(c, "/api/v1/admin/leads/assign/by-range"), userID, input, metadata)
	if err != nil {
		return h.mapAssignError(c, err, "Failed to assign leads by range", "RANGE_ASSIGN_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Range assignment completed", dto.AssignByRangeResponse{
		TotalSelected: result.TotalSelected,
		Assigned:      result.Assigned,
		Skipped:       result.Skipped,
		Details:       toDetailDTOs(result.Details),
	})
}

// Execute Assignment Plan
// @Description Route half-open [from, to) slices of an explicit lead selection to managers, optionally as a dry run
// @Tags Assignment
// @Accept json
// @Produce json
// @Param request body dto.AssignPlanRequest true "Assignment plan"
// @Success 200 {object} dto.APIResponse{data=dto.AssignPlanResponse} "Plan executed"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Security BearerAuth
// @Router /api/v1/leads/assign/plan [post]
func (h *LeadAssignmentHandler) AssignPlan(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	var req dto.AssignPlanRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		var details []string
		for _, fieldErr := range err.(validator.ValidationErrors) {
			details = append(details, getValidationErrorMessage(fieldErr))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_FAILED", details)
	}

	input := &businessflow.AssignPlanInput{
		TenantID:  req.TenantID,
		LeadIDs:   req.LeadIDs,
		SetStatus: req.SetStatus,
		DryRun:    req.DryRun,
	}
	for _, plan := range req.Plans {
		input.Plans = append(input.Plans, businessflow.AssignPlanItem{
			ManagerUserID: plan.ManagerUserID,
			FromIndex:     plan.FromIndex,
			ToIndex:       plan.ToIndex,
		})
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.manualFlow.AssignPlanExecute(h.createRequestContext(c, "/api/v1/leads/assign/plan"), userID, input, metadata)
	if err != nil {
		return h.mapAssignError(c, err, "Failed to execute assignment plan", "PLAN_ASSIGN_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Assignment plan executed", dto.AssignPlanResponse{
		Total:    result.Total,
		Assigned: result.Assigned,
		Skipped:  result.Skipped,
		DryRun:   result.DryRun,
		Details:  toDetailDTOs(result.Details),
	})
}

// Create Test Lead
// @Description Create a lead in a tenant and immediately run it through the auto-assign engine
// @Tags Leads
// @Accept json
// @Produce json
// @Param tenant_id path int true "Tenant ID"
// @Param request body dto.CreateTestLeadRequest true "Lead fields"
// @Success 201 {object} dto.APIResponse{data=dto.CreateTestLeadResponse} "Lead created"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Security BearerAuth
// @Router /api/v1/tenants/{tenant_id}/leads/test [post]
func (h *LeadAssignmentHandler) CreateTestLead(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	tenantID, err := strconv.ParseUint(c.Params("tenant_id"), 10, 32)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid tenant ID", "INVALID_TENANT_ID", nil)
	}

	var req dto.CreateTestLeadRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	input := &businessflow.TestLeadInput{
		Phone:      req.Phone,
		City:       req.City,
		Language:   req.Language,
		ObjectType: req.ObjectType,
		Summary:    req.Summary,
		Source:     req.Source,
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	lead, outcome, err := h.leadFlow.CreateTestLead(h.createRequestContext(c, "/api/v1/tenants/:tenant_id/leads/test"), userID, uint(tenantID), input, metadata)
	if err != nil {
		return h.mapAssignError(c, err, "Failed to create test lead", "TEST_LEAD_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Test lead created", dto.CreateTestLeadResponse{
		Lead: toLeadDTO(lead),
		AutoAssign: dto.AutoAssignOutcomeDTO{
			Assigned:       outcome.Assigned,
			Outcome:        outcome.Outcome,
			RuleID:         outcome.RuleID,
			Strategy:       outcome.Strategy.String(),
			AssignedUserID: outcome.AssignedUserID,
		},
	})
}

// List Lead Events
// @Description Read a lead's audit trail, newest first
// @Tags Leads
// @Produce json
// @Param lead_id path int true "Lead ID"
// @Success 200 {object} dto.APIResponse{data=[]dto.LeadEventDTO} "Events retrieved"
// @Failure 404 {object} dto.APIResponse "Lead not found"
// @Security BearerAuth
// @Router /api/v1/leads/{lead_id}/events [get]
func (h *LeadAssignmentHandler) ListEvents(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	leadID, err := strconv.ParseUint(c.Params("lead_id"), 10, 32)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead ID", "INVALID_LEAD_ID", nil)
	}

	events, err := h.leadFlow.ListLeadEvents(h.createRequestContext(c, "/api/v1/leads/:lead_id/events"), userID, uint(leadID))
	if err != nil {
		return h.mapAssignError(c, err, "Failed to list lead events", "EVENT_LIST_FAILED")
	}

	out := make([]dto.LeadEventDTO, 0, len(events))
	for _, event := range events {
		out = append(out, dto.LeadEventDTO{
			ID:          event.ID,
			TenantID:    event.TenantID,
			LeadID:      event.LeadID,
			Type:        event.Type,
			ActorUserID: event.ActorUserID,
			Payload:     event.Payload,
			CreatedAt:   event.CreatedAt,
		})
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Lead events retrieved successfully", out)
}
