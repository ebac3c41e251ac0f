package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/adilet-dev/leadflow/app/dto"
	businessflow "github.com/adilet-dev/leadflow/business_flow"
	"github.com/adilet-dev/leadflow/models"
	"github.com/adilet-dev/leadflow/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// AutoAssignRuleHandlerInterface defines the contract for rule handlers
type AutoAssignRuleHandlerInterface interface {
	List(c fiber.Ctx) error
	Create(c fiber.Ctx) error
	Update(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
}

// AutoAssignRuleHandler handles auto-assign rule HTTP requests
type AutoAssignRuleHandler struct {
	flow      businessflow.RuleFlow
	validator *validator.Validate
}

// NewAutoAssignRuleHandler creates a new rule handler
func NewAutoAssignRuleHandler(flow businessflow.RuleFlow) *AutoAssignRuleHandler {
	return &AutoAssignRuleHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

func (h *AutoAssignRuleHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *AutoAssignRuleHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func (h *AutoAssignRuleHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}

func (h *AutoAssignRuleHandler) mapRuleError(c fiber.Ctx, err error, fallbackMessage, fallbackCode string) error {
	switch {
	case businessflow.IsUserNotFound(err), businessflow.IsAccountInactive(err):
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User not found or inactive", "UNAUTHORIZED", nil)
	case businessflow.IsTenantNotFound(err):
		return h.ErrorResponse(c, fiber.StatusNotFound, "Tenant not found", "TENANT_NOT_FOUND", nil)
	case businessflow.IsTenantAccessDenied(err):
		return h.ErrorResponse(c, fiber.StatusForbidden, "Owner or ROP access required for this tenant", "TENANT_ACCESS_DENIED", nil)
	case businessflow.IsRuleNotFound(err):
		return h.ErrorResponse(c, fiber.StatusNotFound, "Rule not found", "RULE_NOT_FOUND", nil)
	case businessflow.IsInvalidStrategy(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid assignment strategy", "INVALID_STRATEGY", nil)
	}
	if be, ok := err.(*businessflow.BusinessError); ok {
		switch be.Code {
		case "RULE_LIST_FAILED", "RULE_CREATE_FAILED", "RULE_UPDATE_FAILED", "RULE_DELETE_FAILED":
			return h.ErrorResponse(c, fiber.StatusInternalServerError, fallbackMessage, be.Code, nil)
		}
	}
	return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), fallbackCode, nil)
}

func toRuleDTO(rule *models.AutoAssignRule) dto.AutoAssignRuleDTO {
	return dto.AutoAssignRuleDTO{
		ID:              rule.ID,
		TenantID:        rule.TenantID,
		Name:            rule.Name,
		IsActive:        rule.IsActive,
		Priority:        rule.Priority,
		MatchCity:       rule.MatchCity,
		MatchLanguage:   rule.MatchLanguage,
		MatchObjectType: rule.MatchObjectType,
		MatchContains:   rule.MatchContains,
		TimeFrom:        rule.TimeFrom,
		TimeTo:          rule.TimeTo,
		DaysOfWeek:      rule.DaysOfWeek,
		Strategy:        rule.Strategy.String(),
		FixedUserID:     rule.FixedUserID,
		RRState:         rule.RRState,
		CreatedAt:       rule.CreatedAt,
		UpdatedAt:       rule.UpdatedAt,
	}
}

// List Auto-Assign Rules
// @Description List a tenant's auto-assign rules in evaluation order
// @Tags AutoAssignRules
// @Produce json
// @Param tenant_id path int true "Tenant ID"
// @Param active_only query bool false "Only active rules"
// @Success 200 {object} dto.APIResponse{data=[]dto.AutoAssignRuleDTO} "Rules retrieved"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "Tenant not found"
// @Security BearerAuth
// @Router /api/v1/tenants/{tenant_id}/auto-assign-rules [get]
func (h *AutoAssignRuleHandler) List(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	tenantID, err := strconv.ParseUint(c.Params("tenant_id"), 10, 32)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid tenant ID", "INVALID_TENANT_ID", nil)
	}
	activeOnly := c.Query("active_only") == "true"

	rules, err := h.flow.ListRules(h.createRequestContext(c, "/api/v1/tenants/:tenant_id/auto-assign-rules"), userID, uint(tenantID), activeOnly)
	if err != nil {
		return h.mapRuleError(c, err, "Failed to list rules", "RULE_LIST_FAILED")
	}

	out := make([]dto.AutoAssignRuleDTO, 0, len(rules))
	for _, rule := range rules {
		out = append(out, toRuleDTO(rule))
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Rules retrieved successfully", out)
}

// Create Auto-Assign Rule
// @Description Create a new auto-assign rule for a tenant
// @Tags AutoAssignRules
// @Accept json
// @Produce json
// @Param tenant_id path int true "Tenant ID"
// @Param request body dto.CreateAutoAssignRuleRequest true "Rule definition"
// @Success 201 {object} dto.APIResponse{data=dto.AutoAssignRuleDTO} "Rule created"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Security BearerAuth
// @Router /api/v1/tenants/{tenant_id}/auto-assign-rules [post]
func (h *AutoAssignRuleHandler) Create(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	tenantID, err := strconv.ParseUint(c.Params("tenant_id"), 10, 32)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid tenant ID", "INVALID_TENANT_ID", nil)
	}

	var req dto.CreateAutoAssignRuleRequest
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

	input := &businessflow.RuleInput{
		Name:            req.Name,
		IsActive:        req.IsActive,
		Priority:        req.Priority,
		MatchCity:       req.MatchCity,
		MatchLanguage:   req.MatchLanguage,
		MatchObjectType: req.MatchObjectType,
		MatchContains:   req.MatchContains,
		TimeFrom:        req.TimeFrom,
		TimeTo:          req.TimeTo,
		DaysOfWeek:      req.DaysOfWeek,
		Strategy:        req.Strategy,
		FixedUserID:     req.FixedUserID,
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	rule, err := h.flow.CreateRule(h.createRequestContext(c, "/api/v1/tenants/:tenant_id/auto-assign-rules"), userID, uint(tenantID), input, metadata)
	if err != nil {
		return h.mapRuleError(c, err, "Failed to create rule", "RULE_CREATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Rule created successfully", toRuleDTO(rule))
}

// Update Auto-Assign Rule
// @Description Partially update an auto-assign rule
// @Tags AutoAssignRules
// @Accept json
// @Produce json
// @Param rule_id path int true "Rule ID"
// @Param request body dto.UpdateAutoAssignRuleRequest true "Fields to update"
// @Success 200 {object} dto.APIResponse{data=dto.AutoAssignRuleDTO} "Rule updated"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "Rule not found"
// @Security BearerAuth
// @Router /api/v1/auto-assign-rules/{rule_id} [patch]
func (h *AutoAssignRuleHandler) Update(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	ruleID, err := strconv.ParseUint(c.Params("rule_id"), 10, 32)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid rule ID", "INVALID_RULE_ID", nil)
	}

	var req dto.UpdateAutoAssignRuleRequest
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

	input := &businessflow.RuleUpdateInput{
		Name:            req.Name,
		IsActive:        req.IsActive,
		Priority:        req.Priority,
		MatchCity:       req.MatchCity,
		MatchLanguage:   req.MatchLanguage,
		MatchObjectType: req.MatchObjectType,
		MatchContains:   req.MatchContains,
		TimeFrom:        req.TimeFrom,
		TimeTo:          req.TimeTo,
		DaysOfWeek:      req.DaysOfWeek,
		Strategy:        req.Strategy,
		FixedUserID:     req.FixedUserID,
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	rule, err := h.flow.UpdateRule(h.createRequestContext(c, "/api/v1/auto-assign-rules/:rule_id"), userID, uint(ruleID), input, metadata)
	if err != nil {
		return h.mapRuleError(c, err, "Failed to update rule", "RULE_UPDATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Rule updated successfully", toRuleDTO(rule))
}

// Delete Auto-Assign Rule
// @Description Delete an auto-assign rule
// @Tags AutoAssignRules
// @Produce json
// @Param rule_id path int true "Rule ID"
// @Success 200 {object} dto.APIResponse "Rule deleted"
// @Failure 404 {object} dto.APIResponse "Rule not found"
// @Security BearerAuth
// @Router /api/v1/auto-assign-rules/{rule_id} [delete]
func (h *AutoAssignRuleHandler) Delete(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	ruleID, err := strconv.ParseUint(c.Params("rule_id"), 10, 32)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid rule ID", "INVALID_RULE_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	if err := h.flow.DeleteRule(h.createRequestContext(c, "/api/v1/auto-assign-rules/:rule_id"), userID, uint(ruleID), metadata); err != nil {
		return h.mapRuleError(c, err, "Failed to delete rule", "RULE_DELETE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Rule deleted successfully", nil)
}
