package handlers

import (
	"context"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/adilet-dev/leadflow/app/dto"
	businessflow "github.com/adilet-dev/leadflow/business_flow"
	"github.com/adilet-dev/leadflow/utils"
	"github.com/gofiber/fiber/v3"
)

// LeadImportHandlerInterface defines the contract for import handlers
type LeadImportHandlerInterface interface {
	ImportLeads(c fiber.Ctx) error
}

// LeadImportHandler handles lead import HTTP requests
type LeadImportHandler struct {
	flow businessflow.LeadImportFlow
}

// NewLeadImportHandler creates a new lead import handler
func NewLeadImportHandler(flow businessflow.LeadImportFlow) *LeadImportHandler {
	return &LeadImportHandler{flow: flow}
}

func (h *LeadImportHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *LeadImportHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func (h *LeadImportHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}

// Import Leads
// @Description Import leads from an uploaded XLSX or CSV file. mode=dry_run previews the file without writing.
// @Tags Import
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "XLSX or CSV file"
// @Param tenant_id formData int true "Tenant ID"
// @Param source formData string false "Lead source label" default(import)
// @Param mode formData string false "dry_run or commit" default(commit)
// @Success 200 {object} dto.APIResponse{data=dto.ImportLeadsResponse} "Import processed"
// @Failure 400 {object} dto.APIResponse "Invalid file or form data"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Security BearerAuth
// @Router /api/v1/admin/import/leads [post]
func (h *LeadImportHandler) ImportLeads(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	tenantID, err := strconv.ParseUint(c.FormValue("tenant_id"), 10, 32)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid tenant ID", "INVALID_TENANT_ID", nil)
	}
	source := c.FormValue("source")
	dryRun := c.FormValue("mode") == "dry_run"

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "File is required", "MISSING_FILE", nil)
	}
	file, err := fileHeader.Open()
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Failed to open uploaded file", "INVALID_FILE", nil)
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Failed to read uploaded file", "INVALID_FILE", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.flow.ImportLeads(h.createRequestContext(c, "/api/v1/admin/import/leads"), userID, uint(tenantID), fileHeader.Filename, content, source, dryRun, metadata)
	if err != nil {
		switch {
		case businessflow.IsUserNotFound(err), businessflow.IsAccountInactive(err):
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "User not found or inactive", "UNAUTHORIZED", nil)
		case businessflow.IsTenantNotFound(err):
			return h.ErrorResponse(c, fiber.StatusNotFound, "Tenant not found", "TENANT_NOT_FOUND", nil)
		case businessflow.IsTenantAccessDenied(err):
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access to this tenant is denied", "TENANT_ACCESS_DENIED", nil)
		case errors.Is(err, businessflow.ErrImportFileEmpty):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Uploaded file is empty", "IMPORT_FILE_EMPTY", nil)
		case errors.Is(err, businessflow.ErrImportFileUnsupported):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Only XLSX and CSV files are supported", "IMPORT_FILE_UNSUPPORTED", nil)
		case errors.Is(err, businessflow.ErrImportColumnMissing):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "The file must contain a phone column", "IMPORT_COLUMN_MISSING", nil)
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to import leads", "IMPORT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Import processed", result)
}
