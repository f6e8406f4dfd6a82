package handlers

import (
	"fmt"

	"github.com/amirphl/nightpulse/app/dto"
	"github.com/amirphl/nightpulse/app/middleware"
	businessflow "github.com/amirphl/nightpulse/business_flow"
	"github.com/gofiber/fiber/v3"
)

// AdminHandlerInterface defines the contract for moderation handlers
type AdminHandlerInterface interface {
	ListHouseparties(c fiber.Ctx) error
	ModerateHouseparty(c fiber.Ctx) error
	ListReports(c fiber.Ctx) error
	ExportReports(c fiber.Ctx) error
}

// AdminHandler serves the moderation queue and report aggregates
type AdminHandler struct {
	baseHandler
	houseparties businessflow.HousepartyFlow
	reports      businessflow.ReportFlow
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(houseparties businessflow.HousepartyFlow, reports businessflow.ReportFlow) *AdminHandler {
	return &AdminHandler{baseHandler: newBaseHandler(), houseparties: houseparties, reports: reports}
}

// ListHouseparties returns submissions by status
// @Summary Moderation queue
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status filter, defaults to pending" Enums(pending, active, rejected, hidden)
// @Param night query string false "Night key (YYYYMMDD)"
// @Param limit query int false "Maximum rows"
// @Success 200 {object} dto.APIResponse{data=dto.ListHousepartiesResponse} "Houseparties"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Forbidden"
// @Router /api/v1/admin/houseparties [get]
func (h *AdminHandler) ListHouseparties(c fiber.Ctx) error {
	var req dto.AdminListHousepartiesRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/houseparties")
	defer cancel()

	result, err := h.houseparties.AdminList(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to list houseparties")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Houseparties retrieved", result)
}

// ModerateHouseparty approves, rejects or hides a submission
// @Summary Moderate houseparty
// @Description approve and reject apply to pending submissions, hide applies to active ones.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Houseparty ID"
// @Param request body dto.ModerateHousepartyRequest true "Action"
// @Success 200 {object} dto.APIResponse{data=dto.ModerateHousepartyResponse} "Moderated"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "Houseparty not found"
// @Failure 409 {object} dto.APIResponse "Action does not apply to the current status"
// @Router /api/v1/admin/houseparties/{id}/moderate [post]
func (h *AdminHandler) ModerateHouseparty(c fiber.Ctx) error {
	var req dto.ModerateHousepartyRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}
	uid, ok := h.requireUID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}
	req.ID = c.Params("id")
	req.AdminUID = uid
	req.AdminEmail = middleware.GetEmailFromContext(c)

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/houseparties/moderate")
	defer cancel()

	result, err := h.houseparties.Moderate(ctx, &req, h.clientMetadata(ctx, c))
	if err != nil {
		return h.flowError(c, err, "Failed to moderate houseparty")
	}
	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// ListReports aggregates reports per target
// @Summary Report aggregates
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param windowHours query int false "Look-back window in hours, defaults to 48"
// @Param kind query string false "Target kind" Enums(houseparty, venue)
// @Param night query string false "Night key (YYYYMMDD)"
// @Success 200 {object} dto.APIResponse{data=dto.AdminReportsResponse} "Aggregates"
// @Failure 403 {object} dto.APIResponse "Forbidden"
// @Router /api/v1/admin/reports [get]
func (h *AdminHandler) ListReports(c fiber.Ctx) error {
	var req dto.AdminReportsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/reports")
	defer cancel()

	result, err := h.reports.AdminReports(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to load reports")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Reports retrieved", result)
}

// ExportReports downloads the aggregates as a spreadsheet
// @Summary Export report aggregates
// @Tags Admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param windowHours query int false "Look-back window in hours"
// @Param kind query string false "Target kind" Enums(houseparty, venue)
// @Param night query string false "Night key (YYYYMMDD)"
// @Success 200 {file} file "xlsx file"
// @Failure 403 {object} dto.APIResponse "Forbidden"
// @Router /api/v1/admin/reports/export [get]
func (h *AdminHandler) ExportReports(c fiber.Ctx) error {
	var req dto.AdminReportsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/reports/export")
	defer cancel()

	filename, content, err := h.reports.ExportReports(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to export reports")
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Status(fiber.StatusOK).Send(content)
}
