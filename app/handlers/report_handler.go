package handlers

import (
	"github.com/amirphl/nightpulse/app/dto"
	businessflow "github.com/amirphl/nightpulse/business_flow"
	"github.com/gofiber/fiber/v3"
)

// ReportHandlerInterface defines the contract for report handlers
type ReportHandlerInterface interface {
	Report(c fiber.Ctx) error
}

// ReportHandler accepts reports from signed-in and anonymous callers
type ReportHandler struct {
	baseHandler
	flow businessflow.ReportFlow
}

// NewReportHandler creates a new report handler
func NewReportHandler(flow businessflow.ReportFlow) *ReportHandler {
	return &ReportHandler{baseHandler: newBaseHandler(), flow: flow}
}

// Report flags a houseparty or venue
// @Summary Report entity
// @Description Anonymous reports are accepted and counted by a fingerprint of the client.
// @Tags Reports
// @Accept json
// @Produce json
// @Param request body dto.ReportRequest true "Report"
// @Success 201 {object} dto.APIResponse{data=dto.ReportResponse} "Report received"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "Target not found"
// @Router /api/v1/reports [post]
func (h *ReportHandler) Report(c fiber.Ctx) error {
	var req dto.ReportRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}
	if uid, ok := h.requireUID(c); ok {
		req.ReporterUID = uid
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/reports")
	defer cancel()

	result, err := h.flow.Report(ctx, &req, h.clientMetadata(ctx, c))
	if err != nil {
		return h.flowError(c, err, "Failed to record report")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, result.Message, result)
}
