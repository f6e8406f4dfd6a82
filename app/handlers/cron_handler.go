package handlers

import (
	"context"

	"github.com/amirphl/nightpulse/app/dto"
	businessflow "github.com/amirphl/nightpulse/business_flow"
	"github.com/amirphl/nightpulse/models"
	"github.com/amirphl/nightpulse/utils"
	"github.com/gofiber/fiber/v3"
)

// CronHandlerInterface defines the contract for secret-protected job triggers
type CronHandlerInterface interface {
	Generate(c fiber.Ctx) error
	Backfill(c fiber.Ctx) error
	SweepReports(c fiber.Ctx) error
}

// CronHandler exposes the scheduled jobs over HTTP
type CronHandler struct {
	baseHandler
	summaries businessflow.SummaryFlow
	reports   businessflow.ReportFlow
}

// NewCronHandler creates a new cron handler
func NewCronHandler(summaries businessflow.SummaryFlow, reports businessflow.ReportFlow) *CronHandler {
	return &CronHandler{baseHandler: newBaseHandler(), summaries: summaries, reports: reports}
}

// bind reads query parameters and, when present, a JSON body on top
func (h *CronHandler) bind(c fiber.Ctx, req any) error {
	if err := c.Bind().Query(req); err != nil {
		return err
	}
	if len(c.Body()) > 0 {
		return c.Bind().JSON(req)
	}
	return nil
}

func (h *CronHandler) jobContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), utils.JobTimeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, utils.JobTimeout)
	return ctx, cancel
}

// Generate writes prediction summaries
// @Summary Generate summaries
// @Description Generate the summary for a night. Both modes are generated when mode is empty. An existing summary is kept unless force is set; dryRun never writes.
// @Tags Cron
// @Accept json
// @Produce json
// @Param key query string false "Cron secret"
// @Param request body dto.GenerateSummaryRequest false "Options"
// @Success 200 {object} dto.APIResponse{data=dto.GenerateSummaryResponse} "Summaries generated"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Invalid cron key"
// @Failure 503 {object} dto.APIResponse "Storage unavailable"
// @Router /api/v1/cron/generate [post]
func (h *CronHandler) Generate(c fiber.Ctx) error {
	var req dto.GenerateSummaryRequest
	if err := h.bind(c, &req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.jobContext(c, "/api/v1/cron/generate")
	defer cancel()

	result, err := h.summaries.GenerateAll(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to generate summaries")
	}
	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// Backfill regenerates the summaries of prior nights
// @Summary Backfill summaries
// @Description Regenerate the N nights before end (defaults to the current night). Mode defaults to nightlife.
// @Tags Cron
// @Accept json
// @Produce json
// @Param key query string false "Cron secret"
// @Param request body dto.BackfillRequest true "Backfill range"
// @Success 200 {object} dto.APIResponse{data=dto.BackfillResponse} "Backfill completed"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Invalid cron key"
// @Router /api/v1/cron/backfill [post]
func (h *CronHandler) Backfill(c fiber.Ctx) error {
	var req dto.BackfillRequest
	if err := h.bind(c, &req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}
	mode := models.VoteModeNightlife
	if req.Mode != "" {
		mode = models.VoteMode(req.Mode)
	}

	ctx, cancel := h.jobContext(c, "/api/v1/cron/backfill")
	defer cancel()

	result, err := h.summaries.Backfill(ctx, mode, req.End, req.Nights, req.DryRun)
	if err != nil {
		return h.flowError(c, err, "Failed to backfill summaries")
	}
	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// SweepReports hides every target whose distinct reporters reached the threshold
// @Summary Sweep reports
// @Tags Cron
// @Produce json
// @Param key query string false "Cron secret"
// @Success 200 {object} dto.APIResponse{data=dto.SweepReportsResponse} "Sweep completed"
// @Failure 401 {object} dto.APIResponse "Invalid cron key"
// @Failure 503 {object} dto.APIResponse "Storage unavailable"
// @Router /api/v1/cron/sweep-reports [post]
func (h *CronHandler) SweepReports(c fiber.Ctx) error {
	ctx, cancel := h.jobContext(c, "/api/v1/cron/sweep-reports")
	defer cancel()

	result, err := h.reports.Sweep(ctx)
	if err != nil {
		return h.flowError(c, err, "Failed to sweep reports")
	}
	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}
