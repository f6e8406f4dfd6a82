package handlers

import (
	"github.com/amirphl/nightpulse/app/dto"
	businessflow "github.com/amirphl/nightpulse/business_flow"
	"github.com/gofiber/fiber/v3"
)

// PredictionHandlerInterface defines the contract for prediction handlers
type PredictionHandlerInterface interface {
	Predictions(c fiber.Ctx) error
}

// PredictionHandler serves stored prediction summaries
type PredictionHandler struct {
	baseHandler
	flow businessflow.SummaryFlow
}

// NewPredictionHandler creates a new prediction handler
func NewPredictionHandler(flow businessflow.SummaryFlow) *PredictionHandler {
	return &PredictionHandler{baseHandler: newBaseHandler(), flow: flow}
}

// Predictions returns the summary for a night, generating it on first read
// @Summary Predictions
// @Description Blended outlook per venue from same-weekday and recent history.
// @Tags Predictions
// @Produce json
// @Param mode path string true "Vote mode" Enums(nightlife, food)
// @Param night query string false "Night key (YYYYMMDD)"
// @Success 200 {object} dto.APIResponse{data=dto.PredictionResponse} "Predictions"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 503 {object} dto.APIResponse "Storage unavailable"
// @Router /api/v1/predictions/{mode} [get]
func (h *PredictionHandler) Predictions(c fiber.Ctx) error {
	var req dto.NightQuery
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}
	req.Mode = c.Params("mode")

	ctx, cancel := h.createRequestContext(c, "/api/v1/predictions")
	defer cancel()

	result, err := h.flow.Predictions(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to load predictions")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Predictions retrieved", result)
}
