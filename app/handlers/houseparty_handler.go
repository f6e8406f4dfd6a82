package handlers

import (
	"github.com/amirphl/nightpulse/app/dto"
	businessflow "github.com/amirphl/nightpulse/business_flow"
	"github.com/gofiber/fiber/v3"
)

// HousepartyHandlerInterface defines the contract for public houseparty handlers
type HousepartyHandlerInterface interface {
	Submit(c fiber.Ctx) error
	List(c fiber.Ctx) error
}

// HousepartyHandler handles houseparty submissions and listings
type HousepartyHandler struct {
	baseHandler
	flow businessflow.HousepartyFlow
}

// NewHousepartyHandler creates a new houseparty handler
func NewHousepartyHandler(flow businessflow.HousepartyFlow) *HousepartyHandler {
	return &HousepartyHandler{baseHandler: newBaseHandler(), flow: flow}
}

// Submit lists a houseparty for the current night
// @Summary Submit houseparty
// @Description Trusted authors are published immediately, others wait for moderation. Limited per night and deduplicated by location and time.
// @Tags Houseparties
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SubmitHousepartyRequest true "Houseparty"
// @Success 201 {object} dto.APIResponse{data=dto.SubmitHousepartyResponse} "Submission accepted"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 409 {object} dto.APIResponse "Similar houseparty already listed"
// @Failure 422 {object} dto.APIResponse "Outside the service area"
// @Failure 429 {object} dto.APIResponse "Nightly quota reached"
// @Router /api/v1/houseparties [post]
func (h *HousepartyHandler) Submit(c fiber.Ctx) error {
	var req dto.SubmitHousepartyRequest
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
	req.AuthorUID = uid

	ctx, cancel := h.createRequestContext(c, "/api/v1/houseparties")
	defer cancel()

	result, err := h.flow.Submit(ctx, &req, h.clientMetadata(ctx, c))
	if err != nil {
		return h.flowError(c, err, "Failed to submit houseparty")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, result.Message, result)
}

// List returns active houseparties
// @Summary List houseparties
// @Tags Houseparties
// @Produce json
// @Param range query string false "tonight or recent" Enums(tonight, recent)
// @Success 200 {object} dto.APIResponse{data=dto.ListHousepartiesResponse} "Houseparties"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Router /api/v1/houseparties [get]
func (h *HousepartyHandler) List(c fiber.Ctx) error {
	var req dto.ListHousepartiesRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/houseparties")
	defer cancel()

	result, err := h.flow.List(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to list houseparties")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Houseparties retrieved", result)
}
