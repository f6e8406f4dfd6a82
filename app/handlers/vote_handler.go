package handlers

import (
	"github.com/amirphl/nightpulse/app/dto"
	businessflow "github.com/amirphl/nightpulse/business_flow"
	"github.com/gofiber/fiber/v3"
)

// VoteHandlerInterface defines the contract for vote and tally handlers
type VoteHandlerInterface interface {
	SubmitVote(c fiber.Ctx) error
	MyVote(c fiber.Ctx) error
	LiveTally(c fiber.Ctx) error
	Leaderboard(c fiber.Ctx) error
}

// VoteHandler handles vote-related HTTP requests
type VoteHandler struct {
	baseHandler
	flow businessflow.VoteFlow
}

// NewVoteHandler creates a new vote handler
func NewVoteHandler(flow businessflow.VoteFlow) *VoteHandler {
	return &VoteHandler{baseHandler: newBaseHandler(), flow: flow}
}

// SubmitVote records or replaces the caller's vote for the current night
// @Summary Submit vote
// @Description Store tonight's intent and venue picks. A later submission replaces the earlier one.
// @Tags Votes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param mode path string true "Vote mode" Enums(nightlife, food)
// @Param request body dto.SubmitVoteRequest true "Vote"
// @Success 200 {object} dto.APIResponse{data=dto.VoteResponse} "Vote stored"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 503 {object} dto.APIResponse "Storage unavailable"
// @Router /api/v1/votes/{mode} [post]
func (h *VoteHandler) SubmitVote(c fiber.Ctx) error {
	var req dto.SubmitVoteRequest
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
	req.UID = uid
	req.Mode = c.Params("mode")

	ctx, cancel := h.createRequestContext(c, "/api/v1/votes")
	defer cancel()

	result, err := h.flow.SubmitVote(ctx, &req, h.clientMetadata(ctx, c))
	if err != nil {
		return h.flowError(c, err, "Failed to store vote")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Vote stored", result)
}

// MyVote returns the caller's vote for a night
// @Summary Current user's vote
// @Tags Votes
// @Produce json
// @Security BearerAuth
// @Param mode path string true "Vote mode" Enums(nightlife, food)
// @Param night query string false "Night key (YYYYMMDD), defaults to the current night"
// @Success 200 {object} dto.APIResponse{data=dto.VoteResponse} "Vote found"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "No vote for this night"
// @Router /api/v1/votes/{mode}/mine [get]
func (h *VoteHandler) MyVote(c fiber.Ctx) error {
	var req dto.NightQuery
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}
	uid, ok := h.requireUID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}
	req.Mode = c.Params("mode")

	ctx, cancel := h.createRequestContext(c, "/api/v1/votes/mine")
	defer cancel()

	result, err := h.flow.MyVote(ctx, uid, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to load vote")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Vote retrieved", result)
}

// LiveTally returns the aggregate for a night
// @Summary Live tally
// @Description Per-venue voters, weighted totals and live scores plus the stay-in count.
// @Tags Tallies
// @Produce json
// @Param mode path string true "Vote mode" Enums(nightlife, food)
// @Param night query string false "Night key (YYYYMMDD)"
// @Success 200 {object} dto.APIResponse{data=dto.LiveTallyResponse} "Tally"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 503 {object} dto.APIResponse "Storage unavailable"
// @Router /api/v1/tallies/{mode} [get]
func (h *VoteHandler) LiveTally(c fiber.Ctx) error {
	var req dto.NightQuery
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}
	req.Mode = c.Params("mode")

	ctx, cancel := h.createRequestContext(c, "/api/v1/tallies")
	defer cancel()

	result, err := h.flow.LiveTally(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to load tally")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Tally retrieved", result)
}

// Leaderboard returns the tie-safe podium
// @Summary Leaderboard
// @Description Gold, silver and bronze by distinct voters. Ranking stops at the first tie.
// @Tags Tallies
// @Produce json
// @Param mode path string true "Vote mode" Enums(nightlife, food)
// @Param night query string false "Night key (YYYYMMDD)"
// @Param city query string false "Only rank venues in this city"
// @Success 200 {object} dto.APIResponse{data=dto.LeaderboardResponse} "Leaderboard"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Router /api/v1/leaderboard/{mode} [get]
func (h *VoteHandler) Leaderboard(c fiber.Ctx) error {
	var req dto.NightQuery
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}
	req.Mode = c.Params("mode")

	ctx, cancel := h.createRequestContext(c, "/api/v1/leaderboard")
	defer cancel()

	result, err := h.flow.Leaderboard(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to load leaderboard")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Leaderboard retrieved", result)
}
