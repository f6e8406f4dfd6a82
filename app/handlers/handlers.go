// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/amirphl/nightpulse/app/dto"
	"github.com/amirphl/nightpulse/app/middleware"
	businessflow "github.com/amirphl/nightpulse/business_flow"
	"github.com/amirphl/nightpulse/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// newValidator returns a validator with the custom tags used by request DTOs
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("night_key", func(fl validator.FieldLevel) bool {
		return utils.IsNightKey(fl.Field().String())
	})
	return v
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "min":
		return err.Field() + " must be at least " + err.Param()
	case "max":
		return err.Field() + " must be at most " + err.Param()
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "night_key":
		return err.Field() + " must be a night key in YYYYMMDD format"
	case "latitude", "longitude":
		return err.Field() + " must be a valid " + err.Tag()
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

// baseHandler carries the response helpers shared by every handler
type baseHandler struct {
	validator *validator.Validate
}

func newBaseHandler() baseHandler {
	return baseHandler{validator: newValidator()}
}

func (h *baseHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *baseHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// validate runs struct validation and writes a 400 on failure. It returns
// true when the request may proceed.
func (h *baseHandler) validate(c fiber.Ctx, req any) (bool, error) {
	if err := h.validator.Struct(req); err != nil {
		var messages []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				messages = append(messages, getValidationErrorMessage(fe))
			}
		} else {
			messages = append(messages, err.Error())
		}
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", messages)
	}
	return true, nil
}

// createRequestContext derives the context passed to flows. The caller must
// invoke the returned cancel func.
func (h *baseHandler) createRequestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), utils.RequestTimeout)
	requestID := c.Get("X-Request-ID")
	if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
		requestID = rid
	}
	ctx = context.WithValue(ctx, utils.RequestIDKey, requestID)
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, utils.RequestTimeout)
	return ctx, cancel
}

func (h *baseHandler) clientMetadata(ctx context.Context, c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	if rid, ok := ctx.Value(utils.RequestIDKey).(string); ok {
		metadata.SetRequestID(rid)
	}
	return metadata
}

func (h *baseHandler) requireUID(c fiber.Ctx) (string, bool) {
	return middleware.GetUIDFromContext(c)
}

// FlowError translates a flow error into its HTTP status and error code
func FlowError(err error) (int, string) {
	var be *businessflow.BusinessError
	code := ""
	if errors.As(err, &be) {
		code = be.Code
	}

	switch {
	case businessflow.IsInvalidTransition(err):
		return fiber.StatusConflict, firstCode(code, "INVALID_TRANSITION")
	case businessflow.IsValidation(err):
		return fiber.StatusBadRequest, firstCode(code, "VALIDATION_ERROR")
	case businessflow.IsGeofence(err):
		return fiber.StatusUnprocessableEntity, firstCode(code, "OUTSIDE_SERVICE_AREA")
	case businessflow.IsDuplicate(err):
		return fiber.StatusConflict, firstCode(code, "DUPLICATE_SUBMISSION")
	case businessflow.IsQuotaExceeded(err):
		return fiber.StatusTooManyRequests, firstCode(code, "QUOTA_EXCEEDED")
	case businessflow.IsAuth(err):
		return fiber.StatusUnauthorized, firstCode(code, "AUTHENTICATION_REQUIRED")
	case businessflow.IsForbidden(err):
		return fiber.StatusForbidden, firstCode(code, "FORBIDDEN")
	case businessflow.IsNotFound(err):
		return fiber.StatusNotFound, firstCode(code, "NOT_FOUND")
	case businessflow.IsStorage(err):
		return fiber.StatusServiceUnavailable, firstCode(code, "STORAGE_UNAVAILABLE")
	default:
		return fiber.StatusInternalServerError, firstCode(code, "INTERNAL_ERROR")
	}
}

// flowError writes the response for a failed flow call
func (h *baseHandler) flowError(c fiber.Ctx, err error, fallbackMessage string) error {
	status, code := FlowError(err)
	if status >= fiber.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Method(), c.Path(), err)
		return h.ErrorResponse(c, status, fallbackMessage, code, nil)
	}
	return h.ErrorResponse(c, status, userMessage(err), code, nil)
}

func firstCode(code, fallback string) string {
	if code != "" {
		return code
	}
	return fallback
}

// userMessage capitalises the innermost readable error text
func userMessage(err error) string {
	msg := err.Error()
	if msg == "" {
		return "Request failed"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
