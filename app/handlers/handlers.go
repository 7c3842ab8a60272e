// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/amirphl/orochi-outreach/app/dto"
	"github.com/amirphl/orochi-outreach/app/middleware"
	businessflow "github.com/amirphl/orochi-outreach/business_flow"
	"github.com/amirphl/orochi-outreach/utils"
)

const defaultRequestTimeout = 30 * time.Second

// baseHandler carries the response envelope, validation and request context helpers shared by all handlers
type baseHandler struct {
	validator *validator.Validate
	logger    *zap.Logger
}

func newBaseHandler(logger *zap.Logger) baseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return baseHandler{validator: validator.New(), logger: logger}
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

// validate runs struct validation and writes the itemized 400 on failure; ok is false when a response was written
func (h *baseHandler) validate(c fiber.Ctx, req any) (bool, error) {
	err := h.validator.Struct(req)
	if err == nil {
		return true, nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", []string{err.Error()})
	}
	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		messages = append(messages, getValidationErrorMessage(fe))
	}
	return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", messages)
}

// userID returns the authenticated caller; ok is false when a 401 was written
func (h *baseHandler) userID(c fiber.Ctx) (uuid.UUID, bool, error) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return uuid.Nil, false, h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}
	return userID, true, nil
}

func (h *baseHandler) metadata(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(c.Get(businessflow.RequestIDKey))
	return metadata
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *baseHandler) createRequestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	return h.createRequestContextWithTimeout(c, endpoint, defaultRequestTimeout)
}

// createRequestContextWithTimeout creates a context with custom timeout and request-scoped values
func (h *baseHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get(businessflow.RequestIDKey))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)

	return ctx, cancel
}

// lookupError maps the not-found and missing-id errors shared by campaign and lead routes; ok is false when err is none of them
func (h *baseHandler) lookupError(c fiber.Ctx, err error) (bool, error) {
	switch {
	case businessflow.IsCampaignUUIDRequired(err):
		return true, h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign id is required", "CAMPAIGN_ID_REQUIRED", nil)
	case businessflow.IsLeadUUIDRequired(err):
		return true, h.ErrorResponse(c, fiber.StatusBadRequest, "Lead id is required", "LEAD_ID_REQUIRED", nil)
	case businessflow.IsCampaignNotFound(err):
		return true, h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
	case businessflow.IsLeadNotFound(err):
		return true, h.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", "LEAD_NOT_FOUND", nil)
	case businessflow.IsInvalidPage(err), businessflow.IsInvalidPageSize(err):
		return true, h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid pagination", "INVALID_PAGINATION", err.Error())
	}
	return false, nil
}

// providerMessage strips the wrapping so the caller sees the upstream error text
func providerMessage(err error) string {
	var be *businessflow.BusinessError
	if errors.As(err, &be) && be.Err != nil {
		err = be.Err
	}
	return strings.TrimPrefix(err.Error(), businessflow.ErrProviderFailed.Error()+": ")
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return err.Field() + " must be at least " + err.Param() + " characters"
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "len":
		return err.Field() + " must be exactly " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "uuid":
		return err.Field() + " must be a valid id"
	case "numeric":
		return err.Field() + " must contain only numbers"
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}
