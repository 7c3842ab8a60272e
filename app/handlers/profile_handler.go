package handlers

import (
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/amirphl/orochi-outreach/app/dto"
	businessflow "github.com/amirphl/orochi-outreach/business_flow"
)

type ProfileHandlerInterface interface {
	GetProfile(c fiber.Ctx) error
	UpdateProfile(c fiber.Ctx) error
}

type ProfileHandler struct {
	baseHandler
	flow businessflow.ProfileFlow
}

func NewProfileHandler(flow businessflow.ProfileFlow, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{baseHandler: newBaseHandler(logger), flow: flow}
}

// GetProfile returns the authenticated user's profile
// @Summary Get profile
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.GetProfileResponse} "Profile retrieved successfully"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/profile [get]
func (h *ProfileHandler) GetProfile(c fiber.Ctx) error {
	userID, ok, err := h.userID(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/profile")
	defer cancel()

	result, err := h.flow.GetProfile(ctx, userID)
	if err != nil {
		h.logger.Error("get profile failed", zap.Error(err))
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve profile", "PROFILE_FETCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Profile retrieved successfully", result)
}

// UpdateProfile sets the display email and name
// @Summary Update profile
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} dto.APIResponse{data=dto.GetProfileResponse} "Profile updated successfully"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/profile [put]
func (h *ProfileHandler) UpdateProfile(c fiber.Ctx) error {
	var req dto.UpdateProfileRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	userID, ok, err := h.userID(c)
	if !ok {
		return err
	}
	req.UserID = userID

	ctx, cancel := h.createRequestContext(c, "/api/v1/profile")
	defer cancel()

	result, err := h.flow.UpdateProfile(ctx, &req)
	if err != nil {
		if businessflow.IsProfileUpdateRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "At least one field must be provided for update", "PROFILE_UPDATE_REQUIRED", nil)
		}
		h.logger.Error("update profile failed", zap.Error(err))
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update profile", "PROFILE_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Profile updated successfully", result)
}
