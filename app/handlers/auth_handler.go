package handlers

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/amirphl/orochi-outreach/app/middleware"
	businessflow "github.com/amirphl/orochi-outreach/business_flow"
)

// AuthHandler handles session endpoints and the health probe
type AuthHandler struct {
	baseHandler
	authFlow businessflow.AuthFlow
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authFlow businessflow.AuthFlow, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{baseHandler: newBaseHandler(logger), authFlow: authFlow}
}

// Logout revokes the bearer token of the request
// @Summary Logout
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.LogoutResponse} "Logged out successfully"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	token, ok := middleware.GetAccessTokenFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Access token is required", "MISSING_ACCESS_TOKEN", nil)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/auth/logout")
	defer cancel()

	result, err := h.authFlow.Logout(ctx, token, h.metadata(c))
	if err != nil {
		if businessflow.IsTokenRequired(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Access token is required", "MISSING_ACCESS_TOKEN", nil)
		}
		h.logger.Error("logout failed", zap.Error(err))
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Logout failed", "LOGOUT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// Health handles health check requests
// @Summary Health Check
// @Description Check the health status of the API
// @Tags Health
// @Produce json
// @Success 200 {object} dto.APIResponse "Service is healthy"
// @Router /api/v1/health [get]
func (h *AuthHandler) Health(c fiber.Ctx) error {
	return h.SuccessResponse(c, fiber.StatusOK, "Service is healthy", fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "outreach-api",
	})
}
