package handlers

import (
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	businessflow "github.com/amirphl/orochi-outreach/business_flow"
)

// DashboardHandler serves the caller's aggregate numbers
type DashboardHandler struct {
	baseHandler
	flow businessflow.DashboardFlow
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(flow businessflow.DashboardFlow, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{baseHandler: newBaseHandler(logger), flow: flow}
}

// GetStats returns lead and campaign totals
// @Summary Dashboard Stats
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.DashboardStatsResponse}
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/dashboard/stats [get]
func (h *DashboardHandler) GetStats(c fiber.Ctx) error {
	userID, ok, err := h.userID(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/dashboard/stats")
	defer cancel()

	result, err := h.flow.GetStats(ctx, userID)
	if err != nil {
		h.logger.Error("dashboard stats failed", zap.Error(err))
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load dashboard stats", "DASHBOARD_STATS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Dashboard stats retrieved successfully", result)
}
