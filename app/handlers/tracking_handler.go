package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/amirphl/orochi-outreach/app/dto"
	businessflow "github.com/amirphl/orochi-outreach/business_flow"
	"github.com/amirphl/orochi-outreach/utils"
)

// 1x1 transparent GIF
var trackingPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00, 0xff, 0xff, 0xff,
	0x00, 0x00, 0x00, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// TrackingHandlerInterface defines the contract for the public tracking endpoints
type TrackingHandlerInterface interface {
	TrackOpen(c fiber.Ctx) error
	TrackClick(c fiber.Ctx) error
	TrackReply(c fiber.Ctx) error
}

// TrackingHandler serves the open pixel, click redirect and reply webhook
type TrackingHandler struct {
	baseHandler
	flow businessflow.TrackingFlow
}

// NewTrackingHandler creates a new tracking handler
func NewTrackingHandler(flow businessflow.TrackingFlow, logger *zap.Logger) *TrackingHandler {
	return &TrackingHandler{baseHandler: newBaseHandler(logger), flow: flow}
}

// TrackOpen always answers with the pixel
// @Summary Open Pixel
// @Tags Tracking
// @Produce image/gif
// @Param campaign query string true "Campaign ID"
// @Param lead query string true "Lead ID"
// @Param t query int false "Send timestamp"
// @Success 200 {file} file "1x1 GIF"
// @Router /track/open [get]
func (h *TrackingHandler) TrackOpen(c fiber.Ctx) error {
	var req dto.TrackOpenRequest
	if err := c.Bind().Query(&req); err == nil && req.CampaignID != "" && req.LeadID != "" {
		ctx, cancel := h.createRequestContext(c, "/track/open")
		_ = h.flow.TrackOpen(ctx, &req)
		cancel()
	}

	c.Set("Content-Type", "image/gif")
	c.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Set("Pragma", "no-cache")
	c.Set("Expires", "0")
	return c.Status(fiber.StatusOK).Send(trackingPixel)
}

// TrackClick records the click and redirects to the original URL
// @Summary Click Redirect
// @Tags Tracking
// @Param id query string true "Click tracking id"
// @Param url query string true "Original URL"
// @Success 302 {string} string "Redirect"
// @Failure 400 {object} dto.APIResponse "Missing parameters"
// @Router /track/click [get]
func (h *TrackingHandler) TrackClick(c fiber.Ctx) error {
	var req dto.TrackClickRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Missing parameters", "MISSING_PARAMETERS", nil)
	}
	req.IPAddress = clientIP(c)
	req.UserAgent = utils.FirstNonEmpty(c.Get("User-Agent"), utils.UnknownClientValue)

	ctx, cancel := h.createRequestContext(c, "/track/click")
	defer cancel()

	target, err := h.flow.TrackClick(ctx, &req)
	if err != nil {
		if businessflow.IsInvalidRedirectURL(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid redirect URL", "INVALID_REDIRECT_URL", nil)
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Missing parameters", "MISSING_PARAMETERS", nil)
	}

	return c.Redirect().Status(fiber.StatusFound).To(target)
}

// TrackReply is the reply webhook
// @Summary Reply Webhook
// @Tags Tracking
// @Accept json
// @Produce json
// @Param request body dto.TrackReplyRequest true "Reply"
// @Success 200 {object} dto.TrackReplyResponse
// @Failure 400 {object} dto.APIResponse "Missing required parameters"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /track/reply [post]
func (h *TrackingHandler) TrackReply(c fiber.Ctx) error {
	var req dto.TrackReplyRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/track/reply")
	defer cancel()

	result, err := h.flow.TrackReply(ctx, &req)
	if err != nil {
		if businessflow.IsTrackingParamsRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Missing required parameters", "MISSING_PARAMETERS", nil)
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Internal server error", "REPLY_TRACKING_FAILED", nil)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// clientIP prefers the first X-Forwarded-For hop, then the connection address
func clientIP(c fiber.Ctx) string {
	if forwarded := c.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	return utils.FirstNonEmpty(c.IP(), utils.UnknownClientValue)
}
