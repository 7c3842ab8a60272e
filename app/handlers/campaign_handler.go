package handlers

import (
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/amirphl/orochi-outreach/app/dto"
	businessflow "github.com/amirphl/orochi-outreach/business_flow"
)

// CampaignHandlerInterface defines the contract for campaign handlers
type CampaignHandlerInterface interface {
	CreateCampaign(c fiber.Ctx) error
	UpdateCampaign(c fiber.Ctx) error
	GetCampaign(c fiber.Ctx) error
	ListCampaigns(c fiber.Ctx) error
	SendCampaign(c fiber.Ctx) error
	PauseCampaign(c fiber.Ctx) error
	DeleteCampaign(c fiber.Ctx) error
	GetCampaignStats(c fiber.Ctx) error
	ReplyToLead(c fiber.Ctx) error
}

// CampaignHandler handles campaign-related HTTP requests
type CampaignHandler struct {
	baseHandler
	campaignFlow businessflow.CampaignFlow
	sendFlow     businessflow.CampaignSendFlow
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(campaignFlow businessflow.CampaignFlow, sendFlow businessflow.CampaignSendFlow, logger *zap.Logger) *CampaignHandler {
	return &CampaignHandler{
		baseHandler:  newBaseHandler(logger),
		campaignFlow: campaignFlow,
		sendFlow:     sendFlow,
	}
}

// CreateCampaign handles the campaign creation process
// @Summary Create Campaign
// @Description Create a draft campaign targeting the given leads
// @Tags Campaigns
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateCampaignRequest true "Campaign creation data"
// @Success 201 {object} dto.APIResponse{data=dto.CreateCampaignResponse} "Campaign created successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns [post]
func (h *CampaignHandler) CreateCampaign(c fiber.Ctx) error {
	var req dto.CreateCampaignRequest
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

	ctx, cancel := h.createRequestContext(c, "/api/v1/campaigns")
	defer cancel()

	result, err := h.campaignFlow.CreateCampaign(ctx, &req, h.metadata(c))
	if err != nil {
		if handled, rerr := h.lookupError(c, err); handled {
			return rerr
		}
		h.logger.Error("campaign creation failed", zap.Error(err))
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign creation failed", "CAMPAIGN_CREATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, result.Message, result)
}

// UpdateCampaign handles the campaign update process
// @Summary Update Campaign
// @Description Edit name, subject or body of a draft or paused campaign
// @Tags Campaigns
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Campaign ID"
// @Param request body dto.UpdateCampaignRequest true "Campaign update data"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignDTO} "Campaign updated successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or update not allowed"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/{id} [put]
func (h *CampaignHandler) UpdateCampaign(c fiber.Ctx) error {
	var req dto.UpdateCampaignRequest
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
	req.UUID = c.Params("id")

	ctx, cancel := h.createRequestContext(c, "/api/v1/campaigns/:id")
	defer cancel()

	result, err := h.campaignFlow.UpdateCampaign(ctx, &req, h.metadata(c))
	if err != nil {
		if handled, rerr := h.lookupError(c, err); handled {
			return rerr
		}
		if businessflow.IsCampaignUpdateRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "At least one field must be provided for update", "CAMPAIGN_UPDATE_REQUIRED", nil)
		}
		if businessflow.IsCampaignUpdateNotAllowed(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign cannot be updated in current status", "CAMPAIGN_UPDATE_NOT_ALLOWED", nil)
		}
		h.logger.Error("campaign update failed", zap.Error(err))
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign update failed", "CAMPAIGN_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign updated successfully", result)
}

// GetCampaign returns one campaign of the caller
// @Summary Get Campaign
// @Tags Campaigns
// @Produce json
// @Security BearerAuth
// @Param id path string true "Campaign ID"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignDTO}
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/v1/campaigns/{id} [get]
func (h *CampaignHandler) GetCampaign(c fiber.Ctx) error {
	userID, ok, err := h.userID(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/campaigns/:id")
	defer cancel()

	result, err := h.campaignFlow.GetCampaign(ctx, &dto.CampaignRequest{UUID: c.Params("id"), UserID: userID})
	if err != nil {
		if handled, rerr := h.lookupError(c, err); handled {
			return rerr
		}
		h.logger.Error("get campaign failed", zap.Error(err))
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get campaign", "GET_CAMPAIGN_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign retrieved successfully", result)
}

// ListCampaigns lists the caller's campaigns
// @Summary List Campaigns
// @Tags Campaigns
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param orderby query string false "newest or oldest" default(newest)
// @Param status query string false "Status filter"
// @Param name query string false "Name filter"
// @Success 200 {object} dto.APIResponse{data=dto.ListCampaignsResponse}
// @Failure 400 {object} dto.APIResponse "Invalid filter"
// @Router /api/v1/campaigns [get]
func (h *CampaignHandler) ListCampaigns(c fiber.Ctx) error {
	var req dto.ListCampaignsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	userID, ok, err := h.userID(c)
	if !ok {
		return err
	}
	req.UserID = userID

	ctx, cancel := h.createRequestContext(c, "/api/v1/campaigns")
	defer cancel()

	result, err := h.campaignFlow.ListCampaigns(ctx, &req)
	if err != nil {
		if handled, rerr := h.lookupError(c, err); handled {
			return rerr
		}
		h.logger.Error("list campaigns failed", zap.Error(err))
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list campaigns", "LIST_CAMPAIGNS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// SendCampaign hands the campaign's pending leads to the delivery provider
// @Summary Send Campaign
// @Description Start a draft or paused campaign through SmartLead (or SMTP when configured)
// @Tags Campaigns
// @Produce json
// @Security BearerAuth
// @Param id path string true "Campaign ID"
// @Success 200 {object} dto.APIResponse{data=dto.SendCampaignResponse}
// @Failure 400 {object} dto.APIResponse "Campaign cannot be started or has no pending leads"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 409 {object} dto.APIResponse "Send already in progress"
// @Failure 500 {object} dto.APIResponse "Provider failure"
// @Router /api/v1/campaigns/{id}/send [post]
func (h *CampaignHandler) SendCampaign(c fiber.Ctx) error {
	userID, ok, err := h.userID(c)
	if !ok {
		return err
	}

	// provider round trips for large lead lists take longer than the default budget
	ctx, cancel := h.createRequestContextWithTimeout(c, "/api/v1/campaigns/:id/send", 2*defaultRequestTimeout)
	defer cancel()

	result, err := h.sendFlow.SendCampaign(ctx, &dto.CampaignRequest{UUID: c.Params("id"), UserID: userID}, h.metadata(c))
	if err != nil {
		if handled, rerr := h.lookupError(c, err); handled {
			return rerr
		}
		if businessflow.IsCampaignNotSendable(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign cannot be started", "CAMPAIGN_NOT_SENDABLE", nil)
		}
		if businessflow.IsNoPendingLeads(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "No pending leads to send to", "NO_PENDING_LEADS", nil)
		}
		if businessflow.IsCampaignSendInProgress(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Campaign send already in progress", "CAMPAIGN_SEND_IN_PROGRESS", nil)
		}
		if businessflow.IsProviderFailed(err) {
			return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to start campaign", "CAMPAIGN_SEND_FAILED", providerMessage(err))
		}
		h.logger.Error("campaign send failed", zap.Error(err))
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to start campaign", "CAMPAIGN_SEND_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// PauseCampaign pauses a campaign
// @Summary Pause Campaign
// @Tags Campaigns
// @Produce json
// @Security BearerAuth
// @Param id path string true "Campaign ID"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignDTO} "Campaign paused successfully"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/v1/campaigns/{id}/pause [post]
func (h *CampaignHandler) PauseCampaign(c fiber.Ctx) error {
	userID, ok, err := h.userID(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/campaigns/:id/pause")
	defer cancel()

	result, err := h.campaignFlow.PauseCampaign(ctx, &dto.CampaignRequest{UUID: c.Params("id"), UserID: userID}, h.metadata(c))
	if err != nil {
		if handled, rerr := h.lookupError(c, err); handled {
			return rerr
		}
		h.logger.Error("campaign pause failed", zap.Error(err))
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to pause campaign", "CAMPAIGN_PAUSE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign paused successfully", result)
}

// DeleteCampaign deletes a non-active campaign
// @Summary Delete Campaign
// @Tags Campaigns
// @Produce json
// @Security BearerAuth
// @Param id path string true "Campaign ID"
// @Success 200 {object} dto.APIResponse{data=dto.DeleteCampaignResponse}
// @Failure 400 {object} dto.APIResponse "Campaign is active"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/v1/campaigns/{id} [delete]
func (h *CampaignHandler) DeleteCampaign(c fiber.Ctx) error {
	userID, ok, err := h.userID(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/campaigns/:id")
	defer cancel()

	result, err := h.campaignFlow.DeleteCampaign(ctx, &dto.CampaignRequest{UUID: c.Params("id"), UserID: userID}, h.metadata(c))
	if err != nil {
		if handled, rerr := h.lookupError(c, err); handled {
			return rerr
		}
		if businessflow.IsCampaignActive(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Cannot delete active campaign. Please pause it first.", "CAMPAIGN_ACTIVE", nil)
		}
		h.logger.Error("campaign delete failed", zap.Error(err))
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete campaign", "CAMPAIGN_DELETE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// GetCampaignStats returns engagement counts and rates
// @Summary Campaign Stats
// @Tags Campaigns
// @Produce json
// @Security BearerAuth
// @Param id path string true "Campaign ID"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignStatsResponse}
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/v1/campaigns/{id}/stats [get]
func (h *CampaignHandler) GetCampaignStats(c fiber.Ctx) error {
	userID, ok, err := h.userID(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/campaigns/:id/stats")
	defer cancel()

	result, err := h.campaignFlow.GetCampaignStats(ctx, &dto.CampaignRequest{UUID: c.Params("id"), UserID: userID})
	if err != nil {
		if handled, rerr := h.lookupError(c, err); handled {
			return rerr
		}
		h.logger.Error("campaign stats failed", zap.Error(err))
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load campaign stats", "CAMPAIGN_STATS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign stats retrieved successfully", result)
}

// ReplyToLead answers a lead in the provider thread
// @Summary Reply To Lead
// @Tags Campaigns
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Campaign ID"
// @Param leadId path string true "Lead ID"
// @Param request body dto.ReplyToLeadRequest true "Reply"
// @Success 200 {object} dto.APIResponse{data=dto.ReplyToLeadResponse}
// @Failure 400 {object} dto.APIResponse "Campaign was not sent through SmartLead"
// @Failure 404 {object} dto.APIResponse "Campaign or lead not found"
// @Failure 500 {object} dto.APIResponse "Provider failure"
// @Router /api/v1/campaigns/{id}/leads/{leadId}/reply [post]
func (h *CampaignHandler) ReplyToLead(c fiber.Ctx) error {
	var req dto.ReplyToLeadRequest
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
	req.UUID = c.Params("id")
	req.LeadUUID = c.Params("leadId")

	ctx, cancel := h.createRequestContext(c, "/api/v1/campaigns/:id/leads/:leadId/reply")
	defer cancel()

	result, err := h.campaignFlow.ReplyToLead(ctx, &req, h.metadata(c))
	if err != nil {
		if handled, rerr := h.lookupError(c, err); handled {
			return rerr
		}
		if businessflow.IsCampaignNotExternal(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign has not been sent through SmartLead", "CAMPAIGN_NOT_EXTERNAL", nil)
		}
		if businessflow.IsProviderFailed(err) {
			return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to send reply", "REPLY_FAILED", providerMessage(err))
		}
		h.logger.Error("reply to lead failed", zap.Error(err))
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to send reply", "REPLY_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}
