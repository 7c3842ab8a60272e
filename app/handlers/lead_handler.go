package handlers

import (
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/amirphl/orochi-outreach/app/dto"
	businessflow "github.com/amirphl/orochi-outreach/business_flow"
)

// LeadHandlerInterface defines the contract for lead handlers
type LeadHandlerInterface interface {
	CreateLead(c fiber.Ctx) error
	GetLead(c fiber.Ctx) error
	UpdateLead(c fiber.Ctx) error
	DeleteLead(c fiber.Ctx) error
	ListLeads(c fiber.Ctx) error
	ImportLeads(c fiber.Ctx) error
	ImportLeadsSpreadsheet(c fiber.Ctx) error
	ExportLeads(c fiber.Ctx) error
}

// LeadHandler handles lead-related HTTP requests
type LeadHandler struct {
	baseHandler
	leadFlow   businessflow.LeadFlow
	importFlow businessflow.LeadImportFlow
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(leadFlow businessflow.LeadFlow, importFlow businessflow.LeadImportFlow, logger *zap.Logger) *LeadHandler {
	return &LeadHandler{
		baseHandler: newBaseHandler(logger),
		leadFlow:    leadFlow,
		importFlow:  importFlow,
	}
}

// CreateLead adds a single lead
// @Summary Create Lead
// @Tags Leads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.LeadFields true "Lead data"
// @Success 201 {object} dto.APIResponse{data=dto.LeadDTO}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 409 {object} dto.APIResponse "Lead email already exists"
// @Router /api/v1/leads [post]
func (h *LeadHandler) CreateLead(c fiber.Ctx) error {
	var req dto.CreateLeadRequest
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

	ctx, cancel := h.createRequestContext(c, "/api/v1/leads")
	defer cancel()

	result, err := h.leadFlow.CreateLead(ctx, &req, h.metadata(c))
	if err != nil {
		if businessflow.IsLeadEmailExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "A lead with this email already exists", "LEAD_EMAIL_EXISTS", nil)
		}
		h.logger.Error("lead creation failed", zap.Error(err))
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Lead creation failed", "LEAD_CREATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Lead created successfully", result)
}

// GetLead returns one lead of the caller
// @Summary Get Lead
// @Tags Leads
// @Produce json
// @Security BearerAuth
// @Param id path string true "Lead ID"
// @Success 200 {object} dto.APIResponse{data=dto.LeadDTO}
// @Failure 404 {object} dto.APIResponse "Lead not found"
// @Router /api/v1/leads/{id} [get]
func (h *LeadHandler) GetLead(c fiber.Ctx) error {
	userID, ok, err := h.userID(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/leads/:id")
	defer cancel()

	result, err := h.leadFlow.GetLead(ctx, &dto.LeadRequest{UUID: c.Params("id"), UserID: userID})
	if err != nil {
		if handled, rerr := h.lookupError(c, err); handled {
			return rerr
		}
		h.logger.Error("get lead failed", zap.Error(err))
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get lead", "GET_LEAD_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Lead retrieved successfully", result)
}

// UpdateLead edits a lead
// @Summary Update Lead
// @Tags Leads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Lead ID"
// @Param request body dto.LeadFields true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.LeadDTO}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "Lead not found"
// @Failure 409 {object} dto.APIResponse "Lead email already exists"
// @Router /api/v1/leads/{id} [put]
func (h *LeadHandler) UpdateLead(c fiber.Ctx) error {
	var req dto.UpdateLeadRequest
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

	ctx, cancel := h.createRequestContext(c, "/api/v1/leads/:id")
	defer cancel()

	result, err := h.leadFlow.UpdateLead(ctx, &req, h.metadata(c))
	if err != nil {
		if handled, rerr := h.lookupError(c, err); handled {
			return rerr
		}
		if businessflow.IsLeadEmailExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "A lead with this email already exists", "LEAD_EMAIL_EXISTS", nil)
		}
		h.logger.Error("lead update failed", zap.Error(err))
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Lead update failed", "LEAD_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Lead updated successfully", result)
}

// DeleteLead removes a lead and its campaign history
// @Summary Delete Lead
// @Tags Leads
// @Produce json
// @Security BearerAuth
// @Param id path string true "Lead ID"
// @Success 200 {object} dto.APIResponse{data=dto.DeleteLeadResponse}
// @Failure 404 {object} dto.APIResponse "Lead not found"
// @Router /api/v1/leads/{id} [delete]
func (h *LeadHandler) DeleteLead(c fiber.Ctx) error {
	userID, ok, err := h.userID(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/leads/:id")
	defer cancel()

	result, err := h.leadFlow.DeleteLead(ctx, &dto.LeadRequest{UUID: c.Params("id"), UserID: userID}, h.metadata(c))
	if err != nil {
		if handled, rerr := h.lookupError(c, err); handled {
			return rerr
		}
		h.logger.Error("lead delete failed", zap.Error(err))
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete lead", "LEAD_DELETE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// ListLeads lists the caller's leads
// @Summary List Leads
// @Tags Leads
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param status query string false "Status filter"
// @Param source query string false "Source filter"
// @Param search query string false "Matches name, email or company"
// @Success 200 {object} dto.APIResponse{data=dto.ListLeadsResponse}
// @Router /api/v1/leads [get]
func (h *LeadHandler) ListLeads(c fiber.Ctx) error {
	var req dto.ListLeadsRequest
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

	ctx, cancel := h.createRequestContext(c, "/api/v1/leads")
	defer cancel()

	result, err := h.leadFlow.ListLeads(ctx, &req)
	if err != nil {
		if handled, rerr := h.lookupError(c, err); handled {
			return rerr
		}
		h.logger.Error("list leads failed", zap.Error(err))
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list leads", "LIST_LEADS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// ImportLeads imports a JSON batch of leads
// @Summary Import Leads
// @Description Upsert leads with email on lower(email); insert leads without email
// @Tags Leads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ImportLeadsRequest true "Leads"
// @Success 200 {object} dto.ImportLeadsResponse
// @Failure 400 {object} dto.APIResponse "Leads array is required"
// @Router /api/v1/leads/import [post]
func (h *LeadHandler) ImportLeads(c fiber.Ctx) error {
	var req dto.ImportLeadsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	userID, ok, err := h.userID(c)
	if !ok {
		return err
	}
	req.UserID = userID

	ctx, cancel := h.createRequestContextWithTimeout(c, "/api/v1/leads/import", 2*defaultRequestTimeout)
	defer cancel()

	result, err := h.importFlow.ImportLeads(ctx, &req, h.metadata(c))
	return h.importResult(c, result, err)
}

// ImportLeadsSpreadsheet imports leads from an uploaded XLSX file
// @Summary Import Leads From Spreadsheet
// @Tags Leads
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "XLSX file; first sheet, header row"
// @Success 200 {object} dto.ImportLeadsResponse
// @Failure 400 {object} dto.APIResponse "Missing or unreadable file"
// @Router /api/v1/leads/import/xlsx [post]
func (h *LeadHandler) ImportLeadsSpreadsheet(c fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil || fileHeader == nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "file is required", "INVALID_REQUEST", nil)
	}

	userID, ok, err := h.userID(c)
	if !ok {
		return err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "invalid file", "INVALID_FILE", err.Error())
	}
	defer file.Close()

	ctx, cancel := h.createRequestContextWithTimeout(c, "/api/v1/leads/import/xlsx", 2*defaultRequestTimeout)
	defer cancel()

	result, err := h.importFlow.ImportLeadsSpreadsheet(ctx, userID, file, h.metadata(c))
	return h.importResult(c, result, err)
}

func (h *LeadHandler) importResult(c fiber.Ctx, result *dto.ImportLeadsResponse, err error) error {
	if err != nil {
		if businessflow.IsLeadsRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Leads array is required", "LEADS_REQUIRED", nil)
		}
		if businessflow.IsInvalidSpreadsheet(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Failed to read spreadsheet", "INVALID_SPREADSHEET", err.Error())
		}
		h.logger.Error("lead import failed", zap.Error(err))
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to import leads", "LEAD_IMPORT_FAILED", nil)
	}
	// import keeps its flat response shape
	return c.Status(fiber.StatusOK).JSON(result)
}

// ExportLeads downloads the caller's leads as XLSX
// @Summary Export Leads
// @Tags Leads
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} file "XLSX file"
// @Failure 500 {object} dto.APIResponse
// @Router /api/v1/leads/export [get]
func (h *LeadHandler) ExportLeads(c fiber.Ctx) error {
	userID, ok, err := h.userID(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContextWithTimeout(c, "/api/v1/leads/export", 2*defaultRequestTimeout)
	defer cancel()

	filename, data, err := h.importFlow.ExportLeads(ctx, userID)
	if err != nil {
		h.logger.Error("lead export failed", zap.Error(err))
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export leads", "LEAD_EXPORT_FAILED", nil)
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.Send(data)
}
