package businessflow

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/amirphl/orochi-outreach/app/dto"
	"github.com/amirphl/orochi-outreach/models"
	"github.com/amirphl/orochi-outreach/repository"
	"github.com/amirphl/orochi-outreach/utils"
)

// LeadFlow handles the lead business logic
type LeadFlow interface {
	CreateLead(ctx context.Context, req *dto.CreateLeadRequest, metadata *ClientMetadata) (*dto.LeadDTO, error)
	GetLead(ctx context.Context, req *dto.LeadRequest) (*dto.LeadDTO, error)
	UpdateLead(ctx context.Context, req *dto.UpdateLeadRequest, metadata *ClientMetadata) (*dto.LeadDTO, error)
	ListLeads(ctx context.Context, req *dto.ListLeadsRequest) (*dto.ListLeadsResponse, error)
	DeleteLead(ctx context.Context, req *dto.LeadRequest, metadata *ClientMetadata) (*dto.DeleteLeadResponse, error)
}

// LeadFlowImpl implements the lead business flow
type LeadFlowImpl struct {
	leadRepo         repository.LeadRepository
	profileRepo      repository.ProfileRepository
	campaignLeadRepo repository.CampaignLeadRepository
	trackingRepo     repository.EmailTrackingRepository
	linkRepo         repository.LinkTrackingRepository
	logger           *zap.Logger
	db               *gorm.DB
}

// NewLeadFlow creates a new lead flow instance
func NewLeadFlow(
	leadRepo repository.LeadRepository,
	profileRepo repository.ProfileRepository,
	campaignLeadRepo repository.CampaignLeadRepository,
	trackingRepo repository.EmailTrackingRepository,
	linkRepo repository.LinkTrackingRepository,
	logger *zap.Logger,
	db *gorm.DB,
) LeadFlow {
	return &LeadFlowImpl{
		leadRepo:         leadRepo,
		profileRepo:      profileRepo,
		campaignLeadRepo: campaignLeadRepo,
		trackingRepo:     trackingRepo,
		linkRepo:         linkRepo,
		logger:           logger,
		db:               db,
	}
}

// CreateLead adds a manual lead; a second lead with the same email (any case) is rejected
func (s *LeadFlowImpl) CreateLead(ctx context.Context, req *dto.CreateLeadRequest, metadata *ClientMetadata) (*dto.LeadDTO, error) {
	lead := newLeadFromFields(&req.LeadFields, models.LeadSourceManual)
	lead.UserID = req.UserID

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := ensureProfile(txCtx, s.profileRepo, req.UserID); err != nil {
			return err
		}
		if lead.Email != "" {
			existing, err := s.leadRepo.ByEmailForUser(txCtx, req.UserID, lead.Email)
			if err != nil {
				return err
			}
			if existing != nil {
				return ErrLeadEmailExists
			}
		}
		return s.leadRepo.Save(txCtx, lead)
	})
	if err != nil {
		if IsLeadEmailExists(err) || isUniqueViolation(err) {
			return nil, NewBusinessError("LEAD_EMAIL_EXISTS", "A lead with this email already exists", ErrLeadEmailExists)
		}
		return nil, NewBusinessError("LEAD_CREATION_FAILED", "Lead creation failed", err)
	}

	s.logger.Info("lead created", append(metadata.fields(), zap.String("lead", lead.UUID.String()))...)

	out := leadToDTO(lead)
	return &out, nil
}

func (s *LeadFlowImpl) GetLead(ctx context.Context, req *dto.LeadRequest) (*dto.LeadDTO, error) {
	lead, err := getLead(ctx, s.leadRepo, req.UUID, req.UserID)
	if err != nil {
		return nil, NewBusinessError("LEAD_LOOKUP_FAILED", "Failed to lookup lead", err)
	}
	out := leadToDTO(lead)
	return &out, nil
}

// UpdateLead applies the provided fields only
func (s *LeadFlowImpl) UpdateLead(ctx context.Context, req *dto.UpdateLeadRequest, metadata *ClientMetadata) (*dto.LeadDTO, error) {
	lead, err := getLead(ctx, s.leadRepo, req.UUID, req.UserID)
	if err != nil {
		return nil, NewBusinessError("LEAD_LOOKUP_FAILED", "Failed to lookup lead", err)
	}

	applyLeadFields(lead, &req.LeadFields)

	if lead.Email != "" {
		existing, err := s.leadRepo.ByEmailForUser(ctx, req.UserID, lead.Email)
		if err != nil {
			return nil, NewBusinessError("LEAD_UPDATE_FAILED", "Lead update failed", err)
		}
		if existing != nil && existing.ID != lead.ID {
			return nil, NewBusinessError("LEAD_EMAIL_EXISTS", "A lead with this email already exists", ErrLeadEmailExists)
		}
	}

	if err := s.leadRepo.Update(ctx, lead); err != nil {
		if isUniqueViolation(err) {
			return nil, NewBusinessError("LEAD_EMAIL_EXISTS", "A lead with this email already exists", ErrLeadEmailExists)
		}
		return nil, NewBusinessError("LEAD_UPDATE_FAILED", "Lead update failed", err)
	}

	s.logger.Info("lead updated", append(metadata.fields(), zap.String("lead", lead.UUID.String()))...)

	out := leadToDTO(lead)
	return &out, nil
}

func (s *LeadFlowImpl) ListLeads(ctx context.Context, req *dto.ListLeadsRequest) (*dto.ListLeadsResponse, error) {
	page, limit, offset, err := normalizePage(req.Page, req.Limit)
	if err != nil {
		return nil, NewBusinessError("INVALID_PAGINATION", "Invalid pagination", err)
	}

	filter := models.LeadFilter{UserID: &req.UserID}
	if req.Status != nil && *req.Status != "" {
		status := models.LeadStatus(*req.Status)
		filter.Status = &status
	}
	if req.Source != nil && *req.Source != "" {
		filter.Source = req.Source
	}
	if req.Search != nil && strings.TrimSpace(*req.Search) != "" {
		search := strings.TrimSpace(*req.Search)
		filter.Search = &search
	}

	total, err := s.leadRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LEAD_LIST_FAILED", "Failed to list leads", err)
	}
	leads, err := s.leadRepo.ByFilter(ctx, filter, "created_at DESC, id DESC", limit, offset)
	if err != nil {
		return nil, NewBusinessError("LEAD_LIST_FAILED", "Failed to list leads", err)
	}

	items := make([]dto.LeadDTO, 0, len(leads))
	for _, l := range leads {
		items = append(items, leadToDTO(l))
	}

	return &dto.ListLeadsResponse{
		Message:    "Leads retrieved successfully",
		Items:      items,
		Pagination: paginationInfo(total, page, limit),
	}, nil
}

// DeleteLead removes the lead together with its tracking and campaign participation rows
func (s *LeadFlowImpl) DeleteLead(ctx context.Context, req *dto.LeadRequest, metadata *ClientMetadata) (*dto.DeleteLeadResponse, error) {
	lead, err := getLead(ctx, s.leadRepo, req.UUID, req.UserID)
	if err != nil {
		return nil, NewBusinessError("LEAD_LOOKUP_FAILED", "Failed to lookup lead", err)
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.trackingRepo.DeleteByLead(txCtx, lead.ID); err != nil {
			return err
		}
		if err := s.linkRepo.DeleteByLead(txCtx, lead.ID); err != nil {
			return err
		}
		if err := s.campaignLeadRepo.DeleteByLead(txCtx, lead.ID); err != nil {
			return err
		}
		return s.leadRepo.DeleteByID(txCtx, lead.ID)
	})
	if err != nil {
		return nil, NewBusinessError("LEAD_DELETE_FAILED", "Failed to delete lead", err)
	}

	s.logger.Info("lead deleted", append(metadata.fields(), zap.String("lead", lead.UUID.String()))...)

	return &dto.DeleteLeadResponse{
		Message:  "Lead deleted successfully",
		LeadName: strings.TrimSpace(lead.FirstName + " " + lead.LastName),
	}, nil
}

// newLeadFromFields builds an unsaved lead. Legacy company/position fall back to
// company_name/title and contact_name defaults to the full name.
func newLeadFromFields(f *dto.LeadFields, source string) *models.Lead {
	lead := &models.Lead{Source: source, Status: models.LeadStatusNew}
	applyLeadFields(lead, f)
	if lead.ContactName == "" {
		lead.ContactName = strings.TrimSpace(lead.FirstName + " " + lead.LastName)
	}
	if lead.Company == "" {
		lead.Company = lead.CompanyName
	}
	if lead.Position == "" {
		lead.Position = lead.Title
	}
	return lead
}

func applyLeadFields(lead *models.Lead, f *dto.LeadFields) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&lead.FirstName, f.FirstName)
	set(&lead.LastName, f.LastName)
	set(&lead.ContactName, f.ContactName)
	set(&lead.Email, f.Email)
	set(&lead.Phone, f.Phone)
	set(&lead.CompanyName, f.CompanyName)
	set(&lead.Company, f.Company)
	set(&lead.Title, f.Title)
	set(&lead.Position, f.Position)
	set(&lead.LinkedinURL, f.LinkedinURL)
	set(&lead.CompanyWebsite, f.CompanyWebsite)
	set(&lead.Industry, f.Industry)
	set(&lead.CompanySize, f.CompanySize)
	set(&lead.Location, f.Location)
	set(&lead.Notes, f.Notes)
	if f.Status != nil {
		if status := models.LeadStatus(strings.TrimSpace(*f.Status)); status.Valid() {
			lead.Status = status
		}
	}
	lead.CompanyName = utils.FirstNonEmpty(lead.CompanyName, lead.Company)
	lead.Title = utils.FirstNonEmpty(lead.Title, lead.Position)
}
