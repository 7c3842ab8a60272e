package businessflow

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/amirphl/orochi-outreach/app/dto"
	"github.com/amirphl/orochi-outreach/models"
	"github.com/amirphl/orochi-outreach/repository"
	"github.com/amirphl/orochi-outreach/utils"
)

// LeadImportFlow handles bulk lead import and export
type LeadImportFlow interface {
	ImportLeads(ctx context.Context, req *dto.ImportLeadsRequest, metadata *ClientMetadata) (*dto.ImportLeadsResponse, error)
	ImportLeadsSpreadsheet(ctx context.Context, userID uuid.UUID, r io.Reader, metadata *ClientMetadata) (*dto.ImportLeadsResponse, error)
	ExportLeads(ctx context.Context, userID uuid.UUID) (string, []byte, error)
}

// LeadImportFlowImpl implements the lead import flow
type LeadImportFlowImpl struct {
	leadRepo    repository.LeadRepository
	profileRepo repository.ProfileRepository
	logger      *zap.Logger
}

// NewLeadImportFlow creates a new lead import flow instance
func NewLeadImportFlow(leadRepo repository.LeadRepository, profileRepo repository.ProfileRepository, logger *zap.Logger) LeadImportFlow {
	return &LeadImportFlowImpl{
		leadRepo:    leadRepo,
		profileRepo: profileRepo,
		logger:      logger,
	}
}

// ImportLeads upserts leads that carry an email on (user, lower(email)) and inserts the rest.
// A failed email batch is retried row by row so one bad row does not sink the import.
// A missing leads array is rejected; an empty one imports nothing.
func (s *LeadImportFlowImpl) ImportLeads(ctx context.Context, req *dto.ImportLeadsRequest, metadata *ClientMetadata) (*dto.ImportLeadsResponse, error) {
	if req.Leads == nil {
		return nil, NewBusinessError("LEADS_REQUIRED", "Leads array is required", ErrLeadsRequired)
	}

	if err := ensureProfile(ctx, s.profileRepo, req.UserID); err != nil {
		return nil, NewBusinessError("LEAD_IMPORT_FAILED", "Failed to import leads", err)
	}

	withEmail := make([]*models.Lead, 0, len(req.Leads))
	withoutEmail := make([]*models.Lead, 0)
	for i := range req.Leads {
		lead := newLeadFromFields(&req.Leads[i], models.LeadSourceImport)
		lead.UserID = req.UserID
		if lead.Email != "" {
			withEmail = append(withEmail, lead)
		} else {
			withoutEmail = append(withoutEmail, lead)
		}
	}

	var (
		successCount int
		errorCount   int
		errs         = make([]string, 0)
	)

	if len(withEmail) > 0 {
		if err := s.leadRepo.UpsertByEmail(ctx, withEmail); err != nil {
			s.logger.Warn("batch lead upsert failed, retrying per row", zap.Int("rows", len(withEmail)), zap.Error(err))
			for _, lead := range withEmail {
				if err := s.leadRepo.UpsertByEmail(ctx, []*models.Lead{lead}); err != nil {
					errorCount++
					errs = append(errs, fmt.Sprintf("%s: %s", lead.Email, err.Error()))
					continue
				}
				successCount++
			}
		} else {
			successCount += len(withEmail)
		}
	}

	if len(withoutEmail) > 0 {
		if err := s.leadRepo.SaveBatch(ctx, withoutEmail); err != nil {
			errorCount += len(withoutEmail)
			errs = append(errs, fmt.Sprintf("%d leads without email: %s", len(withoutEmail), err.Error()))
		} else {
			successCount += len(withoutEmail)
		}
	}

	if len(errs) > utils.ImportErrorPreviewLimit {
		errs = errs[:utils.ImportErrorPreviewLimit]
	}

	message := fmt.Sprintf("Successfully imported %d leads", successCount)
	if errorCount > 0 {
		message += fmt.Sprintf(" (%d failed)", errorCount)
	}

	s.logger.Info("leads imported",
		append(metadata.fields(), zap.Int("success", successCount), zap.Int("failed", errorCount))...)

	return &dto.ImportLeadsResponse{
		Success:      true,
		SuccessCount: successCount,
		ErrorCount:   errorCount,
		Errors:       errs,
		Message:      message,
	}, nil
}

// ImportLeadsSpreadsheet reads the first sheet of an XLSX upload and imports its rows
func (s *LeadImportFlowImpl) ImportLeadsSpreadsheet(ctx context.Context, userID uuid.UUID, r io.Reader, metadata *ClientMetadata) (*dto.ImportLeadsResponse, error) {
	rows, err := ParseLeadsSpreadsheet(r)
	if err != nil {
		return nil, NewBusinessError("INVALID_SPREADSHEET", "Failed to read spreadsheet", err)
	}
	if len(rows) == 0 {
		return nil, NewBusinessError("LEADS_REQUIRED", "Spreadsheet has no lead rows", ErrLeadsRequired)
	}
	return s.ImportLeads(ctx, &dto.ImportLeadsRequest{UserID: userID, Leads: rows}, metadata)
}

// ExportLeads renders every lead of the caller into an XLSX workbook
func (s *LeadImportFlowImpl) ExportLeads(ctx context.Context, userID uuid.UUID) (string, []byte, error) {
	const pageSize = 500

	filter := models.LeadFilter{UserID: &userID}
	all := make([]*models.Lead, 0)
	for offset := 0; ; offset += pageSize {
		leads, err := s.leadRepo.ByFilter(ctx, filter, "created_at ASC, id ASC", pageSize, offset)
		if err != nil {
			return "", nil, NewBusinessError("LEAD_EXPORT_FAILED", "Failed to export leads", err)
		}
		all = append(all, leads...)
		if len(leads) < pageSize {
			break
		}
	}

	data, err := WriteLeadsSpreadsheet(all)
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}

	filename := fmt.Sprintf("leads_%s.xlsx", utils.UTCNow().Format("20060102"))
	return filename, data, nil
}
